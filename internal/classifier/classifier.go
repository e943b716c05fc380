package classifier

import (
	"context"
	"errors"

	"netinsight/internal/model"
)

// ErrClassifierUnavailable means no model is loaded. It is never a verdict.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Classifier scores a feature vector as normal or anomalous.
type Classifier interface {
	Predict(ctx context.Context, features model.Features) (model.Verdict, error)
}

// Unavailable stands in when no model could be loaded.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Predict(ctx context.Context, features model.Features) (model.Verdict, error) {
	if u.Reason == "" {
		return 0, ErrClassifierUnavailable
	}
	return 0, errors.Join(ErrClassifierUnavailable, errors.New(u.Reason))
}
