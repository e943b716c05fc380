package storage

import (
	"fmt"
	"testing"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertStoreBounded(t *testing.T) {
	store := NewAlertStore(100, logrus.New())

	for i := 1; i <= 150; i++ {
		store.Append(model.Alert{ID: fmt.Sprintf("ALERT-%d", i)})
	}

	alerts := store.Snapshot()
	require.Len(t, alerts, 100)
	assert.Equal(t, "ALERT-51", alerts[0].ID)
	assert.Equal(t, "ALERT-150", alerts[99].ID)

	_, ok := store.Get("ALERT-50")
	assert.False(t, ok)
	a, ok := store.Get("ALERT-51")
	assert.True(t, ok)
	assert.Equal(t, "ALERT-51", a.ID)
}

func TestAlertStoreSubscribers(t *testing.T) {
	store := NewAlertStore(10, logrus.New())

	high := &AlertSubscriber{ID: "high", Channel: make(chan model.Alert, 4), Filter: AlertFilter{Severity: model.SeverityHigh}}
	all := &AlertSubscriber{ID: "all", Channel: make(chan model.Alert, 4)}
	store.Subscribe(high)
	store.Subscribe(all)

	store.Append(model.Alert{ID: "ALERT-1", Severity: model.SeverityMedium})
	store.Append(model.Alert{ID: "ALERT-2", Severity: model.SeverityHigh})

	require.Len(t, all.Channel, 2)
	require.Len(t, high.Channel, 1)
	assert.Equal(t, "ALERT-2", (<-high.Channel).ID)

	store.Unsubscribe(high)
	_, open := <-high.Channel
	assert.False(t, open)

	// a second unsubscribe must not panic on the closed channel
	store.Unsubscribe(high)
}

func TestAlertStoreSlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewAlertStore(10, logrus.New())
	sub := &AlertSubscriber{ID: "slow", Channel: make(chan model.Alert)}
	store.Subscribe(sub)

	store.Append(model.Alert{ID: "ALERT-1"})
	assert.Equal(t, 1, store.Len())
}
