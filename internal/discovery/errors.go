package discovery

import (
	"errors"
	"syscall"
)

var (
	// ErrInvalidSubnet means the CIDR could not be parsed or is too large to sweep.
	ErrInvalidSubnet = errors.New("invalid subnet")
	// ErrInvalidAddress means a probe target is not an IP address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrResourceExhausted means the host ran out of sockets or buffers. It
	// aborts the whole sweep.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrProbeNotPermitted means the process may not open ICMP sockets, so no
	// address can be probed. It aborts the whole sweep.
	ErrProbeNotPermitted = errors.New("probe not permitted")
	// ErrProbeFailed wraps any other failure to send a probe. The scanner
	// treats it as "not discovered".
	ErrProbeFailed = errors.New("probe failed")
)

// isPermissionDenied covers EPERM and EACCES from socket creation, e.g. an
// unprivileged pinger outside net.ipv4.ping_group_range.
func isPermissionDenied(err error) bool {
	return errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

// abortsSweep reports whether a probe error fails the whole scan instead of
// a single address.
func abortsSweep(err error) bool {
	return errors.Is(err, ErrResourceExhausted) || errors.Is(err, ErrProbeNotPermitted)
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM)
}
