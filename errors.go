package viafsm

import "errors"

// ErrReleaseBeforeSetState is the panic value raised when Release is called
// before any transition was committed.
var ErrReleaseBeforeSetState = errors.New("viafsm: release called before SetState")
