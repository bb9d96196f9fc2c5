package vm

import (
	"github.com/juju/errors"
)

const (
	// ErrAmbiguousVM is returned when more than one cluster VM has the
	// requested id.
	ErrAmbiguousVM = errors.ConstError("ambiguous vmid")

	// ErrTaskFailed is returned when a start task stops with an exit
	// status other than OK.
	ErrTaskFailed = errors.ConstError("task failed")
)
