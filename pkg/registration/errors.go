package registration

import (
	"errors"
	"fmt"
)

// FatalError ends the run. Everything else is logged and the run continues.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(stage string, err error) error {
	return &FatalError{Stage: stage, Err: err}
}

// SkipReason says why a local site was not submitted.
type SkipReason string

const (
	SkipNoMetadata   SkipReason = "no site information"
	SkipNoDescriptor SkipReason = "docker-compose.yml missing"
	SkipExists       SkipReason = "already on Dashboard"
	SkipPHPVersion   SkipReason = "PHP version too old"
)

// SkipError is returned by Builder.Build for sites that are not eligible.
type SkipError struct {
	Domain string
	Reason SkipReason
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipping %s: %s", e.Domain, e.Reason)
}

// AsSkip returns the SkipError in err's chain, if any.
func AsSkip(err error) (*SkipError, bool) {
	var se *SkipError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
