package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfigMissing   Kind = "CONFIG_MISSING"
	KindUpstreamFailure Kind = "UPSTREAM_FAILURE"
)

// Subsystem names the external collaborator an error originated from.
type Subsystem string

const (
	SubsystemCompletion Subsystem = "completion"
	SubsystemEmbedding  Subsystem = "embedding"
	SubsystemDatabase   Subsystem = "database"
)

// Error is raised where a collaborator call fails, so callers never have to
// infer the cause from message text.
type Error struct {
	Kind      Kind
	Subsystem Subsystem
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Subsystem, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Subsystem, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func ConfigMissing(sub Subsystem, detail string) *Error {
	return &Error{Kind: KindConfigMissing, Subsystem: sub, Err: errors.New(detail)}
}

func Upstream(sub Subsystem, err error) *Error {
	return &Error{Kind: KindUpstreamFailure, Subsystem: sub, Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsConfigMissing reports whether err carries a ConfigMissing error.
func IsConfigMissing(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == KindConfigMissing
}
