package behaviour

import (
	"errors"
	"fmt"

	"github.com/hupe1980/reactivegraph/core"
)

var (
	// ErrAlreadyApplied is matched by CreationErrors of kind AlreadyApplied.
	ErrAlreadyApplied = errors.New("behaviour already applied")
	// ErrMissingDependency is matched by CreationErrors of kind MissingDependency.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrMissingProperty reports a property a behaviour needs but the instance lacks.
	ErrMissingProperty = errors.New("missing property")
	// ErrInvalidInstance reports an instance of the wrong kind for a behaviour.
	ErrInvalidInstance = errors.New("invalid instance")

	ErrConnectFailed     = errors.New("connect failed")
	ErrDisconnectFailed  = errors.New("disconnect failed")
	ErrReconnectFailed   = errors.New("reconnect failed")
	ErrBehaviourNotFound = errors.New("behaviour not found")
	ErrShutDown          = errors.New("behaviour shut down")
)

// CreationErrorKind classifies a failed Factory.Create.
type CreationErrorKind int

const (
	AlreadyApplied CreationErrorKind = iota
	MissingDependency
)

func (k CreationErrorKind) String() string {
	if k == AlreadyApplied {
		return "already_applied"
	}
	return "missing_dependency"
}

// CreationError is returned by Factory.Create.
type CreationError struct {
	Kind      CreationErrorKind
	Behaviour core.BehaviourTypeID
	Err       error
}

func (e *CreationError) Error() string {
	if e.Kind == AlreadyApplied {
		return fmt.Sprintf("behaviour %s already applied", e.Behaviour)
	}
	if e.Err == nil {
		return fmt.Sprintf("behaviour %s: missing dependency", e.Behaviour)
	}
	return fmt.Sprintf("behaviour %s: missing dependency: %v", e.Behaviour, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is.
func (e *CreationError) Unwrap() []error {
	sentinel := ErrMissingDependency
	if e.Kind == AlreadyApplied {
		sentinel = ErrAlreadyApplied
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// TransitionErrorKind classifies a failed state transition.
type TransitionErrorKind int

const (
	ConnectFailed TransitionErrorKind = iota
	DisconnectFailed
	ReconnectFailed
	NotFound
)

func (k TransitionErrorKind) String() string {
	switch k {
	case ConnectFailed:
		return "connect"
	case DisconnectFailed:
		return "disconnect"
	case ReconnectFailed:
		return "reconnect"
	default:
		return "not_found"
	}
}

func (k TransitionErrorKind) sentinel() error {
	switch k {
	case ConnectFailed:
		return ErrConnectFailed
	case DisconnectFailed:
		return ErrDisconnectFailed
	case ReconnectFailed:
		return ErrReconnectFailed
	default:
		return ErrBehaviourNotFound
	}
}

// TransitionError is returned by connect, disconnect and reconnect.
type TransitionError struct {
	Kind      TransitionErrorKind
	Behaviour core.BehaviourTypeID
	Err       error
}

// NewNotFoundError reports that no behaviour of type ty is attached.
func NewNotFoundError(ty core.BehaviourTypeID) *TransitionError {
	return &TransitionError{Kind: NotFound, Behaviour: ty}
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("behaviour %s: %s", e.Behaviour, e.Kind.sentinel())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}
