package ml

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the inspection core
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUntrainedModel
	KindNotFound
	KindCorruptState
	KindTraining
	KindIO
)

// Sentinel errors, one per kind, for use with errors.Is
var (
	ErrInternal       = errors.New("internal error")
	ErrValidation     = errors.New("validation error")
	ErrUntrainedModel = errors.New("no trained model available")
	ErrNotFound       = errors.New("not found")
	ErrCorruptState   = errors.New("corrupt model state")
	ErrTraining       = errors.New("training failed")
	ErrIO             = errors.New("i/o error")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUntrainedModel:
		return "untrained_model"
	case KindNotFound:
		return "not_found"
	case KindCorruptState:
		return "corrupt_state"
	case KindTraining:
		return "training"
	case KindIO:
		return "io"
	default:
		return "internal"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindUntrainedModel:
		return ErrUntrainedModel
	case KindNotFound:
		return ErrNotFound
	case KindCorruptState:
		return ErrCorruptState
	case KindTraining:
		return ErrTraining
	case KindIO:
		return ErrIO
	default:
		return ErrInternal
	}
}

// Error carries the failing stage (Op), the kind and the underlying cause
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// E builds an *Error
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error with a formatted cause
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
