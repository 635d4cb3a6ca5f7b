package forecast

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the service can report.
type Kind string

// Error kinds. The string value is used as the machine readable "code" in
// HTTP error bodies.
const (
	KindArtifactNotFound       Kind = "artifact_not_found"
	KindDeserializationFailure Kind = "deserialization_failure"
	KindModelUnavailable       Kind = "model_unavailable"
	KindInvalidFeatureCount    Kind = "invalid_feature_count"
	KindInvalidFeatureType     Kind = "invalid_feature_type"
	KindInferenceFailure       Kind = "inference_failure"
	KindInvalidRequest         Kind = "invalid_request"
)

// Sentinel kinds for errors.Is checks.
var (
	ErrArtifactNotFound       = errors.New("model artifact not found")
	ErrDeserializationFailure = errors.New("model deserialization failed")
	ErrModelUnavailable       = errors.New("model not loaded")
	ErrInvalidFeatureCount    = errors.New("invalid feature count")
	ErrInvalidFeatureType     = errors.New("invalid feature type")
	ErrInferenceFailure       = errors.New("prediction failed")
	ErrInvalidRequest         = errors.New("invalid request")
)

var sentinels = map[Kind]error{
	KindArtifactNotFound:       ErrArtifactNotFound,
	KindDeserializationFailure: ErrDeserializationFailure,
	KindModelUnavailable:       ErrModelUnavailable,
	KindInvalidFeatureCount:    ErrInvalidFeatureCount,
	KindInvalidFeatureType:     ErrInvalidFeatureType,
	KindInferenceFailure:       ErrInferenceFailure,
	KindInvalidRequest:         ErrInvalidRequest,
}

// Error is a failure tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// NewError builds an Error of the given kind with a caller facing message.
func NewError(op string, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// WrapError builds an Error of the given kind around cause.
func WrapError(op string, kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

// Error returns the caller facing message. Op is deliberately not included
// so that internal operation names never reach HTTP clients.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain. Errors that
// carry no kind are treated as inference failures.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInferenceFailure
}
