package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a relay run failed.
type Kind string

const (
	KindNavigation     Kind = "navigation"
	KindLookup         Kind = "lookup"
	KindNoContent      Kind = "no_content"
	KindDecode         Kind = "decode"
	KindUpstreamStatus Kind = "upstream_status"
	KindTransport      Kind = "transport"
)

// Error represents a universal error type across the service.
//
// It doubles as the HTTP error body and as the typed failure of a fetch or
// a delivery, depending on which of Status and Kind are set.
type Error struct {
	Kind    Kind
	Status  int
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	if e.Kind != "" {
		if len(e.Details) == 0 {
			return fmt.Sprintf("%s: %s", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s, details: %v", e.Kind, e.Err, e.Details)
	}

	return fmt.Sprintf("%d: %s, details: %v", e.Status, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type transport struct {
	Message string   `json:"message"`
	Kind    Kind     `json:"kind,omitempty"`
	Details []Detail `json:"details"`
	Status  int      `json:"status"`
}

func (s *Error) MarshalJSON() ([]byte, error) {
	msg := ""
	if s.Err != nil {
		msg = s.Err.Error()
	}

	return json.Marshal(transport{
		Message: msg,
		Kind:    s.Kind,
		Details: s.Details,
		Status:  s.Status,
	})
}

func (s *Error) UnmarshalJSON(byts []byte) error {
	t := transport{}
	if err := json.Unmarshal(byts, &t); err != nil {
		return err
	}

	s.Err = errors.New(t.Message)
	s.Kind = t.Kind
	s.Details = t.Details
	s.Status = t.Status
	return nil
}

// E builds an [Error] out of whatever it's handed: a string or error becomes
// the wrapped error, an int the status, a [Kind] the kind, and [Detail]s are
// accumulated.
func E(args ...any) *Error {
	ret := &Error{
		Status:  http.StatusInternalServerError,
		Err:     nil,
		Details: nil,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		case Kind:
			ret.Kind = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	return ret
}

// KindOf digs through the chain for an [Error] and reports its kind.
//
// Returns an empty kind when there is none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	return e.Kind
}
