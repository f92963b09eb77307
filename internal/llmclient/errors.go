package llmclient

import "fmt"

// ErrorKind classifies an LLM client failure per SPEC_FULL.md §4.C.
type ErrorKind string

const (
	ErrRateLimited ErrorKind = "rate_limited"
	ErrNetwork     ErrorKind = "network"
	ErrAPI         ErrorKind = "api"
	ErrParse       ErrorKind = "parse"
	ErrTokenLimit  ErrorKind = "token_limit"
)

// Error is the typed error every Client method returns on failure.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Used  int
	Limit int
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrTokenLimit:
		return fmt.Sprintf("token limit exceeded: used %d of %d", e.Used, e.Limit)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller should retry with backoff.
func (e *Error) Retryable() bool {
	return e.Kind == ErrRateLimited || e.Kind == ErrNetwork
}

func newRateLimited(msg string, err error) *Error {
	return &Error{Kind: ErrRateLimited, Msg: msg, Err: err}
}

func newNetwork(msg string, err error) *Error {
	return &Error{Kind: ErrNetwork, Msg: msg, Err: err}
}

func newAPI(msg string, err error) *Error {
	return &Error{Kind: ErrAPI, Msg: msg, Err: err}
}

func newParse(msg string, err error) *Error {
	return &Error{Kind: ErrParse, Msg: msg, Err: err}
}

// NewTokenLimit builds a token-limit error carrying the used and limit
// token counts.
func NewTokenLimit(used, limit int) *Error {
	return &Error{Kind: ErrTokenLimit, Used: used, Limit: limit}
}
