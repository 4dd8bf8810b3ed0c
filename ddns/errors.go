package ddns

import (
	"errors"
	"fmt"

	cfapi "github.com/cloudflare/cloudflare-go"
)

type Kind int

const (
	KindNetwork Kind = iota
	KindAuthFailed
	KindNotFound
	KindRateLimited
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthFailed:
		return "auth_failed"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("unknown<%d>", int(k))
	}
}

// Error is a provider failure tagged with its kind, so the reconciler and
// operators can tell credential problems from transient ones.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of a provider error, or KindNetwork for errors
// that carry no kind.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}

	return KindNetwork
}

// classify maps cloudflare-go's typed API errors onto the provider error
// taxonomy. Anything unrecognized is treated as a transport failure.
func classify(op string, err error) *Error {
	var (
		authenticationErr *cfapi.AuthenticationError
		authorizationErr  *cfapi.AuthorizationError
		notFoundErr       *cfapi.NotFoundError
		ratelimitErr      *cfapi.RatelimitError
		requestErr        *cfapi.RequestError
	)

	kind := KindNetwork
	switch {
	case errors.As(err, &authenticationErr), errors.As(err, &authorizationErr):
		kind = KindAuthFailed
	case errors.As(err, &notFoundErr):
		kind = KindNotFound
	case errors.As(err, &ratelimitErr):
		kind = KindRateLimited
	case errors.As(err, &requestErr):
		kind = KindMalformed
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
