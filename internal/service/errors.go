// Package service holds the booking core: the seat ledger, the booking
// record store, the payment reconciliation flow and the confirmation
// presenter, plus the manager approval workflow.  Services depend on
// small store interfaces declared next to them; the MySQL and Redis
// implementations live in the repository and pending packages.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

var (
	// ErrValidation marks malformed caller input.  Not retried.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a lost race on a seat or booking.  The caller
	// should re-prompt the user.
	ErrConflict = repository.ErrConflict
	// ErrInvalidTransition marks a booking status change that the
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound marks a missing booking, screening or checkout context.
	ErrNotFound = repository.ErrNotFound
	// ErrForbidden marks access to another user's booking.
	ErrForbidden = repository.ErrForbidden
	// ErrUnavailable marks a transient collaborator failure (broker,
	// cache, database connectivity).  Retryable.
	ErrUnavailable = errors.New("dependency unavailable")
	// ErrTimeout marks an operation that ran past its deadline.  Retryable.
	ErrTimeout = errors.New("operation timed out")
)

// validation wraps ErrValidation with a message meant for the caller.
func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SeatConflictError lists the seats that could not be reserved or are no
// longer held.  It matches ErrConflict with errors.Is.
type SeatConflictError struct {
	Labels []string
}

func (e *SeatConflictError) Error() string {
	return "seats unavailable: " + strings.Join(e.Labels, ",")
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrConflict }

// TransitionError describes a rejected booking status change.  It
// matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
