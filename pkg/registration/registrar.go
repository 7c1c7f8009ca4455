package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is the result of a successful registration.
type Account struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	CreatedAt time.Time
}

// Registrar creates accounts from a validated draft.
type Registrar interface {
	Register(ctx context.Context, d Draft) (Account, error)
}

// RejectionError is a registrar refusal whose Reason is safe to show the user.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "registration rejected: " + e.Reason
}

// ErrEmailTaken is returned by RejectEmails for a blocked address.
var ErrEmailTaken = &RejectionError{Reason: "An account with this email already exists"}

// SimulatedRegistrar stands in for a registration backend: it waits Delay
// and then succeeds, unless Reject refuses the draft.
type SimulatedRegistrar struct {
	Delay time.Duration

	// Reject, if set, may refuse a draft by returning an error.
	Reject func(Draft) error

	// Now defaults to time.Now.
	Now func() time.Time
}

// Register waits the configured delay, honoring ctx cancellation.
func (r SimulatedRegistrar) Register(ctx context.Context, d Draft) (Account, error) {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return Account{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	if r.Reject != nil {
		if err := r.Reject(d); err != nil {
			return Account{}, err
		}
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return Account{
		ID:        uuid.New(),
		Email:     strings.TrimSpace(d.Email),
		FirstName: strings.TrimSpace(d.FirstName),
		CreatedAt: now(),
	}, nil
}

// RejectEmails returns a Reject hook refusing the given addresses
// (case-insensitive).
func RejectEmails(emails ...string) func(Draft) error {
	taken := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			taken[e] = struct{}{}
		}
	}
	return func(d Draft) error {
		if _, ok := taken[strings.ToLower(strings.TrimSpace(d.Email))]; ok {
			return ErrEmailTaken
		}
		return nil
	}
}

// rejectionReason extracts the user-facing reason from a registrar error.
func rejectionReason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return "Registration failed. Please try again."
}
