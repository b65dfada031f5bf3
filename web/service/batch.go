package service

import (
	"errors"
	"fmt"

	"github.com/mhsanaei/3x-accounts/database/model"
)

// ItemError is the failure of one user within a batch.
type ItemError struct {
	User *model.User
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("user %d (%s): %v", e.User.Id, e.User.Account(), e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// BatchResult is the outcome of applying one remote operation to many users. Each user
// lands in exactly one of the three lists, in input order.
type BatchResult struct {
	Succeeded []*model.User
	Skipped   []*model.User
	Failed    []ItemError
}

// Done returns the users that need no further attempt: succeeded and skipped.
func (r BatchResult) Done() []*model.User {
	done := make([]*model.User, 0, len(r.Succeeded)+len(r.Skipped))
	done = append(done, r.Succeeded...)
	return append(done, r.Skipped...)
}

func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.Skipped) + len(r.Failed)
}

// Err joins the per-user errors, or returns nil when nothing failed.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Summary renders the aggregate for operators, e.g. "reset 3 users, 1 failed, 2 skipped".
func (r BatchResult) Summary(verb string) string {
	msg := fmt.Sprintf("%s %d users, %d failed", verb, len(r.Succeeded), len(r.Failed))
	if len(r.Skipped) > 0 {
		msg += fmt.Sprintf(", %d skipped", len(r.Skipped))
	}
	return msg
}
