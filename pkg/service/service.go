// Package service implements the application operations on top of the
// storage collaborator: account, transaction and category management,
// recurring-rule lifecycle, lazy projection of due recurring
// transactions and the dashboard read path. Account balances are
// maintained incrementally on every mutation.
package service

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/finbook-app/finbook/pkg/recurrence"
	"github.com/finbook-app/finbook/pkg/storage"
)

// Clock supplies the current time. Injected so projection is
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ValidationError marks bad, user-correctable input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Service exposes the finbook operations. All collaborators are passed
// at construction; there is no process-wide state.
type Service struct {
	store  storage.Store
	clock  Clock
	logger *log.Logger
}

func New(store storage.Store, clock Clock, logger *log.Logger) *Service {
	return &Service{store: store, clock: clock, logger: logger}
}

// today is the current civil date in UTC. Due-date comparisons across
// the whole module use this one day boundary.
func (s *Service) today() time.Time {
	return recurrence.CivilDate(s.clock.Now())
}
