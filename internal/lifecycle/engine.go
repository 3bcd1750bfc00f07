package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atelier-mirabelle/api/internal/domain"
)

var (
	// ErrInvalidTransition indicates the transition table does not permit the
	// requested status change.
	ErrInvalidTransition = errors.New("lifecycle: invalid status transition")
	// ErrReasonRequired indicates a cancellation was requested without a reason.
	ErrReasonRequired = errors.New("lifecycle: cancellation reason is required")
	// ErrTrackingRequired indicates a shipment was requested without a tracking number.
	ErrTrackingRequired = errors.New("lifecycle: tracking number is required")
)

// Transition carries caller-supplied context for a single status change.
type Transition struct {
	// Reason is required for transitions into a cancelled state and is copied
	// onto the audit row for every transition.
	Reason string
	// TrackingNumber is required for transitions into a shipped state.
	TrackingNumber string
	// TriggeredBy tags audit provenance. Empty defaults to manual.
	TriggeredBy domain.TriggerOrigin
	// ActorID identifies the acting user, when one exists.
	ActorID string
	// SkipActions suppresses the whole action pipeline. Used for
	// system-internal corrective writes that must not cascade side effects.
	SkipActions bool
	// Metadata is copied verbatim onto the audit row.
	Metadata map[string]any
}

// TransitionError describes a rejected status change. The entity was not
// mutated and nothing was persisted.
type TransitionError struct {
	Entity string
	From   string
	To     string
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v", e.Entity, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// ActionError describes a post-persistence action failure. The status change
// is already committed; only the named side effect failed.
type ActionError struct {
	Entity string
	Action string
	From   string
	To     string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s -> %s: action %s: %v", e.Entity, e.From, e.To, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Action is one unit of the transition pipeline. Pre-persist actions gate the
// transition itself; post-persist actions run after the status change is
// committed and fail without rolling it back.
type Action[E any, S ~string] interface {
	// Name identifies the action in errors and logs.
	Name() string
	// PrePersist reports whether the action must succeed before the status
	// change is written.
	PrePersist() bool
	// Applies reports whether the action is relevant to this transition.
	Applies(from, to S, tr Transition) bool
	// Execute performs the side effect.
	Execute(ctx context.Context, entity E, from, to S, tr Transition) error
}

// Guards declares which target states demand extra transition context. A zero
// value disables the corresponding guard.
type Guards[S ~string] struct {
	// ReasonRequiredFor demands a non-empty Transition.Reason when it is the
	// target state.
	ReasonRequiredFor S
	// TrackingRequiredFor demands a non-empty Transition.TrackingNumber when
	// it is the target state.
	TrackingRequiredFor S
}

// PersistFunc atomically writes the new status and the audit row, returning
// the updated entity. Implementations wrap both writes in one transaction so
// a concurrent transition cannot pass validation against a stale status.
type PersistFunc[E any, S ~string] func(ctx context.Context, entity E, from, to S, tr Transition) (E, error)

// Engine validates and executes status transitions for one entity type. It is
// stateless and safe for concurrent use.
type Engine[E any, S ~string] struct {
	machine Machine[S]
	guards  Guards[S]
	status  func(E) S
	persist PersistFunc[E, S]
	actions []Action[E, S]
}

// EngineDeps bundles the collaborators for NewEngine.
type EngineDeps[E any, S ~string] struct {
	Machine Machine[S]
	Guards  Guards[S]
	// Status extracts the current status from an entity.
	Status func(E) S
	// Persist commits the status change and audit row.
	Persist PersistFunc[E, S]
	// Actions run in declaration order for each committed transition.
	Actions []Action[E, S]
}

// NewEngine validates deps and constructs an Engine.
func NewEngine[E any, S ~string](deps EngineDeps[E, S]) (*Engine[E, S], error) {
	if deps.Status == nil {
		return nil, errors.New("lifecycle: status func is required")
	}
	if deps.Persist == nil {
		return nil, errors.New("lifecycle: persist func is required")
	}
	return &Engine[E, S]{
		machine: deps.Machine,
		guards:  deps.Guards,
		status:  deps.Status,
		persist: deps.Persist,
		actions: deps.Actions,
	}, nil
}

// Machine exposes the underlying transition table.
func (e *Engine[E, S]) Machine() Machine[S] {
	return e.machine
}

// CanTransitionTo reports whether the entity may move to target from its
// current status.
func (e *Engine[E, S]) CanTransitionTo(entity E, target S) bool {
	return e.machine.CanTransition(e.status(entity), target)
}

// TransitionTo validates, persists and runs the action pipeline for a single
// status change.
//
// Guard and table violations return a TransitionError before anything is
// written. Pre-persist action failures also abort the transition. Once the
// status change is committed, a failing action surfaces as an ActionError
// while the entity keeps its new status.
func (e *Engine[E, S]) TransitionTo(ctx context.Context, entity E, target S, tr Transition) (E, error) {
	from := e.status(entity)

	if !e.machine.CanTransition(from, target) {
		return entity, e.rejected(from, target, ErrInvalidTransition)
	}
	if e.guards.ReasonRequiredFor != "" && target == e.guards.ReasonRequiredFor && strings.TrimSpace(tr.Reason) == "" {
		return entity, e.rejected(from, target, ErrReasonRequired)
	}
	if e.guards.TrackingRequiredFor != "" && target == e.guards.TrackingRequiredFor && strings.TrimSpace(tr.TrackingNumber) == "" {
		return entity, e.rejected(from, target, ErrTrackingRequired)
	}

	if tr.TriggeredBy == "" {
		tr.TriggeredBy = domain.TriggerManual
	}

	if !tr.SkipActions {
		for _, action := range e.actions {
			if !action.PrePersist() || !action.Applies(from, target, tr) {
				continue
			}
			if err := action.Execute(ctx, entity, from, target, tr); err != nil {
				return entity, e.rejected(from, target, fmt.Errorf("action %s: %w", action.Name(), err))
			}
		}
	}

	updated, err := e.persist(ctx, entity, from, target, tr)
	if err != nil {
		return entity, e.rejected(from, target, fmt.Errorf("persist: %w", err))
	}

	if !tr.SkipActions {
		for _, action := range e.actions {
			if action.PrePersist() || !action.Applies(from, target, tr) {
				continue
			}
			if err := action.Execute(ctx, updated, from, target, tr); err != nil {
				return updated, &ActionError{
					Entity: e.machine.Name(),
					Action: action.Name(),
					From:   string(from),
					To:     string(target),
					Err:    err,
				}
			}
		}
	}

	return updated, nil
}

func (e *Engine[E, S]) rejected(from, to S, err error) error {
	return &TransitionError{
		Entity: e.machine.Name(),
		From:   string(from),
		To:     string(to),
		Err:    err,
	}
}
