package wizard

import (
	"context"
	"sync"

	"medboard/internal/registration/models"
)

// StepHandler is the typed interface a mounted step implementation hands to
// the wizard. It replaces stringly-typed global callback lookup: the wizard
// holds a map from step id to handler, populated and depopulated as steps
// mount and unmount.
type StepHandler interface {
	// HandleNext runs step-specific work before the wizard completes the
	// step and advances. An error aborts the advance.
	HandleNext(ctx context.Context) error
	// HandlePrevious runs before the wizard retreats from the step.
	// Failures are logged, never block a retreat.
	HandlePrevious(ctx context.Context) error
	// IsValid gives the mounted step a veto beyond the rule table, e.g.
	// for in-progress client-side state.
	IsValid(ctx context.Context) bool
}

type stepRegistry struct {
	mu       sync.RWMutex
	handlers map[models.Step]StepHandler
}

func newStepRegistry() *stepRegistry {
	return &stepRegistry{handlers: make(map[models.Step]StepHandler)}
}

func (r *stepRegistry) get(step models.Step) (StepHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[step]
	return h, ok
}

// RegisterStepHandler installs the handler for a step, replacing any
// previous one. Called when a step implementation mounts.
func (c *Controller) RegisterStepHandler(step models.Step, handler StepHandler) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	c.handlers.handlers[step] = handler
}

// UnregisterStepHandler removes the handler for a step. Called when a step
// implementation unmounts.
func (c *Controller) UnregisterStepHandler(step models.Step) {
	c.handlers.mu.Lock()
	defer c.handlers.mu.Unlock()
	delete(c.handlers.handlers, step)
}
