// Package navigation decides which steps a user may jump to directly, as
// distinct from strictly linear next/previous movement.
//
// A step is reachable when it is already completed, when it is the step
// immediately following the highest-index completed step (the frontier), or
// when it is the current step itself. Everything beyond that frontier stays
// unreachable until the frontier advances. This lets a user freely revisit
// completed steps without skipping ahead past ungated ones.
package navigation

import "medboard/internal/registration/models"

// Frontier returns the index of the highest-index completed step, or -1
// when nothing has been completed yet.
func Frontier(session *models.RegistrationSession) int {
	frontier := -1
	for i, step := range models.StepOrder {
		if session.IsCompleted(step) {
			frontier = i
		}
	}
	return frontier
}

// Reachable reports whether the user may jump directly to step.
func Reachable(session *models.RegistrationSession, step models.Step) bool {
	idx := models.StepIndex(step)
	if idx < 0 {
		return false
	}
	if step == session.CurrentStep || session.IsCompleted(step) {
		return true
	}
	return idx == Frontier(session)+1
}

// ReachableSteps returns every reachable step in wizard order.
func ReachableSteps(session *models.RegistrationSession) []models.Step {
	steps := make([]models.Step, 0, len(models.StepOrder))
	for _, step := range models.StepOrder {
		if Reachable(session, step) {
			steps = append(steps, step)
		}
	}
	return steps
}

// Status derives the UI-facing state of a step purely from the completed set
// and the current step; there is no independent state to drift.
func Status(session *models.RegistrationSession, step models.Step) models.StepStatus {
	switch {
	case session.IsCompleted(step):
		return models.StepStatusCompleted
	case step == session.CurrentStep:
		return models.StepStatusActive
	default:
		return models.StepStatusPending
	}
}

// Progress returns overall completion as a fraction in [0, 1].
func Progress(session *models.RegistrationSession) float64 {
	completed := 0
	for _, step := range models.StepOrder {
		if session.IsCompleted(step) {
			completed++
		}
	}
	return float64(completed) / float64(models.TotalSteps())
}
