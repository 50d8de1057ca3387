// Package statemachine implements the Scenario and Plan transition
// validation from spec.md §4.9. It is pure decision logic with no I/O —
// internal/repository calls it before attempting a conditional write, and
// any other caller (e.g. a future HTTP/CLI admin surface) can reuse the
// same rules instead of re-deriving them.
//
// Grounded on features/policy/basic/engine.go's decide-from-a-fixed-rule-
// table shape, generalized from tool-allowlist decisions to lifecycle
// transition decisions.
package statemachine

import "github.com/cutstock/optima/internal/domain"

// ScenarioTransitions enumerates the legal moves spec.md §4.9 names for
// OptimizationScenario: PENDING -> RUNNING -> COMPLETED|FAILED,
// FAILED -> PENDING (retry). No other transition is permitted.
var ScenarioTransitions = map[domain.ScenarioStatus][]domain.ScenarioStatus{
	domain.ScenarioPending:   {domain.ScenarioRunning},
	domain.ScenarioRunning:   {domain.ScenarioCompleted, domain.ScenarioFailed},
	domain.ScenarioCompleted: {},
	domain.ScenarioFailed:    {domain.ScenarioPending},
}

// PlanTransitions enumerates the legal moves spec.md §4.9 names for
// CuttingPlan. COMPLETED and CANCELLED are terminal.
var PlanTransitions = map[domain.PlanStatus][]domain.PlanStatus{
	domain.PlanDraft:        {domain.PlanApproved, domain.PlanCancelled},
	domain.PlanApproved:     {domain.PlanInProduction, domain.PlanCancelled},
	domain.PlanInProduction: {domain.PlanCompleted, domain.PlanCancelled},
	domain.PlanCompleted:    {},
	domain.PlanCancelled:    {},
}

// ValidateScenarioTransition returns nil when from -> to is a legal
// Scenario move, otherwise an INVALID_STATUS_TRANSITION error naming both
// states, per spec.md §4.9's "surfaces INVALID_STATUS_TRANSITION with the
// current state and the allowed next states; no mutation occurs".
func ValidateScenarioTransition(from, to domain.ScenarioStatus) error {
	allowed := ScenarioTransitions[from]
	for _, next := range allowed {
		if next == to {
			return nil
		}
	}
	return domain.New(domain.CodeInvalidStatusTransition, transitionMessage(string(from), string(to), toStrings(allowed)))
}

// ValidatePlanTransition is the Plan counterpart of ValidateScenarioTransition.
func ValidatePlanTransition(from, to domain.PlanStatus) error {
	allowed := PlanTransitions[from]
	for _, next := range allowed {
		if next == to {
			return nil
		}
	}
	return domain.New(domain.CodeInvalidStatusTransition, transitionMessage(string(from), string(to), toStringsPlan(allowed)))
}

func toStrings(states []domain.ScenarioStatus) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}

func toStringsPlan(states []domain.PlanStatus) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}

func transitionMessage(from, to string, allowed []string) string {
	msg := "cannot transition from " + from + " to " + to + "; allowed next states: "
	if len(allowed) == 0 {
		return msg + "(none, terminal state)"
	}
	for i, a := range allowed {
		if i > 0 {
			msg += ", "
		}
		msg += a
	}
	return msg
}
