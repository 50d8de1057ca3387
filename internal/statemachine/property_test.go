package statemachine

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cutstock/optima/internal/domain"
)

var allScenarioStatuses = []domain.ScenarioStatus{
	domain.ScenarioPending, domain.ScenarioRunning, domain.ScenarioCompleted, domain.ScenarioFailed,
}

var allPlanStatuses = []domain.PlanStatus{
	domain.PlanDraft, domain.PlanApproved, domain.PlanInProduction, domain.PlanCompleted, domain.PlanCancelled,
}

// TestScenarioTransitions_NoSequenceEscapesTheDeclaredStates property-tests
// spec.md §8's "no sequence of transition calls drives a scenario ... to a
// state unreachable in the machines in §4.9": starting from PENDING, every
// attempted move is either rejected (state unchanged) or is one of the
// explicitly declared ScenarioTransitions, so the scenario can never land
// outside the declared state set.
func TestScenarioTransitions_NoSequenceEscapesTheDeclaredStates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary transition attempts never leave the declared state set", prop.ForAll(
		func(targets []domain.ScenarioStatus) bool {
			state := domain.ScenarioPending
			for _, target := range targets {
				err := ValidateScenarioTransition(state, target)
				if err == nil {
					allowed := false
					for _, next := range ScenarioTransitions[state] {
						if next == target {
							allowed = true
							break
						}
					}
					if !allowed {
						return false // accepted a move absent from the declared table
					}
					state = target
				}
				if !isDeclaredScenarioState(state) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, genScenarioStatus()),
	))

	properties.TestingRun(t)
}

// TestPlanTransitions_NoSequenceEscapesTheDeclaredStates is the Plan
// counterpart of TestScenarioTransitions_NoSequenceEscapesTheDeclaredStates.
func TestPlanTransitions_NoSequenceEscapesTheDeclaredStates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary transition attempts never leave the declared state set", prop.ForAll(
		func(targets []domain.PlanStatus) bool {
			state := domain.PlanDraft
			for _, target := range targets {
				err := ValidatePlanTransition(state, target)
				if err == nil {
					allowed := false
					for _, next := range PlanTransitions[state] {
						if next == target {
							allowed = true
							break
						}
					}
					if !allowed {
						return false
					}
					state = target
				}
				if !isDeclaredPlanState(state) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, genPlanStatus()),
	))

	properties.TestingRun(t)
}

func genScenarioStatus() gopter.Gen {
	return gen.OneConstOf(
		domain.ScenarioPending, domain.ScenarioRunning, domain.ScenarioCompleted, domain.ScenarioFailed,
	)
}

func genPlanStatus() gopter.Gen {
	return gen.OneConstOf(
		domain.PlanDraft, domain.PlanApproved, domain.PlanInProduction, domain.PlanCompleted, domain.PlanCancelled,
	)
}

func isDeclaredScenarioState(s domain.ScenarioStatus) bool {
	for _, v := range allScenarioStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func isDeclaredPlanState(s domain.PlanStatus) bool {
	for _, v := range allPlanStatuses {
		if v == s {
			return true
		}
	}
	return false
}
