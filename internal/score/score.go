// Package score derives the overall score and verdict from rubric sub-scores.
//
// Everything here is a pure function: the same scores always produce the
// same overall score and verdict. No hidden state.
package score

import "github.com/patchjudge/patchjudge/internal/model"

// Rubric weights. Each sub-score is 0-5; the weighted sum is rescaled to 0-100.
const (
	weightFunctionalCorrectness = 0.45
	weightCompleteness          = 0.35
	weightBehavioralEquivalence = 0.20
)

// Verdict thresholds. FAIL conditions are checked before PASS, so a
// contradictory combination resolves to FAIL.
const (
	passMinFunctional  = 4
	passMinComplete    = 4
	passMinEquivalence = 3
	passMinOverall     = 70.0

	failMaxFunctional = 1
	failMaxOverall    = 30.0
)

// Overall computes the weighted overall score on a 0-100 scale:
// 20 * (0.45*A + 0.35*B + 0.20*C).
func Overall(s model.Scores) float64 {
	weighted := weightFunctionalCorrectness*float64(s.FunctionalCorrectness) +
		weightCompleteness*float64(s.Completeness) +
		weightBehavioralEquivalence*float64(s.BehavioralEquivalence)
	return 20 * weighted
}

// Decide maps sub-scores and the overall score to a verdict.
// FAIL: A<=1 or overall<=30. PASS: A>=4, B>=4, C>=3 and overall>=70.
// Everything else is PARTIAL.
func Decide(s model.Scores, overall float64) model.Verdict {
	if s.FunctionalCorrectness <= failMaxFunctional || overall <= failMaxOverall {
		return model.VerdictFail
	}
	if s.FunctionalCorrectness >= passMinFunctional &&
		s.Completeness >= passMinComplete &&
		s.BehavioralEquivalence >= passMinEquivalence &&
		overall >= passMinOverall {
		return model.VerdictPass
	}
	return model.VerdictPartial
}

// Evaluate is a convenience wrapper returning both the overall score and verdict.
func Evaluate(s model.Scores) (float64, model.Verdict) {
	overall := Overall(s)
	return overall, Decide(s, overall)
}
