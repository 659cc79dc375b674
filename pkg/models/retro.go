package models

// JudgmentOutcome classifies how a session ended.
type JudgmentOutcome string

const (
	OutcomeCompleted          JudgmentOutcome = "completed"
	OutcomePartiallyCompleted JudgmentOutcome = "partially_completed"
	OutcomeFailed             JudgmentOutcome = "failed"
	OutcomeAbandoned          JudgmentOutcome = "abandoned"
	OutcomeExploratory        JudgmentOutcome = "exploratory"
	OutcomeUnknown            JudgmentOutcome = "unknown"
)

// Judgment is the LLM-produced evaluation of a finished session.
type Judgment struct {
	// Outcome classifies the session result.
	Outcome JudgmentOutcome `json:"outcome"`
	// OutcomeConfidence is the judge's confidence in [0, 1].
	OutcomeConfidence float64 `json:"outcome_confidence"`
	// OutcomeReasoning is a brief explanation of the classification.
	OutcomeReasoning string `json:"outcome_reasoning"`
	// PromptClarity scores how clear the initial prompt was, in [0, 1].
	PromptClarity float64 `json:"prompt_clarity"`
	// PromptCompleteness scores how complete the prompt was, in [0, 1].
	PromptCompleteness float64 `json:"prompt_completeness"`
}

// RetroAnalysis is the post-hoc analysis of one session, computed
// asynchronously by the retro service. Absent analyses are a normal
// condition, not a fault.
type RetroAnalysis struct {
	// SessionID identifies the analyzed session.
	SessionID string `json:"session_id"`
	// Judgment is the outcome evaluation, nil if the judge has not run.
	Judgment *Judgment `json:"judgment,omitempty"`
	// DriftScore measures topic drift across the session, in [0, 1].
	DriftScore float64 `json:"drift_score"`
	// ConvergenceScore measures progress toward a goal, in [0, 1].
	ConvergenceScore float64 `json:"convergence_score"`
	// ThrashScore measures repeated undone work, in [0, 1].
	ThrashScore float64 `json:"thrash_score"`
	// Narrative is the judge's prose account of the session.
	Narrative string `json:"narrative,omitempty"`
}
