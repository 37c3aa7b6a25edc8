package domain

// ClassificationOutcome names the rule that decided a finished capture.
// It is a normal control-flow result, never an error: every path ends
// as either a Territory (OutcomeSuccess) or a Run (everything else).
type ClassificationOutcome string

const (
	OutcomeInsufficientPoints ClassificationOutcome = "insufficient_points"
	OutcomeNonSimplePolygon   ClassificationOutcome = "non_simple_polygon"
	OutcomeLoopNotClosed      ClassificationOutcome = "loop_not_closed"
	OutcomeAreaTooSmall       ClassificationOutcome = "area_too_small"
	OutcomeSuccess            ClassificationOutcome = "success"
)

// Message returns the user-facing text for the outcome.
func (o ClassificationOutcome) Message() string {
	switch o {
	case OutcomeInsufficientPoints:
		return "Run Saved! Need more points for territory."
	case OutcomeNonSimplePolygon:
		return "Run Saved! Trail did not form a closed loop."
	case OutcomeLoopNotClosed:
		return "Run Saved! Return to start point to claim territory."
	case OutcomeAreaTooSmall:
		return "Run Saved! Territory too small."
	case OutcomeSuccess:
		return "Territory Claimed!"
	}
	return string(o)
}

// CaptureResult is the terminal result of a capture session. Exactly
// one of Territory or Run is set.
type CaptureResult struct {
	Outcome   ClassificationOutcome `json:"outcome"`
	Message   string                `json:"message"`
	Territory *Territory            `json:"territory,omitempty"`
	Run       *Run                  `json:"run,omitempty"`
}
