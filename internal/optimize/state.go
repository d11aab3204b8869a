package optimize

import (
	"cv-tailor-backend/internal/shared/telemetry"
)

// pipelineState tracks one request's progress through the tailoring
// pipeline. States advance strictly forward; any failure jumps straight to
// stateFailed.
type pipelineState string

const (
	stateReceived     pipelineState = "received"
	stateValidated    pipelineState = "validated"
	stateStaged       pipelineState = "staged"
	statePrompted     pipelineState = "prompted"
	stateModelInvoked pipelineState = "model_invoked"
	stateRendered     pipelineState = "rendered"
	statePublished    pipelineState = "published"
	stateCompleted    pipelineState = "completed"
	stateFailed       pipelineState = "failed"
)

type pipelineRun struct {
	requestID string
	state     pipelineState
}

func newRun(requestID string) *pipelineRun {
	return &pipelineRun{requestID: requestID, state: stateReceived}
}

func (r *pipelineRun) advance(next pipelineState) {
	telemetry.Info("pipeline.state", map[string]any{
		"request_id": r.requestID,
		"from":       string(r.state),
		"to":         string(next),
	})
	r.state = next
}

// fail records the terminal failure and returns err unchanged so callers can
// wrap-and-return in one line.
func (r *pipelineRun) fail(err error) error {
	telemetry.Error("pipeline.failed", map[string]any{
		"request_id": r.requestID,
		"from":       string(r.state),
		"reason":     err.Error(),
	})
	r.state = stateFailed
	return err
}
