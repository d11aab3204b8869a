package optimize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cv-tailor-backend/internal/extract"
	"cv-tailor-backend/internal/generated"
	"cv-tailor-backend/internal/llm"
	"cv-tailor-backend/internal/render"
	"cv-tailor-backend/internal/shared/telemetry"
	"cv-tailor-backend/internal/staging"
)

const artifactContentType = "application/pdf"

// Input carries one upload through the pipeline.
type Input struct {
	Data           []byte
	MediaType      string
	FileName       string
	JobDescription string
	RequestID      string
}

// Result summarizes a completed pipeline run.
type Result struct {
	Filename string
	Message  string
	Analysis any
}

// Service sequences the tailoring pipeline: stage the upload, build the
// prompt, invoke the model, render the artifact, publish it for download.
type Service struct {
	Staging      *staging.Store
	Generated    *generated.Store
	Model        llm.Client
	Renderer     *render.Renderer
	ModelTimeout time.Duration
}

// Optimize runs the whole pipeline for one request. The staged source
// document is released on every terminal path, success or failure.
func (s *Service) Optimize(ctx context.Context, in Input) (Result, error) {
	run := newRun(in.RequestID)

	jobDescription := strings.TrimSpace(in.JobDescription)
	if jobDescription == "" {
		return Result{}, run.fail(fmt.Errorf("%w: jobDescription is required", staging.ErrValidation))
	}
	run.advance(stateValidated)

	doc, err := s.Staging.Stage(ctx, in.Data, in.MediaType, in.FileName)
	if err != nil {
		return Result{}, run.fail(err)
	}
	defer s.Staging.Release(ctx, doc)
	run.advance(stateStaged)

	// Extraction failure is not fatal: the document still reaches the model
	// as a file attachment.
	sourceText, err := extract.Text(ctx, in.Data)
	if err != nil {
		telemetry.Warn("optimize.extract.failed", map[string]any{
			"request_id": in.RequestID,
			"err":        err.Error(),
		})
		sourceText = ""
	}

	prompt := llm.BuildPrompt(jobDescription, sourceText)
	run.advance(statePrompted)

	modelCtx := ctx
	if s.ModelTimeout > 0 {
		var cancel context.CancelFunc
		modelCtx, cancel = context.WithTimeout(ctx, s.ModelTimeout)
		defer cancel()
	}
	resp, err := s.Model.Invoke(modelCtx, prompt, &llm.Attachment{
		MIMEType: doc.MediaType,
		Data:     in.Data,
	})
	if err != nil {
		return Result{}, run.fail(err)
	}
	run.advance(stateModelInvoked)

	artifact, err := s.Renderer.Render(ctx, resp)
	if err != nil {
		return Result{}, run.fail(err)
	}
	run.advance(stateRendered)

	filename, err := s.Generated.Publish(ctx, artifact, artifactContentType)
	if err != nil {
		return Result{}, run.fail(err)
	}
	run.advance(statePublished)
	run.advance(stateCompleted)

	return Result{
		Filename: filename,
		Message:  "Tailored resume generated successfully.",
		Analysis: analysisPayload(resp),
	}, nil
}

// Download redeems a published artifact exactly once.
func (s *Service) Download(ctx context.Context, filename string) ([]byte, string, error) {
	return s.Generated.FetchAndExpire(ctx, filename)
}

// analysisPayload shapes the response body's analysis field: a structured
// analysis travels as an object, everything else as a short string.
func analysisPayload(resp llm.Response) any {
	switch resp.Kind {
	case llm.KindStructuredAnalysis:
		return resp.Structured
	case llm.KindPlainText:
		return resp.Text
	default:
		return "The tailored content was generated as a PDF."
	}
}
