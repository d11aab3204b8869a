package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts generative-language providers for resume tailoring.
type Client interface {
	Invoke(ctx context.Context, instruction string, attachment *Attachment) (Response, error)
}

// Attachment is a binary file part sent alongside the instruction text.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Kind identifies which variant of Response is populated.
type Kind int

const (
	// KindStructuredAnalysis is a parsed JSON analysis of the resume.
	KindStructuredAnalysis Kind = iota + 1
	// KindRenderableDocument is a complete HTML document.
	KindRenderableDocument
	// KindPlainText is unstructured text, the universal fallback.
	KindPlainText
)

// StructuredAnalysis is the JSON shape the model is asked to produce when it
// returns an analysis instead of a full document.
type StructuredAnalysis struct {
	Score           int      `json:"score"`
	KeySkills       []string `json:"keySkills"`
	MissingSkills   []string `json:"missingSkills"`
	Recommendations string   `json:"recommendations"`
	ImprovedText    string   `json:"improvedText,omitempty"`
}

// Response is the normalized model output. Exactly one variant is populated,
// selected by Kind.
type Response struct {
	Kind       Kind
	Structured *StructuredAnalysis
	HTML       string
	Text       string
}

var (
	// ErrTransport indicates the external call could not complete.
	ErrTransport = errors.New("model transport failed")

	// ErrEmptyResponse indicates the call succeeded but carried no usable content.
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrMalformedResponse indicates output that claims to be structured JSON
	// but cannot be parsed or does not match the expected shape.
	ErrMalformedResponse = errors.New("model returned malformed structured output")
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("model client not configured")

// PlaceholderClient is used when no provider credentials are present so the
// rest of the application can still start in dev.
type PlaceholderClient struct{}

// Invoke always fails.
func (PlaceholderClient) Invoke(ctx context.Context, instruction string, attachment *Attachment) (Response, error) {
	_ = ctx
	_ = instruction
	_ = attachment
	return Response{}, fmt.Errorf("%w: %s", ErrTransport, ErrNotConfigured)
}

var _ Client = PlaceholderClient{}
