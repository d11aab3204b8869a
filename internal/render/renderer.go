package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cv-tailor-backend/internal/llm"
)

// ErrRender indicates the artifact could not be produced. It is fatal for
// the current request; the caller must clean up staged inputs.
var ErrRender = errors.New("artifact rendering failed")

type pageDims struct {
	widthInches  float64
	heightInches float64
}

var pageSizes = map[string]pageDims{
	"A4":     {widthInches: 8.27, heightInches: 11.69},
	"Letter": {widthInches: 8.5, heightInches: 11},
}

// Options configures page geometry and the render deadline.
type Options struct {
	PageSize     string
	MarginInches float64
	Timeout      time.Duration
	ChromePath   string
}

// Renderer converts a normalized model response into PDF bytes. A complete
// HTML document goes through a headless layout engine so embedded styling
// survives; analysis and plain-text responses are drawn directly into a
// minimal paged layout.
type Renderer struct {
	page       pageDims
	pageName   string
	margin     float64
	timeout    time.Duration
	chromePath string
}

// New constructs a Renderer. Unknown page sizes fall back to A4.
func New(opts Options) *Renderer {
	name := opts.PageSize
	dims, ok := pageSizes[name]
	if !ok {
		name = "A4"
		dims = pageSizes[name]
	}
	margin := opts.MarginInches
	if margin < 0 {
		margin = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Renderer{
		page:       dims,
		pageName:   name,
		margin:     margin,
		timeout:    timeout,
		chromePath: opts.ChromePath,
	}
}

// Render produces the final PDF or fails atomically: it never returns
// partial output.
func (r *Renderer) Render(ctx context.Context, resp llm.Response) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		data []byte
		err  error
	)
	switch resp.Kind {
	case llm.KindRenderableDocument:
		data, err = r.renderHTML(ctx, resp.HTML)
	case llm.KindStructuredAnalysis:
		data, err = r.renderDocument(ctx, analysisDocument(resp.Structured))
	case llm.KindPlainText:
		data, err = r.renderDocument(ctx, textDocument(resp.Text))
	default:
		return nil, fmt.Errorf("%w: response has no usable content", ErrRender)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrRender)
	}
	return data, nil
}
