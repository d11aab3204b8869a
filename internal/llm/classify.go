package llm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/structured_analysis.json
var structuredAnalysisSchema string

// Classify normalizes raw model output into exactly one Response variant.
//
// The fallback is ordered: structured JSON first, then a complete markup
// document, then plain text. Output that claims to be JSON but does not
// parse or does not match the structured shape fails with
// ErrMalformedResponse rather than degrading to plain text, because
// rendering decisions downstream depend on correct classification.
func Classify(raw string) (Response, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Response{}, ErrEmptyResponse
	}

	unfenced := stripCodeFence(text)

	if strings.HasPrefix(unfenced, "{") {
		analysis, err := parseStructured(unfenced)
		if err != nil {
			return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return Response{Kind: KindStructuredAnalysis, Structured: analysis}, nil
	}

	if isCompleteDocument(unfenced) {
		return Response{Kind: KindRenderableDocument, HTML: unfenced}, nil
	}

	return Response{Kind: KindPlainText, Text: text}, nil
}

func parseStructured(candidate string) (*StructuredAnalysis, error) {
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("invalid JSON")
	}

	schema := gojsonschema.NewStringLoader(structuredAnalysisSchema)
	document := gojsonschema.NewStringLoader(candidate)
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %v", err)
	}
	if !result.Valid() {
		var fields []string
		for _, desc := range result.Errors() {
			fields = append(fields, desc.String())
		}
		return nil, fmt.Errorf("does not match analysis shape: %s", strings.Join(fields, "; "))
	}

	var analysis StructuredAnalysis
	if err := json.Unmarshal([]byte(candidate), &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// isCompleteDocument reports whether the text is a full markup document,
// detected by the presence of a root <html> tag.
func isCompleteDocument(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<html") && strings.Contains(lower, "</html>")
}

// stripCodeFence removes a single surrounding markdown code fence, which
// models frequently wrap around both JSON and HTML payloads.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	rest := text[3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}
