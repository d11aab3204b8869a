package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cv-tailor-backend/internal/llm"
	"cv-tailor-backend/internal/shared/telemetry"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Deterministic-leaning generation; tailoring output should not vary wildly
// between runs on the same resume.
const temperature = 0.2

// Client implements llm.Client against the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Gemini client. timeout bounds each outbound call.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("GEMINI_MODEL is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string        `json:"role"`
	Parts []contentPart `json:"parts"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Invoke sends exactly one generateContent call and normalizes the reply.
// The attachment, when present, travels as base64 inline data with its
// declared MIME type.
func (c *Client) Invoke(ctx context.Context, instruction string, attachment *llm.Attachment) (llm.Response, error) {
	parts := []contentPart{{Text: instruction}}
	if attachment != nil && len(attachment.Data) > 0 {
		parts = append(parts, contentPart{
			InlineData: &inlineData{
				MIMEType: attachment.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(attachment.Data),
			},
		})
	}

	reqBody := generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{Temperature: temperature},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Response{}, fmt.Errorf("%w: marshal request: %v", llm.ErrTransport, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, fmt.Errorf("%w: build request: %v", llm.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return llm.Response{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, fmt.Errorf("%w: read response: %v", llm.ErrTransport, err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Response{}, fmt.Errorf("%w: response parse: %v", llm.ErrTransport, err)
	}
	if parsed.Error != nil {
		return llm.Response{}, fmt.Errorf("%w: gemini error %d (%s): %s",
			llm.ErrTransport, parsed.Error.Code, parsed.Error.Status, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return llm.Response{}, fmt.Errorf("%w: gemini status %d", llm.ErrTransport, resp.StatusCode)
	}

	logUsage(c.model, &parsed)

	text := candidateText(&parsed)
	if strings.TrimSpace(text) == "" {
		return llm.Response{}, llm.ErrEmptyResponse
	}

	return llm.Classify(text)
}

func candidateText(parsed *generateResponse) string {
	if len(parsed.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

func logUsage(model string, parsed *generateResponse) {
	fields := map[string]any{"model": model}
	if usage := parsed.UsageMetadata; usage != nil {
		fields["prompt_tokens"] = usage.PromptTokenCount
		fields["candidate_tokens"] = usage.CandidatesTokenCount
		fields["total_tokens"] = usage.TotalTokenCount
	}
	telemetry.Info("gemini.response", fields)
}

var _ llm.Client = (*Client)(nil)
