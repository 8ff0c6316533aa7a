package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"newspipe/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ollama implements Client against the Ollama generate API.
type Ollama struct {
	client  HTTPClient
	baseURL string
	model   string
}

var _ Client = (*Ollama)(nil)

// NewOllama creates an Ollama client for the given base URL and model.
func NewOllama(client HTTPClient, baseURL, modelName string) *Ollama {
	return &Ollama{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// summaryPayload is the JSON structure the model is instructed to emit.
type summaryPayload struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	Sentiment      string   `json:"sentiment"`
	TranslatedText string   `json:"translated_text"`
	Tags           []string `json:"tags"`
}

// Summarize sends the instruction payload to the backend and parses
// the structured result out of the model's reply.
func (o *Ollama) Summarize(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: buildPrompt(req),
		Stream: false,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("backend status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return Result{}, fmt.Errorf("decode generate response: %w", err)
	}

	return parseReply(gen.Response)
}

// Health checks that the backend is reachable.
func (o *Ollama) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend status %d", resp.StatusCode)
	}
	return nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyze this news article and reply with a single JSON object.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Article: %s\n\n", req.Text)
	fmt.Fprintf(&b, "Write all text fields in %s.\n", req.TargetLang)
	b.WriteString(`Reply with exactly these fields:
{
  "summary": "2-3 sentence summary",
  "key_points": ["point one", "point two", "point three"],
  "sentiment": "positive|neutral|negative",
  "translated_text": "full article translated",
  "tags": ["tag", "tag"]
}
`)
	if req.TemplateID != "" {
		fmt.Fprintf(&b, "Template: %s\n", req.TemplateID)
	}
	return b.String()
}

// parseReply extracts the JSON object from the model's free-form reply.
// Models often wrap the object in prose, so everything outside the
// outermost braces is ignored.
func parseReply(reply string) (Result, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end < start {
		return Result{}, fmt.Errorf("no JSON object in backend reply")
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return Result{}, fmt.Errorf("decode backend reply: %w", err)
	}

	return Result{
		Summary:        strings.TrimSpace(payload.Summary),
		KeyPoints:      payload.KeyPoints,
		Sentiment:      model.Sentiment(strings.ToLower(strings.TrimSpace(payload.Sentiment))),
		TranslatedText: strings.TrimSpace(payload.TranslatedText),
		Tags:           payload.Tags,
	}, nil
}
