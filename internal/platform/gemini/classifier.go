package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/taskboss-api/internal/config"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/service"
)

// classifierPrompt asks for a strict JSON verdict. The current date is
// included so relative phrases like "by friday" resolve deterministically.
const classifierPrompt = `You are a task classifier. Today is %s.

Classify the task below into exactly one category: work, personal, health, other.
Produce a short imperative title (max 6 words).
If the task mentions a deadline or date, resolve it to a calendar date; otherwise leave it empty.

Respond with JSON only, no prose, matching:
{"category": "...", "title": "...", "due_date": "YYYY-MM-DD or empty string"}

Task: %s`

// classifierVerdict is the wire shape of the model's answer.
type classifierVerdict struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	DueDate  string `json:"due_date"`
}

// GeminiClassifier implements the service.Classifier interface using
// Google's Gemini API.
type GeminiClassifier struct {
	caller *caller

	// now is injectable for tests.
	now func() time.Time
}

// Ensure GeminiClassifier implements service.Classifier interface
var _ service.Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier creates a new GeminiClassifier with the provided
// configuration. Returns an error if the configuration is invalid or the
// underlying client cannot be constructed.
func NewGeminiClassifier(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiClassifier, error) {
	c, err := newCaller(ctx, logger, cfg, "gemini_classifier")
	if err != nil {
		return nil, err
	}
	return &GeminiClassifier{caller: c, now: time.Now}, nil
}

// Classify implements service.Classifier.Classify.
func (g *GeminiClassifier) Classify(ctx context.Context, text string) (*service.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	prompt := fmt.Sprintf(classifierPrompt, g.now().UTC().Format("Monday, 2 January 2006"), text)
	raw, err := g.caller.generateText(ctx, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	return parseVerdict(raw, g.now())
}

// parseVerdict decodes and normalizes the model's JSON answer.
func parseVerdict(raw string, now time.Time) (*service.Classification, error) {
	var verdict classifierVerdict
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &verdict); err != nil {
		return nil, fmt.Errorf("%w: malformed classifier JSON: %v", ErrInvalidResponse, err)
	}

	result := &service.Classification{
		Category: domain.ParseCategory(verdict.Category),
		Title:    strings.TrimSpace(verdict.Title),
	}

	if due := strings.TrimSpace(verdict.DueDate); due != "" {
		parsed, err := parseDueDate(due)
		if err != nil {
			// A bad date is not worth failing the whole verdict over;
			// the task is simply created undated.
			return result, nil
		}
		// Refuse dates in the past relative to now; the model sometimes
		// resolves "friday" to last week.
		if !parsed.Before(now.UTC().Truncate(24 * time.Hour)) {
			result.DueAt = &parsed
		}
	}

	return result, nil
}

// parseDueDate accepts either a bare calendar date or a full RFC 3339
// timestamp. Bare dates land at end of working day UTC.
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 18, 0, 0, 0, time.UTC), nil
}

// stripCodeFence removes a markdown code fence if the model wrapped its
// JSON in one despite the response MIME type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
