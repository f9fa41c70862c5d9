package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/phrazzld/taskboss-api/internal/config"
	"github.com/phrazzld/taskboss-api/internal/domain"
	"github.com/phrazzld/taskboss-api/internal/service"
	"github.com/phrazzld/taskboss-api/internal/session"
)

// persona is the system instruction shared by all generated messages.
const persona = `You are a no-nonsense personal accountability assistant.
You keep your messages short (1-3 sentences), direct and in plain language.
You never use corporate filler, you never apologize for reminding, and you
address the user like a tough but fair coach. Reply with the message text
only, no quotes, no preamble.`

// tierInstructions sets the tone per escalation tier.
var tierInstructions = map[domain.Tier]string{
	domain.TierFirm:       "Tone: firm and matter-of-fact. First nudge, assume good faith.",
	domain.TierImpatient:  "Tone: impatient. This was already brought up once; make that clear.",
	domain.TierSarcastic:  "Tone: dry and sarcastic. The task has been ignored repeatedly.",
	domain.TierAggressive: "Tone: blunt and demanding. No more patience, insist on action now.",
}

// GeminiGenerator implements the service.Generator interface using
// Google's Gemini API to phrase reminders and replies.
type GeminiGenerator struct {
	caller *caller
}

// Ensure GeminiGenerator implements service.Generator interface
var _ service.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new GeminiGenerator with the provided
// configuration. Returns an error if the configuration is invalid or the
// underlying client cannot be constructed.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	c, err := newCaller(ctx, logger, cfg, "gemini_generator")
	if err != nil {
		return nil, err
	}
	return &GeminiGenerator{caller: c}, nil
}

// generationConfig builds the shared per-request configuration.
func generationConfig(extra string) *genai.GenerateContentConfig {
	instruction := persona
	if extra != "" {
		instruction = persona + "\n\n" + extra
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.9),
	}
}

// Reminder implements service.Generator.Reminder.
func (g *GeminiGenerator) Reminder(ctx context.Context, task *domain.Task, tier domain.Tier) (string, error) {
	instruction, ok := tierInstructions[tier]
	if !ok {
		instruction = tierInstructions[domain.TierAggressive]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a reminder about this still-unfinished task.\n")
	fmt.Fprintf(&b, "Task: %s\n", task.Text)
	fmt.Fprintf(&b, "Category: %s\n", task.Category)
	fmt.Fprintf(&b, "Times already reminded: %d\n", task.OverdueCount)
	if task.DueAt != nil {
		fmt.Fprintf(&b, "Due: %s\n", task.DueAt.Format("2 January 2006"))
	}
	if task.SnoozeReason != "" {
		fmt.Fprintf(&b, "Last excuse given: %q\n", task.SnoozeReason)
	}

	return g.caller.generateText(ctx, b.String(), generationConfig(instruction))
}

// AckReply implements service.Generator.AckReply.
func (g *GeminiGenerator) AckReply(ctx context.Context, task *domain.Task) (string, error) {
	prompt := fmt.Sprintf(
		"The user just completed this task: %s\nWrite a one-line congratulation. Acknowledge the win, keep it brief.",
		task.Text,
	)
	return g.caller.generateText(ctx, prompt, generationConfig(""))
}

// DeferReply implements service.Generator.DeferReply.
func (g *GeminiGenerator) DeferReply(ctx context.Context, task *domain.Task, reason string) (string, error) {
	prompt := fmt.Sprintf(
		"The user is postponing this task: %s\nTheir reason: %q\nWrite a short reply. Accept the reason if it sounds legitimate, push back if it sounds like an excuse. Either way, make clear the task stays on the list.",
		task.Text, reason,
	)
	return g.caller.generateText(ctx, prompt, generationConfig(""))
}

// Chat implements service.Generator.Chat. History is replayed as
// alternating user/model turns ahead of the new message.
func (g *GeminiGenerator) Chat(ctx context.Context, history []session.Turn, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyInput
	}

	contents := make([]*genai.Content, 0, len(history)*2+1)
	for _, turn := range history {
		contents = append(contents,
			genai.NewContentFromText(turn.User, genai.RoleUser),
			genai.NewContentFromText(turn.Assistant, genai.RoleModel),
		)
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	return g.caller.generate(ctx, contents, generationConfig(""))
}
