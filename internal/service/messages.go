package service

import (
	"fmt"
	"strings"

	"github.com/phrazzld/taskboss-api/internal/domain"
)

// categoryEmoji decorates task cards per category.
var categoryEmoji = map[domain.Category]string{
	domain.CategoryWork:     "💼",
	domain.CategoryPersonal: "🙋",
	domain.CategoryHealth:   "💪",
	domain.CategoryOther:    "📌",
}

// TaskCard formats the message body posted when a task is created or
// reminded about. It carries the title, original text, optional due date
// and a short task reference.
func TaskCard(task *domain.Task) string {
	var b strings.Builder

	emoji, ok := categoryEmoji[task.Category]
	if !ok {
		emoji = categoryEmoji[domain.CategoryOther]
	}

	fmt.Fprintf(&b, "%s %s\n\n%s", emoji, task.Title, task.Text)
	if task.DueAt != nil {
		fmt.Fprintf(&b, "\n📅 Due: %s", task.DueAt.Format("02.01.2006"))
	}
	fmt.Fprintf(&b, "\n\nTask %s", shortID(task))

	return b.String()
}

// FallbackReminder is the static reminder used when the generator fails
// or times out. A slow external dependency must never suppress an
// overdue reminder.
func FallbackReminder(task *domain.Task) string {
	return fmt.Sprintf("⏰ Still pending: %s\nDone, or not yet?", task.Text)
}

// FallbackAckReply is the static congratulation used when the generator fails.
func FallbackAckReply(task *domain.Task) string {
	return fmt.Sprintf("✅ Done: %s. Nice work.", task.Title)
}

// FallbackDeferReply is the static response to a deferral reason used
// when the generator fails.
func FallbackDeferReply(task *domain.Task) string {
	return fmt.Sprintf("Noted. %s is still on your list. Get it done.", task.Title)
}

// FallbackChatReply is the static conversational reply used when the
// generator fails.
const FallbackChatReply = "I didn't catch that. Try again in a moment."

// shortID renders a compact human-readable task reference.
func shortID(task *domain.Task) string {
	id := task.ID.String()
	if len(id) >= 8 {
		id = id[:8]
	}
	return "#" + id
}
