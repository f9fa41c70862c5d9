// Package gemini implements the text classification and message
// generation collaborators on top of Google's Gemini API.
//
// Two adapters live here: a Classifier that maps raw task text to a
// category, short title and optional due date, and a Generator that
// phrases reminders and replies in the accountability persona with a
// tone picked by escalation tier. Both are strictly best-effort from
// the caller's point of view: every error, timeout or malformed model
// answer surfaces as a plain error so the caller can fall back to its
// static defaults.
package gemini
