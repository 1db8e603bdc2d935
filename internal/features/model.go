// Package features implements the per-request AI helpers of the chat room:
// summaries, prioritization, moderation, smart replies, tasks, reminders and
// translation. Every helper is fail-soft; collaborator errors are replaced by
// a fixed fallback and never reach the caller.
package features

import "errors"

// ErrInvalidInput is returned for requests that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Priority levels accepted from the model.
const (
	PriorityLow    = "Low"
	PriorityNormal = "Normal"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// SystemSender is the sender name of server notices, skipped by every feature.
const SystemSender = "System"

// Item is one client-supplied message for the per-message features.
type Item struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// Verdict is the moderation result for one message.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

type Summary struct {
	Summary       string   `json:"summary"`
	BulletPoints  []string `json:"bullet_points"`
	KeyDecisions  []string `json:"key_decisions"`
	ActionItems   []string `json:"action_items"`
	UnreadSummary string   `json:"unread_summary"`
	TotalMessages int      `json:"total_messages"`
	Participants  []string `json:"participants"`
}

type Replies struct {
	Suggestions []string `json:"suggestions"`
}

type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Assignee    *string `json:"assignee"`
	DueDate     *string `json:"due_date"`
	RawMessage  string  `json:"raw_message"`
	MessageID   string  `json:"message_id"`
	Timestamp   string  `json:"timestamp"`
	Status      string  `json:"status"`
}

type TaskList struct {
	Tasks []Task `json:"tasks"`
}

type ReminderSuggestion struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	SuggestedDueDate *string `json:"suggested_due_date"`
	Priority         string  `json:"priority"`
	Context          string  `json:"context"`
	Confidence       float64 `json:"confidence"`
}

type ReminderSuggestions struct {
	Suggestions []ReminderSuggestion `json:"suggestions"`
}

// ReminderRequest is the input of one-click reminder creation.
type ReminderRequest struct {
	TaskID       string  `json:"task_id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
	Assignee     *string `json:"assignee"`
	ReminderTime *string `json:"reminder_time"`
}

type Reminder struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
	Assignee     *string `json:"assignee"`
	ReminderTime *string `json:"reminder_time"`
	CreatedAt    string  `json:"created_at"`
	SourceTaskID string  `json:"source_task_id"`
	Status       string  `json:"status"`
}

type Translation struct {
	TranslatedText   string `json:"translated_text"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}

// TranslateItem is one entry of a batch translation.
type TranslateItem struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type Translations struct {
	Translations map[string]Translation `json:"translations"`
}
