package features

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-chat-memory/internal/chat"
	"go-chat-memory/internal/llm"
	"go-chat-memory/internal/metrics"
)

const (
	// summaryWindow caps how many of the latest messages a summary covers.
	summaryWindow = 100
	// fallbackBullets is how many raw messages the fallback summary quotes.
	fallbackBullets = 10
	bulletWidth     = 80

	reminderLead   = 24 * time.Hour
	reminderLayout = "2006-01-02T15:04:05"
)

// EventLog is the slice of chat.MessageLog the features read.
type EventLog interface {
	Unread(user string) []chat.ChatEvent
	UnreadSnapshot(user string) ([]chat.ChatEvent, int)
	MarkReadUpTo(user string, n int)
	AllForSummary() []chat.ChatEvent
	ConsentFiltered() []chat.ChatEvent
	Lookup(id string) (chat.ChatEvent, bool)
}

type Service struct {
	events EventLog
	llm    llm.Completer
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(events EventLog, completer llm.Completer, log zerolog.Logger) *Service {
	return &Service{events: events, llm: completer, log: log, now: time.Now}
}

// ---------------------------------------------
// 📊 Summary
// ---------------------------------------------

// Summarize covers the caller's unread messages, or the whole log when the
// caller is anonymous or fully caught up, and then marks the caller read up
// to where the snapshot ended. The summary is the one feature defined over the full log regardless of
// consent stamps.
func (s *Service) Summarize(ctx context.Context, username string) Summary {
	var (
		unread []chat.ChatEvent
		end    int
	)
	if username != "" {
		unread, end = s.events.UnreadSnapshot(username)
	}
	events := unread
	if len(events) == 0 {
		events = s.events.AllForSummary()
	}

	out := s.summarize(ctx, events, username, len(unread))
	if username != "" {
		s.events.MarkReadUpTo(username, end)
	}
	return out
}

type summaryReply struct {
	Summary       *string  `json:"summary"`
	BulletPoints  []string `json:"bullet_points"`
	KeyDecisions  []string `json:"key_decisions"`
	ActionItems   []string `json:"action_items"`
	UnreadSummary *string  `json:"unread_summary"`
}

func (s *Service) summarize(ctx context.Context, events []chat.ChatEvent, username string, unread int) Summary {
	if len(events) == 0 {
		return emptySummary("No messages to summarize.", "No unread messages.")
	}
	msgs := withoutSystem(events)
	if len(msgs) == 0 {
		return emptySummary("No chat messages to summarize.", "No unread chat messages.")
	}
	if len(msgs) > summaryWindow {
		msgs = msgs[len(msgs)-summaryWindow:]
	}

	participants := senders(msgs)
	overview := fmt.Sprintf("Chat summary: %d messages from %d participant(s): %s",
		len(msgs), len(participants), strings.Join(participants, ", "))
	out := Summary{
		Summary:       overview,
		BulletPoints:  []string{},
		TotalMessages: len(msgs),
		Participants:  participants,
	}

	reply, err := complete[summaryReply](ctx, s, "summary", summaryPrompt(transcript(msgs, false), username, unread))
	if err != nil {
		out.BulletPoints = quoteBullets(msgs)
		out.KeyDecisions = []string{"Error generating summary. Please try again."}
		out.ActionItems = []string{"Error generating summary. Please try again."}
		out.UnreadSummary = "Error generating unread summary."
		return out
	}

	if reply.Summary != nil && strings.TrimSpace(*reply.Summary) != "" {
		out.Summary = *reply.Summary
	}
	out.BulletPoints = nonBlank(reply.BulletPoints)
	out.KeyDecisions = nonBlank(reply.KeyDecisions)
	out.ActionItems = nonBlank(reply.ActionItems)
	out.UnreadSummary = "Summary generated successfully."
	if reply.UnreadSummary != nil {
		out.UnreadSummary = *reply.UnreadSummary
	}
	if len(out.KeyDecisions) == 0 {
		out.KeyDecisions = []string{"No explicit decisions identified in the conversation."}
	}
	if len(out.ActionItems) == 0 {
		out.ActionItems = []string{"No action items identified in the conversation."}
	}
	return out
}

func emptySummary(summary, unread string) Summary {
	return Summary{
		Summary:       summary,
		BulletPoints:  []string{},
		KeyDecisions:  []string{},
		ActionItems:   []string{},
		UnreadSummary: unread,
		Participants:  []string{},
	}
}

func quoteBullets(msgs []chat.ChatEvent) []string {
	n := min(len(msgs), fallbackBullets)
	out := make([]string, 0, n)
	for _, ev := range msgs[:n] {
		out = append(out, fmt.Sprintf("%s: %s...", ev.Sender, truncate(ev.Body, bulletWidth)))
	}
	return out
}

// ---------------------------------------------
// 🏷️ Per-message features
// ---------------------------------------------

// Prioritize labels every item Low, Normal, High or Urgent. Items the model
// skips or mislabels default to Normal.
func (s *Service) Prioritize(ctx context.Context, items []Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.ID] = PriorityNormal
	}
	eligible := s.eligible(items)
	if len(eligible) == 0 {
		return out
	}

	reply, err := complete[map[string]string](ctx, s, "priority", prioritizePrompt(eligible))
	if err != nil {
		return out
	}
	for _, it := range eligible {
		if p, ok := normalizePriority(reply[it.ID]); ok {
			out[it.ID] = p
		}
	}
	return out
}

func normalizePriority(p string) (string, bool) {
	for _, level := range []string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent} {
		if strings.EqualFold(strings.TrimSpace(p), level) {
			return level, true
		}
	}
	return "", false
}

// Moderate flags spam, scams and abuse. Items the model skips are safe.
func (s *Service) Moderate(ctx context.Context, items []Item) map[string]Verdict {
	out := make(map[string]Verdict, len(items))
	for _, it := range items {
		out[it.ID] = Verdict{Safe: true}
	}
	eligible := s.eligible(items)
	if len(eligible) == 0 {
		return out
	}

	reply, err := complete[map[string]Verdict](ctx, s, "moderation", moderatePrompt(eligible))
	if err != nil {
		return out
	}
	for _, it := range eligible {
		if v, ok := reply[it.ID]; ok {
			if v.Safe {
				v.Reason = ""
			}
			out[it.ID] = v
		}
	}
	return out
}

// SmartReplies suggests short answers to the last eligible item.
func (s *Service) SmartReplies(ctx context.Context, items []Item) Replies {
	out := Replies{Suggestions: []string{}}
	eligible := s.eligible(items)
	if len(eligible) == 0 {
		return out
	}

	reply, err := complete[Replies](ctx, s, "smart_replies", smartRepliesPrompt(eligible[len(eligible)-1].Message))
	if err != nil {
		return out
	}
	out.Suggestions = nonBlank(reply.Suggestions)
	return out
}

// eligible drops items whose id names a logged event stamped without
// consent. Ids the log does not know are client-composed text and pass.
func (s *Service) eligible(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if ev, ok := s.events.Lookup(it.ID); ok && !ev.AIEnabled {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ---------------------------------------------
// ✅ Tasks & reminders
// ---------------------------------------------

// ExtractTasks reads the consent-eligible log for follow-up work.
func (s *Service) ExtractTasks(ctx context.Context) TaskList {
	out := TaskList{Tasks: []Task{}}
	msgs := withoutSystem(s.events.ConsentFiltered())
	if len(msgs) == 0 {
		return out
	}

	reply, err := complete[TaskList](ctx, s, "tasks", tasksPrompt(transcript(msgs, true)))
	if err != nil {
		return out
	}
	for i, t := range reply.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("task-%d", i+1)
		}
		switch t.Status {
		case "todo", "in_progress", "done":
		default:
			t.Status = "todo"
		}
		out.Tasks = append(out.Tasks, t)
	}
	return out
}

// SuggestReminders proposes reminders from the caller's unread consented
// messages, falling back to the whole consented log. contextWindow > 0 keeps
// only that many of the latest messages.
func (s *Service) SuggestReminders(ctx context.Context, username string, contextWindow int) ReminderSuggestions {
	out := ReminderSuggestions{Suggestions: []ReminderSuggestion{}}

	var msgs []chat.ChatEvent
	if username != "" {
		for _, ev := range s.events.Unread(username) {
			if ev.AIEnabled {
				msgs = append(msgs, ev)
			}
		}
	}
	if len(msgs) == 0 {
		msgs = s.events.ConsentFiltered()
	}
	if contextWindow > 0 && len(msgs) > contextWindow {
		msgs = msgs[len(msgs)-contextWindow:]
	}
	if len(msgs) == 0 {
		return out
	}

	reply, err := complete[ReminderSuggestions](ctx, s, "reminders", remindersPrompt(transcript(msgs, false)))
	if err != nil {
		return out
	}
	for _, sg := range reply.Suggestions {
		if strings.TrimSpace(sg.Title) == "" {
			continue
		}
		switch sg.Priority = strings.ToLower(sg.Priority); sg.Priority {
		case "low", "medium", "high":
		default:
			sg.Priority = "medium"
		}
		sg.Confidence = max(0, min(1, sg.Confidence))
		out.Suggestions = append(out.Suggestions, sg)
	}
	return out
}

// CreateReminder builds a pending reminder from a task. Without an explicit
// reminder time it fires one day before a parseable due date.
func (s *Service) CreateReminder(req ReminderRequest) (Reminder, error) {
	if strings.TrimSpace(req.TaskID) == "" {
		return Reminder{}, fmt.Errorf("%w: task_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Title) == "" {
		return Reminder{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	reminderTime := req.ReminderTime
	if (reminderTime == nil || *reminderTime == "") && req.DueDate != nil {
		if due, layout, ok := parseDue(*req.DueDate); ok {
			rt := due.Add(-reminderLead).Format(layout)
			reminderTime = &rt
		}
	}

	return Reminder{
		ID:           "reminder-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Assignee:     req.Assignee,
		ReminderTime: reminderTime,
		CreatedAt:    s.now().Format(reminderLayout),
		SourceTaskID: req.TaskID,
		Status:       "pending",
	}, nil
}

// parseDue also returns the layout the reminder time is rendered in: zoned
// inputs stay zoned, dates and naive times become naive date-times.
func parseDue(s string) (time.Time, string, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, time.RFC3339, true
	}
	for _, layout := range []string{reminderLayout, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, reminderLayout, true
		}
	}
	return time.Time{}, "", false
}

// ---------------------------------------------
// 🌐 Translation
// ---------------------------------------------

const defaultLanguage = "en"

func (s *Service) Translate(ctx context.Context, text, target string) Translation {
	if text == "" {
		return Translation{}
	}
	if target == "" {
		target = defaultLanguage
	}

	reply, err := complete[Translation](ctx, s, "translation", translatePrompt(text, target))
	if err != nil {
		return Translation{TranslatedText: "Error during translation."}
	}
	if reply.DetectedLanguage == "" {
		reply.DetectedLanguage = "unknown"
	}
	return reply
}

// TranslateBatch translates every item into the first item's target
// language. Items naming a logged event stamped without consent are skipped.
func (s *Service) TranslateBatch(ctx context.Context, items []TranslateItem) Translations {
	out := Translations{Translations: map[string]Translation{}}
	eligible := make([]TranslateItem, 0, len(items))
	for _, it := range items {
		if ev, ok := s.events.Lookup(it.ID); ok && !ev.AIEnabled {
			continue
		}
		eligible = append(eligible, it)
	}
	if len(eligible) == 0 {
		return out
	}
	target := eligible[0].TargetLanguage
	if target == "" {
		target = defaultLanguage
	}

	reply, err := complete[Translations](ctx, s, "translation", translateBatchPrompt(eligible, target))
	if err != nil {
		return out
	}
	for _, it := range eligible {
		if tr, ok := reply.Translations[it.ID]; ok {
			out.Translations[it.ID] = tr
		}
	}
	return out
}

// ---------------------------------------------
// helpers
// ---------------------------------------------

// complete runs one prompt and decodes the JSON reply. Failures are logged,
// counted under feature and returned so the caller can take its fallback.
func complete[T any](ctx context.Context, s *Service, feature, prompt string) (T, error) {
	var zero T
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		metrics.Fallbacks.WithLabelValues(feature).Inc()
		s.log.Warn().Err(err).Str("feature", feature).Msg("llm call failed; using fallback")
		return zero, err
	}
	out, err := llm.DecodeJSON[T](raw)
	if err != nil {
		metrics.Fallbacks.WithLabelValues(feature).Inc()
		s.log.Warn().Err(err).Str("feature", feature).Str("raw", raw).Msg("unparseable llm output; using fallback")
		return zero, err
	}
	return out, nil
}

func withoutSystem(events []chat.ChatEvent) []chat.ChatEvent {
	out := make([]chat.ChatEvent, 0, len(events))
	for _, ev := range events {
		if ev.Sender != SystemSender {
			out = append(out, ev)
		}
	}
	return out
}

// senders lists distinct senders in first-seen order.
func senders(events []chat.ChatEvent) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ev := range events {
		if !seen[ev.Sender] {
			seen[ev.Sender] = true
			out = append(out, ev.Sender)
		}
	}
	return out
}

func transcript(events []chat.ChatEvent, withIDs bool) string {
	var b strings.Builder
	for i, ev := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", ev.Timestamp(), ev.Sender, ev.Body)
		if withIDs {
			fmt.Fprintf(&b, " (id=%s)", ev.ID)
		}
	}
	return b.String()
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
