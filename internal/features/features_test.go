package features

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chat-memory/internal/chat"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// scriptedLLM returns replies in order and records every prompt.
// An exhausted script fails every call.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		return "", errors.New("provider unavailable")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptedLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

func newService(replies ...string) (*Service, *chat.MessageLog, *scriptedLLM) {
	l := chat.NewMessageLog(true)
	llm := &scriptedLLM{replies: replies}
	return NewService(l, llm, zerolog.Nop()), l, llm
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestSummarizeEmptyLog(t *testing.T) {
	svc, _, llm := newService()
	out := svc.Summarize(context.Background(), "")
	assert.Equal(t, "No messages to summarize.", out.Summary)
	assert.Empty(t, out.BulletPoints)
	assert.Empty(t, llm.prompts)
}

func TestSummarizeFallbackAndMarkRead(t *testing.T) {
	svc, l, _ := newService()
	long := strings.Repeat("x", 100)
	l.Append("alice", long, t0, nil)
	l.Append("bob", "ok", t0.Add(time.Minute), boolPtr(false))

	out := svc.Summarize(context.Background(), "carol")

	assert.Equal(t, "Chat summary: 2 messages from 2 participant(s): alice, bob", out.Summary)
	require.Len(t, out.BulletPoints, 2)
	assert.Equal(t, "alice: "+strings.Repeat("x", 80)+"...", out.BulletPoints[0])
	assert.Equal(t, "bob: ok...", out.BulletPoints[1])
	assert.Equal(t, 2, out.TotalMessages)
	assert.Equal(t, 0, l.UnreadCount("carol"))
}

// appendingLLM appends a message to the log while a completion is in flight.
type appendingLLM struct {
	log *chat.MessageLog
}

func (a appendingLLM) Complete(_ context.Context, _ string) (string, error) {
	a.log.Append("bob", "arrived during summary", t0.Add(time.Minute), nil)
	return `{"summary":"ok"}`, nil
}

func TestSummarizeKeepsMessagesArrivingMidSummaryUnread(t *testing.T) {
	l := chat.NewMessageLog(true)
	svc := NewService(l, appendingLLM{log: l}, zerolog.Nop())
	l.Append("alice", "before", t0, nil)

	out := svc.Summarize(context.Background(), "carol")

	assert.Equal(t, 1, out.TotalMessages)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, l.UnreadCount("carol"))
	unread := l.Unread("carol")
	require.Len(t, unread, 1)
	assert.Equal(t, "arrived during summary", unread[0].Body)
}

func TestSummarizeUsesUnreadAndIgnoresConsent(t *testing.T) {
	reply := `{"summary":"Plans were made.","bullet_points":["launch friday"],"key_decisions":[],"action_items":["bob ships"],"unread_summary":"Bob will ship."}`
	svc, l, llm := newService(reply)
	l.Append("alice", "old news", t0, nil)
	l.MarkRead("carol")
	l.SetConsent(false)
	l.Append("bob", "shipping friday", t0.Add(time.Minute), nil)

	out := svc.Summarize(context.Background(), "carol")

	prompt := llm.lastPrompt()
	assert.Contains(t, prompt, "shipping friday")
	assert.NotContains(t, prompt, "old news")
	assert.Contains(t, prompt, `"carol" has 1 unread`)
	assert.Equal(t, "Plans were made.", out.Summary)
	assert.Equal(t, []string{"No explicit decisions identified in the conversation."}, out.KeyDecisions)
	assert.Equal(t, []string{"bob ships"}, out.ActionItems)
	assert.Equal(t, "Bob will ship.", out.UnreadSummary)
	assert.Equal(t, 1, out.TotalMessages)
}

func TestSummarizeCaughtUpCoversWholeLog(t *testing.T) {
	svc, l, llm := newService(`{}`)
	l.Append("alice", "alpha update", t0, nil)
	l.Append("bob", "beta update", t0, nil)
	l.MarkRead("carol")

	out := svc.Summarize(context.Background(), "carol")
	assert.Contains(t, llm.lastPrompt(), "alpha update")
	assert.Contains(t, llm.lastPrompt(), "beta update")
	assert.Equal(t, 2, out.TotalMessages)
	assert.Equal(t, "Summary generated successfully.", out.UnreadSummary)
}

func TestPrioritize(t *testing.T) {
	svc, l, llm := newService(`{"1":"urgent","2":"bogus"}`)
	hidden := l.Append("bob", "salary numbers", t0, boolPtr(false))

	out := svc.Prioritize(context.Background(), []Item{
		{ID: "1", Sender: "alice", Message: "server is down"},
		{ID: "2", Sender: "alice", Message: "lunch?"},
		{ID: hidden.ID, Sender: "bob", Message: "salary numbers"},
	})

	assert.Equal(t, map[string]string{"1": PriorityUrgent, "2": PriorityNormal, hidden.ID: PriorityNormal}, out)
	assert.NotContains(t, llm.lastPrompt(), "salary numbers")
	assert.Contains(t, llm.lastPrompt(), "ID: 1 | Msg: server is down")
}

func TestPrioritizeFallback(t *testing.T) {
	svc, _, _ := newService("not json at all")
	out := svc.Prioritize(context.Background(), []Item{{ID: "a", Message: "x"}, {ID: "b", Message: "y"}})
	assert.Equal(t, map[string]string{"a": PriorityNormal, "b": PriorityNormal}, out)

	assert.Empty(t, svc.Prioritize(context.Background(), nil))
}

func TestModerate(t *testing.T) {
	svc, _, _ := newService("```json\n{\"a\":{\"safe\":false,\"reason\":\"spam\"},\"b\":{\"safe\":true,\"reason\":\"fine\"}}\n```")
	out := svc.Moderate(context.Background(), []Item{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	assert.Equal(t, Verdict{Safe: false, Reason: "spam"}, out["a"])
	assert.Equal(t, Verdict{Safe: true}, out["b"])
	assert.Equal(t, Verdict{Safe: true}, out["c"])

	svc, _, _ = newService()
	out = svc.Moderate(context.Background(), []Item{{ID: "a"}})
	assert.Equal(t, map[string]Verdict{"a": {Safe: true}}, out)
}

func TestSmartReplies(t *testing.T) {
	svc, _, llm := newService(`{"suggestions":["Sure!"," ","See you then"]}`)
	out := svc.SmartReplies(context.Background(), []Item{
		{ID: "1", Message: "hello"},
		{ID: "2", Message: "meet at 5?"},
	})
	assert.Equal(t, []string{"Sure!", "See you then"}, out.Suggestions)
	assert.Contains(t, llm.lastPrompt(), "meet at 5?")

	out = svc.SmartReplies(context.Background(), []Item{{ID: "3", Message: "again"}})
	assert.NotNil(t, out.Suggestions)
	assert.Empty(t, out.Suggestions)

	out = svc.SmartReplies(context.Background(), nil)
	assert.Empty(t, out.Suggestions)
}

func TestExtractTasksReadsConsentedEventsOnly(t *testing.T) {
	reply := `{"tasks":[{"title":"Write the launch doc","status":"someday"},{"title":""},{"id":"t9","title":"Fix login","status":"done"}]}`
	svc, l, llm := newService(reply)
	l.Append("alice", "please write the launch doc", t0, nil)
	l.Append("bob", "my password is hunter2", t0, boolPtr(false))

	out := svc.ExtractTasks(context.Background())

	prompt := llm.lastPrompt()
	assert.Contains(t, prompt, "please write the launch doc")
	assert.NotContains(t, prompt, "hunter2")
	require.Len(t, out.Tasks, 2)
	assert.Equal(t, "task-1", out.Tasks[0].ID)
	assert.Equal(t, "todo", out.Tasks[0].Status)
	assert.Equal(t, "t9", out.Tasks[1].ID)
	assert.Equal(t, "done", out.Tasks[1].Status)
}

func TestExtractTasksFallback(t *testing.T) {
	svc, l, llm := newService()
	out := svc.ExtractTasks(context.Background())
	assert.NotNil(t, out.Tasks)
	assert.Empty(t, llm.prompts)

	l.Append("alice", "todo: ship", t0, nil)
	out = svc.ExtractTasks(context.Background())
	assert.Empty(t, out.Tasks)
	assert.Len(t, llm.prompts, 1)
}

func TestSuggestReminders(t *testing.T) {
	reply := `{"suggestions":[{"title":"Book the venue","priority":"HIGH","confidence":1.7},{"title":"Call Dan","priority":"whenever","confidence":-1}]}`
	svc, l, llm := newService(reply)
	l.Append("alice", "first", t0, nil)
	l.Append("alice", "second", t0, nil)
	l.Append("bob", "book the venue by friday", t0, nil)

	out := svc.SuggestReminders(context.Background(), "", 1)

	assert.NotContains(t, llm.lastPrompt(), "first")
	assert.Contains(t, llm.lastPrompt(), "book the venue by friday")
	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, "high", out.Suggestions[0].Priority)
	assert.Equal(t, 1.0, out.Suggestions[0].Confidence)
	assert.Equal(t, "medium", out.Suggestions[1].Priority)
	assert.Equal(t, 0.0, out.Suggestions[1].Confidence)
}

func TestSuggestRemindersSkipsUnconsentedUnread(t *testing.T) {
	svc, l, llm := newService()
	l.Append("alice", "consented plan", t0, nil)
	l.MarkRead("carol")
	l.Append("bob", "private plan", t0, boolPtr(false))

	out := svc.SuggestReminders(context.Background(), "carol", 0)
	assert.Empty(t, out.Suggestions)
	// The only unread event lacks consent, so the consented log is used.
	assert.Contains(t, llm.lastPrompt(), "consented plan")
	assert.NotContains(t, llm.lastPrompt(), "private plan")
}

func TestCreateReminder(t *testing.T) {
	svc, _, _ := newService()
	svc.now = func() time.Time { return t0 }

	_, err := svc.CreateReminder(ReminderRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateReminder(ReminderRequest{TaskID: "task-1", Title: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	r, err := svc.CreateReminder(ReminderRequest{TaskID: "task-1", Title: "Ship", DueDate: strPtr("2026-02-01")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.ID, "reminder-"))
	assert.Len(t, r.ID, len("reminder-")+8)
	require.NotNil(t, r.ReminderTime)
	assert.Equal(t, "2026-01-31T00:00:00", *r.ReminderTime)
	assert.Equal(t, "task-1", r.SourceTaskID)
	assert.Equal(t, "pending", r.Status)
	assert.Equal(t, "2025-03-14T09:00:00", r.CreatedAt)

	r, err = svc.CreateReminder(ReminderRequest{TaskID: "task-1", Title: "Ship", DueDate: strPtr("2026-02-01T10:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-31T10:00:00Z", *r.ReminderTime)

	r, err = svc.CreateReminder(ReminderRequest{TaskID: "task-1", Title: "Ship", DueDate: strPtr("soon"), ReminderTime: nil})
	require.NoError(t, err)
	assert.Nil(t, r.ReminderTime)

	explicit := "2026-01-01T08:00:00"
	r, err = svc.CreateReminder(ReminderRequest{TaskID: "task-1", Title: "Ship", DueDate: strPtr("2026-02-01"), ReminderTime: &explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, *r.ReminderTime)
}

func TestTranslate(t *testing.T) {
	svc, _, llm := newService(`{"translated_text":"hola"}`)
	out := svc.Translate(context.Background(), "hello", "")
	assert.Equal(t, Translation{TranslatedText: "hola", DetectedLanguage: "unknown"}, out)
	assert.Contains(t, llm.lastPrompt(), "Target language: en")

	out = svc.Translate(context.Background(), "hello", "es")
	assert.Equal(t, "Error during translation.", out.TranslatedText)

	assert.Equal(t, Translation{}, svc.Translate(context.Background(), "", "es"))
}

func TestTranslateBatch(t *testing.T) {
	svc, l, llm := newService(`{"translations":{"1":{"translated_text":"bonjour","detected_language":"en"},"zz":{"translated_text":"extra"}}}`)
	hidden := l.Append("bob", "secret", t0, boolPtr(false))

	out := svc.TranslateBatch(context.Background(), []TranslateItem{
		{ID: "1", Text: "hello", TargetLanguage: "fr"},
		{ID: hidden.ID, Text: "secret", TargetLanguage: "fr"},
	})
	assert.Equal(t, map[string]Translation{"1": {TranslatedText: "bonjour", DetectedLanguage: "en"}}, out.Translations)
	assert.Contains(t, llm.lastPrompt(), "Target language: fr")
	assert.NotContains(t, llm.lastPrompt(), "secret")

	out = svc.TranslateBatch(context.Background(), nil)
	assert.NotNil(t, out.Translations)
	assert.Empty(t, out.Translations)
}

func TestHandlerStatusMapping(t *testing.T) {
	svc, _, _ := newService()
	h := NewHandler(svc, zerolog.Nop())

	w := httptest.NewRecorder()
	h.CreateReminder(w, httptest.NewRequest(http.MethodPost, "/api/features/reminders", strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.CreateReminder(w, httptest.NewRequest(http.MethodPost, "/api/features/reminders", strings.NewReader(`{"task_id":"t","title":"x"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = httptest.NewRecorder()
	h.SuggestReminders(w, httptest.NewRequest(http.MethodPost, "/api/features/reminders/suggest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Prioritize(w, httptest.NewRequest(http.MethodPost, "/api/features/prioritize", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Moderate(w, httptest.NewRequest(http.MethodPost, "/api/features/moderate", strings.NewReader(`[{"id":"m1","sender":"a","message":"hi"}]`)))
	assert.JSONEq(t, `{"m1":{"safe":true}}`, w.Body.String())
}
