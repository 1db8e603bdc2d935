package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"go-chat-memory/internal/chat"
	"go-chat-memory/internal/llm"
	"go-chat-memory/internal/metrics"
)

// maxTranscript caps how many of the most recent events go into a prompt.
const maxTranscript = 200

type faq struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type extraction struct {
	Decisions []string `json:"decisions"`
	Tasks     []string `json:"tasks"`
	Facts     []string `json:"facts"`
	FAQs      []faq    `json:"faqs"`
}

// Distiller turns a consent-filtered slice of the log into one Record.
type Distiller struct {
	llm llm.Completer
	log zerolog.Logger
}

func NewDistiller(completer llm.Completer, log zerolog.Logger) *Distiller {
	return &Distiller{llm: completer, log: log}
}

// Distill returns false when events is empty or when neither the extraction
// nor the fallback summary produced any text. Collaborator failures never
// surface as errors.
func (d *Distiller) Distill(ctx context.Context, events []chat.ChatEvent, t ChatType) (Record, bool) {
	if len(events) == 0 {
		return Record{}, false
	}

	transcript := Transcript(events, maxTranscript)
	text := renderExtraction(d.extract(ctx, transcript, t), t)
	if text == "" {
		if summary := d.summarize(ctx, transcript); summary != "" {
			text = "[Overview]\n" + summary
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Record{}, false
	}

	return Record{
		Type:       t,
		MemoryType: MemoryTypeConversationSummary,
		Text:       text,
		TimeRange: TimeRange{
			From: events[0].Timestamp(),
			To:   events[len(events)-1].Timestamp(),
		},
		Tags:       []string{"summary", "comprehensive", string(t)},
		Confidence: 1.0,
	}, true
}

func (d *Distiller) extract(ctx context.Context, transcript string, t ChatType) extraction {
	raw, err := d.llm.Complete(ctx, extractionPrompt(transcript, t))
	if err != nil {
		metrics.Fallbacks.WithLabelValues("memory_extraction").Inc()
		d.log.Warn().Err(err).Str("chat_type", string(t)).Msg("memory extraction failed; treating as empty")
		return extraction{}
	}
	out, err := llm.DecodeJSON[extraction](raw)
	if err != nil {
		metrics.Fallbacks.WithLabelValues("memory_extraction").Inc()
		d.log.Warn().Err(err).Str("chat_type", string(t)).Str("raw", raw).Msg("memory extraction malformed; treating as empty")
		return extraction{}
	}
	return out
}

func (d *Distiller) summarize(ctx context.Context, transcript string) string {
	raw, err := d.llm.Complete(ctx, summaryPrompt(transcript))
	if err != nil {
		metrics.Fallbacks.WithLabelValues("memory_summary").Inc()
		d.log.Warn().Err(err).Msg("memory summary failed")
		return ""
	}
	return strings.TrimSpace(raw)
}

// renderExtraction writes the non-empty sections in fixed order.
func renderExtraction(e extraction, t ChatType) string {
	var lines []string
	section := func(heading string, items []string) {
		items = nonBlank(items)
		if len(items) == 0 {
			return
		}
		if len(lines) > 0 {
			heading = "\n" + heading
		}
		lines = append(lines, heading)
		for _, item := range items {
			lines = append(lines, "- "+item)
		}
	}

	section("[Decisions]", e.Decisions)
	switch t {
	case Individual:
		section("[Tasks & Deadlines]", e.Tasks)
		section("[Important Facts]", e.Facts)
	case Group:
		if len(e.FAQs) > 0 {
			heading := "[FAQs]"
			if len(lines) > 0 {
				heading = "\n" + heading
			}
			lines = append(lines, heading)
			for _, f := range e.FAQs {
				q, a := strings.TrimSpace(f.Question), strings.TrimSpace(f.Answer)
				if q == "" {
					q = "Q"
				}
				if a == "" {
					a = "A"
				}
				lines = append(lines, "Q: "+q, "A: "+a, "")
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func nonBlank(items []string) []string {
	out := items[:0:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Transcript renders the last max events as "[timestamp] sender: body".
func Transcript(events []chat.ChatEvent, max int) string {
	if max > 0 && len(events) > max {
		events = events[len(events)-max:]
	}
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "[%s] %s: %s\n", ev.Timestamp(), ev.Sender, ev.Body)
	}
	return strings.TrimRight(b.String(), "\n")
}

func extractionPrompt(transcript string, t ChatType) string {
	var schema, guide string
	switch t {
	case Group:
		schema = `{"decisions": ["..."], "faqs": [{"question": "...", "answer": "..."}]}`
		guide = `- decisions: agreements or choices the group made, with who decided
- faqs: questions someone asked that were answered in the chat, with the answer given`
	default:
		schema = `{"decisions": ["..."], "tasks": ["..."], "facts": ["..."]}`
		guide = `- decisions: agreements or choices made, with who decided
- tasks: tasks, todos and deadlines, with the owner and date if mentioned
- facts: durable facts worth remembering (preferences, names, numbers, places)`
	}

	return fmt.Sprintf(`Extract long-term memories from this %s chat.

Chat Conversation:
%s

Return a JSON object with exactly this structure:
%s

Guidelines:
%s
- Only include categories that are present; use an empty array otherwise
- Be concise; one short sentence per item
- Return ONLY valid JSON, no additional text before or after`, t, transcript, schema, guide)
}

func summaryPrompt(transcript string) string {
	return fmt.Sprintf(`Summarize this chat conversation in 2-3 sentences.

Chat Conversation:
%s

Reply with the summary only.`, transcript)
}
