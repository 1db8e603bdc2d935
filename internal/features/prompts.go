package features

import (
	"fmt"
	"strings"
)

func itemLines(items []Item) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("ID: %s | Msg: %s", it.ID, it.Message))
	}
	return strings.Join(lines, "\n")
}

func summaryPrompt(transcript, username string, unread int) string {
	var focus string
	if username != "" && unread > 0 {
		focus = fmt.Sprintf("\nThe user %q has %d unread message(s). The unread_summary must answer "+
			"\"What did I miss?\" for them, focusing on those messages.\n", username, unread)
	}
	return fmt.Sprintf(`You are analyzing a chat conversation.

Conversation:
%s
%s
Return ONLY a JSON object with this structure:
{
  "summary": "2-3 sentence overview of the whole conversation",
  "bullet_points": ["5-10 most important points"],
  "key_decisions": ["decisions or agreements, with who made them"],
  "action_items": ["tasks mentioned, with the owner if known"],
  "unread_summary": "what the user missed, or \"You're all caught up!\""
}

Use [] for empty categories. No markdown, no text outside the JSON.`, transcript, focus)
}

func prioritizePrompt(items []Item) string {
	return fmt.Sprintf(`Analyze the priority of the following messages.
Return a JSON object where keys are IDs and values are one of: "Low", "Normal", "High", "Urgent".

Messages:
%s

Return ONLY valid JSON.`, itemLines(items))
}

func moderatePrompt(items []Item) string {
	return fmt.Sprintf(`Check these messages for spam, scams, or abuse.
Return a JSON object where keys are IDs and values are objects like {"safe": true} or {"safe": false, "reason": "spam"}.

Messages:
%s

Return ONLY valid JSON.`, itemLines(items))
}

func smartRepliesPrompt(message string) string {
	return fmt.Sprintf(`Generate 3 short, context-aware reply suggestions for the following message:
%q

Return a JSON object: {"suggestions": ["Yes", "No", "Maybe"]}
Return ONLY valid JSON.`, message)
}

func tasksPrompt(transcript string) string {
	return fmt.Sprintf(`You read chat conversations and extract TASKS / TODOS: things someone should do
in the future (work items, follow-ups, bugs to fix, documents to write, meetings to schedule).

Conversation:
%s

Return ONLY a JSON object:
{
  "tasks": [
    {
      "id": "task-1",
      "title": "short task title, at most 12 words",
      "description": "concise description with context from the chat",
      "assignee": "person responsible if clearly mentioned, otherwise null",
      "due_date": "YYYY-MM-DD if an explicit deadline is mentioned, otherwise null",
      "raw_message": "exact text of the message containing the task",
      "message_id": "the id shown after that message",
      "timestamp": "timestamp of that message",
      "status": "todo | in_progress | done"
    }
  ]
}

Only include tasks that are clearly stated or implied. If there are none, return {"tasks": []}.
No markdown, no text outside the JSON.`, transcript)
}

func remindersPrompt(transcript string) string {
	return fmt.Sprintf(`You are a reminder assistant. Suggest reminders that would help the people in this chat:
follow-ups mentioned but not scheduled, deadlines, commitments, time-bound or recurring work.

Conversation:
%s

Return ONLY a JSON object:
{
  "suggestions": [
    {
      "id": "suggestion-1",
      "title": "short actionable title, at most 10 words",
      "description": "why this reminder is relevant",
      "suggested_due_date": "YYYY-MM-DD if a deadline is implied, otherwise null",
      "priority": "low | medium | high",
      "context": "short excerpt from the chat supporting it",
      "confidence": 0.0
    }
  ]
}

Suggest at most 7. If nothing fits, return {"suggestions": []}.
No markdown, no text outside the JSON.`, transcript)
}

func translatePrompt(text, target string) string {
	return fmt.Sprintf(`You are a professional translation engine.

Target language: %s

Translate the text below into the target language, preserving meaning and tone.
Return ONLY a JSON object:
{"translated_text": "the translation", "detected_language": "source language code, e.g. en"}

Text:
%s`, target, text)
}

func translateBatchPrompt(items []TranslateItem, target string) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, fmt.Sprintf("ID: %s\nTEXT: %s", it.ID, it.Text))
	}
	return fmt.Sprintf(`You are a professional translation engine.

Target language: %s

Translate each text below into the target language, preserving meaning and tone.
Return ONLY a JSON object:
{"translations": {"<id>": {"translated_text": "...", "detected_language": "en"}}}

Texts:
%s`, target, strings.Join(blocks, "\n\n"))
}
