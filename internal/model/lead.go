// Package model defines the value objects shared across the lead scoring
// engine: inbound lead records, behavioral signals, score results, and the
// known-pattern knowledge base entries.
package model

import (
	"strconv"
	"strings"
)

// ConversationTurn is one message in a lead's conversation history.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LeadRecord is the raw inbound lead as delivered by upstream CRM ingestion.
// The engine treats it as read-only; all access goes through the typed
// getters below so the scoring core never depends on the exact upstream
// shape.
type LeadRecord struct {
	ID           string             `json:"id,omitempty"`
	ContactID    string             `json:"contact_id,omitempty"`
	Preferences  map[string]any     `json:"extracted_preferences,omitempty"`
	Conversation []ConversationTurn `json:"conversation_history,omitempty"`
}

// LeadID returns the best available identifier for the lead.
func (l LeadRecord) LeadID() string {
	if l.ID != "" {
		return l.ID
	}
	if l.ContactID != "" {
		return l.ContactID
	}
	return "unknown"
}

// PreferenceString returns the named preference as a trimmed string.
// Numeric preferences are formatted; absent or empty values report false.
func (l LeadRecord) PreferenceString(key string) (string, bool) {
	v, ok := l.Preferences[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// PreferenceNumber returns the named preference as a number. String values
// are not coerced; only genuinely numeric preferences report true.
func (l LeadRecord) PreferenceNumber(key string) (float64, bool) {
	v, ok := l.Preferences[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, t > 0
	case int:
		return float64(t), t > 0
	case int64:
		return float64(t), t > 0
	default:
		return 0, false
	}
}

// ConversationText returns the lead's conversation history concatenated
// into a single lowercased string for phrase scanning.
func (l LeadRecord) ConversationText() string {
	if len(l.Conversation) == 0 {
		return ""
	}
	var b strings.Builder
	for i, turn := range l.Conversation {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(turn.Content)
	}
	return strings.ToLower(b.String())
}
