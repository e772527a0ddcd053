package assistant

import "time"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Entry is one transcript line. Entries are immutable once appended.
type Entry struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Transcript is the ordered, append-only conversation record. The core never
// edits or removes entries.
type Transcript struct {
	entries []Entry
}

func (t *Transcript) Append(speaker Speaker, text string) Entry {
	e := Entry{Speaker: speaker, Text: text, At: time.Now().UTC()}
	t.entries = append(t.entries, e)
	return e
}

func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int { return len(t.entries) }
