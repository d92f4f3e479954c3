package session

// EntryKind discriminates transcript entries.
type EntryKind int

const (
	// EntryChat is a chat message, either server-recorded or optimistic.
	EntryChat EntryKind = iota
	// EntryDivider marks the end of a completed phase. Never persisted.
	EntryDivider
)

// Entry is one line of the displayed transcript: a chat message or a phase
// divider. Switch on Kind before reading the variant fields.
type Entry struct {
	Kind EntryKind

	// EntryChat
	Role    Role
	Content string
	// Local marks chat lines the server has no record of: optimistic turns
	// awaiting reconciliation and client-side notices.
	Local bool

	// EntryDivider
	Phase int
}

// ChatEntry builds a chat line.
func ChatEntry(role Role, content string) Entry {
	return Entry{Kind: EntryChat, Role: role, Content: content}
}

// DividerEntry builds the divider for a completed phase.
func DividerEntry(phase int) Entry {
	return Entry{Kind: EntryDivider, Phase: phase}
}

// fixture is a client-side entry that survives syncs, pinned after the first
// anchor server messages.
type fixture struct {
	entry  Entry
	anchor int
}

// Transcript is the local projection of the conversation. Server messages are
// replaced wholesale on every sync; optimistic entries are appended to the tail
// and either confirmed by the next sync or rolled back; fixtures (dividers and
// the completion notice) are re-inserted at their anchors on every sync.
type Transcript struct {
	entries  []Entry
	fixtures []fixture
	server   int
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Entries returns a copy of the displayed entries.
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of displayed entries.
func (t *Transcript) Len() int { return len(t.entries) }

// Empty reports whether there is nothing to display.
func (t *Transcript) Empty() bool { return len(t.entries) == 0 }

// Append adds a provisional entry at the tail.
func (t *Transcript) Append(e Entry) {
	if e.Kind == EntryChat {
		e.Local = true
	}
	t.entries = append(t.entries, e)
}

// RollbackLast removes the most recently appended entry. It reports false on
// an empty transcript.
func (t *Transcript) RollbackLast() bool {
	if len(t.entries) == 0 {
		return false
	}
	t.entries = t.entries[:len(t.entries)-1]
	return true
}

// AddFixture appends e at the tail and keeps it there, anchored after the
// current server messages, across future syncs.
func (t *Transcript) AddFixture(e Entry) {
	if e.Kind == EntryChat {
		e.Local = true
	}
	t.fixtures = append(t.fixtures, fixture{entry: e, anchor: t.server})
	t.entries = append(t.entries, e)
}

// Sync replaces the transcript with the server's record and re-inserts the
// fixtures. Fixtures anchored past the end of a shorter record are dropped,
// since the session was reset underneath them.
func (t *Transcript) Sync(msgs []Message) {
	kept := t.fixtures[:0]
	for _, f := range t.fixtures {
		if f.anchor <= len(msgs) {
			kept = append(kept, f)
		}
	}
	t.fixtures = kept
	t.server = len(msgs)

	out := make([]Entry, 0, len(msgs)+len(t.fixtures))
	next := 0
	for i := 0; i <= len(msgs); i++ {
		for next < len(t.fixtures) && t.fixtures[next].anchor == i {
			out = append(out, t.fixtures[next].entry)
			next++
		}
		if i < len(msgs) {
			out = append(out, ChatEntry(msgs[i].Role, msgs[i].Content))
		}
	}
	t.entries = out
}

// HasProvisional reports whether an optimistic entry is on display that no
// sync has confirmed yet.
func (t *Transcript) HasProvisional() bool {
	return len(t.entries) > t.server+len(t.fixtures)
}

// Dividers counts the phase dividers on display.
func (t *Transcript) Dividers() int {
	n := 0
	for _, e := range t.entries {
		if e.Kind == EntryDivider {
			n++
		}
	}
	return n
}
