package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscript_AppendAndRollback(t *testing.T) {
	tr := NewTranscript()
	tr.Sync(msgs("assistant", "hi"))
	before := tr.Entries()

	tr.Append(ChatEntry(RoleUser, "pending"))
	assert.Equal(t, 2, tr.Len())
	assert.True(t, tr.Entries()[1].Local)

	assert.True(t, tr.RollbackLast())
	assert.Equal(t, before, tr.Entries())
}

func TestTranscript_RollbackOnEmpty(t *testing.T) {
	tr := NewTranscript()
	assert.False(t, tr.RollbackLast())
	assert.True(t, tr.Empty())
}

func TestTranscript_SyncReplacesOptimisticLines(t *testing.T) {
	tr := NewTranscript()
	tr.Append(ChatEntry(RoleUser, "hello"))
	tr.Append(ChatEntry(RoleAssistant, "hi there"))

	tr.Sync(msgs("user", "hello", "assistant", "hi there"))
	for _, e := range tr.Entries() {
		assert.False(t, e.Local)
	}
	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_FixturesStayAnchored(t *testing.T) {
	tr := NewTranscript()
	tr.Sync(msgs("assistant", "p1", "assistant", "break"))
	tr.AddFixture(DividerEntry(1))

	tr.Sync(msgs("assistant", "p1", "assistant", "break", "assistant", "p2 opening", "user", "answer"))
	entries := tr.Entries()
	assert.Len(t, entries, 5)
	assert.Equal(t, EntryDivider, entries[2].Kind)
	assert.Equal(t, 1, entries[2].Phase)
	assert.Equal(t, "p2 opening", entries[3].Content)
	assert.Equal(t, 1, tr.Dividers())
}

func TestTranscript_FixturesDroppedWhenRecordShrinks(t *testing.T) {
	tr := NewTranscript()
	tr.Sync(msgs("assistant", "a", "assistant", "b"))
	tr.AddFixture(DividerEntry(1))

	tr.Sync(msgs("assistant", "fresh start"))
	assert.Zero(t, tr.Dividers())
	assert.Equal(t, 1, tr.Len())
}

func TestTranscript_HasProvisional(t *testing.T) {
	tr := NewTranscript()
	assert.False(t, tr.HasProvisional())

	tr.Append(ChatEntry(RoleUser, TokenBeginSession))
	assert.True(t, tr.HasProvisional())

	tr.Sync(msgs("user", TokenBeginSession, "assistant", "Welcome."))
	tr.AddFixture(DividerEntry(1))
	assert.False(t, tr.HasProvisional(), "fixtures are not provisional")

	tr.Append(ChatEntry(RoleUser, "more"))
	assert.True(t, tr.HasProvisional())
	tr.RollbackLast()
	assert.False(t, tr.HasProvisional())
}

func TestTranscript_MultipleFixturesKeepOrder(t *testing.T) {
	tr := NewTranscript()
	tr.Sync(msgs("assistant", "a"))
	tr.AddFixture(DividerEntry(1))
	tr.Sync(msgs("assistant", "a", "assistant", "b"))
	tr.AddFixture(DividerEntry(2))
	tr.AddFixture(ChatEntry(RoleAssistant, CompletionNotice))

	tr.Sync(msgs("assistant", "a", "assistant", "b"))
	entries := tr.Entries()
	assert.Len(t, entries, 5)
	assert.Equal(t, 1, entries[1].Phase)
	assert.Equal(t, 2, entries[3].Phase)
	assert.Equal(t, CompletionNotice, entries[4].Content)
	assert.True(t, entries[4].Local)
}
