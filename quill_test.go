package quill

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/quill/core/block"
	"github.com/adalundhe/quill/core/snapshot"
)

// noteDoc is a heading with two paragraphs, the running example for
// scan cycles.
type noteDoc struct {
	root block.ID
	p1   block.ID
	p2   block.ID
}

func newNoteDoc() noteDoc {
	root := block.RootID("note.md")
	return noteDoc{
		root: root,
		p1:   block.ChildID(root, block.Paragraph, 0),
		p2:   block.ChildID(root, block.Paragraph, 1),
	}
}

func (d noteDoc) blocks(p1Text, p2Text string) []block.Block {
	return []block.Block{
		{ID: d.root, Kind: block.Heading, RawText: "# Title"},
		{ID: d.p1, Kind: block.Paragraph, RawText: p1Text, Depth: 1, Parent: &d.root, OrderInParent: 0},
		{ID: d.p2, Kind: block.Paragraph, RawText: p2Text, Depth: 1, Parent: &d.root, OrderInParent: 1},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func TestEngine_TrackStartsAtVersionOne(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, version, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version.Seq)

	cur, err := engine.Current(doc)
	require.NoError(t, err)
	assert.Same(t, version, cur)
}

func TestEngine_RescanReportsEditedParagraph(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, _, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	result, err := engine.Rescan(doc, note.blocks("Hello world", "Goodbye"))
	require.NoError(t, err)

	assert.True(t, result.Published)
	assert.Equal(t, uint64(2), result.Version.Seq)
	assert.False(t, result.Diff.UnchangedRoot)

	// The edited paragraph and its ancestor change; the untouched
	// sibling does not appear anywhere in the diff.
	assert.Contains(t, result.Diff.Modified, note.p2)
	assert.Contains(t, result.Diff.Modified, note.root)
	assert.NotContains(t, result.Diff.Modified, note.p1)
	assert.Contains(t, result.Diff.ContentChanged, note.p2)
	assert.Empty(t, result.Diff.Added)
	assert.Empty(t, result.Diff.Removed)
}

func TestEngine_RescanNoOpPublishesNothing(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, first, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	result, err := engine.Rescan(doc, note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	assert.False(t, result.Published)
	assert.True(t, result.Diff.UnchangedRoot)
	assert.True(t, result.Diff.IsEmpty())
	assert.Same(t, first, result.Version)
}

func TestEngine_RescanAbsorbsFormattingChurn(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, _, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	// Editor churn: CRLF endings and trailing spaces. Normalization
	// makes this a no-op scan.
	result, err := engine.Rescan(doc, note.blocks("Hello world  \r\n", "Bye \r\n"))
	require.NoError(t, err)
	assert.False(t, result.Published)
	assert.True(t, result.Diff.UnchangedRoot)
}

func TestEngine_EditPublishesThroughRecomputePath(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, _, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	version, err := engine.Edit(doc, note.p2, "Goodbye")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version.Seq)

	// An identical rescan after the edit confirms the recomputed tree
	// matches a full rebuild of the edited document.
	result, err := engine.Rescan(doc, note.blocks("Hello world", "Goodbye"))
	require.NoError(t, err)
	assert.False(t, result.Published)
	assert.True(t, result.Diff.UnchangedRoot)
}

func TestEngine_ConcurrentEditsAllLand(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, _, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	const editors = 8
	var wg sync.WaitGroup
	for i := 0; i < editors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := engine.Edit(doc, note.p2, fmt.Sprintf("revision %d", n)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	// Every editor retries past lost races, so each one advances the
	// version exactly once.
	cur, err := engine.Current(doc)
	require.NoError(t, err)
	assert.Equal(t, uint64(editors+1), cur.Seq)
}

func TestEngine_ProbeTracksPublishes(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, _, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	probe, err := engine.Probe(doc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), probe.Seq)

	_, err = engine.Edit(doc, note.p1, "rewritten")
	require.NoError(t, err)

	probe, err = engine.Probe(doc)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), probe.Seq)
}

func TestEngine_UnknownDocument(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	_, err := engine.Rescan(uuid.New(), note.blocks("a", "b"))
	require.ErrorIs(t, err, snapshot.ErrUnknownDocument)

	_, err = engine.Edit(uuid.New(), note.p1, "text")
	require.ErrorIs(t, err, snapshot.ErrUnknownDocument)

	_, err = engine.Current(uuid.New())
	require.ErrorIs(t, err, snapshot.ErrUnknownDocument)
}

func TestEngine_ForgetStopsTracking(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)
	note := newNoteDoc()

	doc, _, err := engine.Track(note.blocks("Hello world", "Bye"))
	require.NoError(t, err)

	engine.Forget(doc)
	_, err = engine.Current(doc)
	require.ErrorIs(t, err, snapshot.ErrUnknownDocument)
}
