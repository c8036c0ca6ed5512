package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder() (*[]string, func(string)) {
	var got []string
	return &got, func(html string) { got = append(got, html) }
}

func TestInsertParagraphAndImageEmitOnEveryMutation(t *testing.T) {
	changes, onChange := newRecorder()
	e := New(onChange)

	require.True(t, e.InsertParagraph("hello"))
	require.True(t, e.InsertImage("https://store/object/public/images/blog/a.png", "a"))

	require.Len(t, *changes, 2)
	assert.Equal(t, "<p>hello</p>", (*changes)[0])
	assert.Equal(t, `<p>hello</p><img src="https://store/object/public/images/blog/a.png" alt="a"/>`, (*changes)[1])
	assert.Equal(t, (*changes)[1], e.HTML())
}

func TestInsertImageAfterSelectedBlock(t *testing.T) {
	e := Load("<p>one</p><p>two</p>", nil)
	require.True(t, e.Select(0, 0, 0))
	require.True(t, e.InsertImage("A", ""))
	assert.Equal(t, `<p>one</p><img src="A"/><p>two</p>`, e.HTML())

	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, 1, sel.Block)
}

func TestInsertImageWithoutURLIsNoop(t *testing.T) {
	changes, onChange := newRecorder()
	e := New(onChange)
	assert.False(t, e.InsertImage("", "alt"))
	assert.Empty(t, *changes)
	assert.False(t, e.CanUndo())
}

func TestToggleBoldOnRange(t *testing.T) {
	e := Load("<p>hello world</p>", nil)
	require.True(t, e.Select(0, 6, 11))
	require.True(t, e.ToggleBold())
	assert.Equal(t, "<p>hello <strong>world</strong></p>", e.HTML())

	require.True(t, e.ToggleBold())
	assert.Equal(t, "<p>hello world</p>", e.HTML())
}

func TestToggleBoldOnPartiallyBoldRangeAddsMark(t *testing.T) {
	e := Load("<p><strong>ab</strong>cd</p>", nil)
	require.True(t, e.Select(0, 0, 4))
	require.True(t, e.ToggleBold())
	assert.Equal(t, "<p><strong>abcd</strong></p>", e.HTML())
}

func TestBoldAndItalicNest(t *testing.T) {
	e := Load("<p>abc</p>", nil)
	e.Select(0, 0, 3)
	e.ToggleBold()
	e.ToggleItalic()
	assert.Equal(t, "<p><strong><em>abc</em></strong></p>", e.HTML())
}

func TestFormattingWithoutSelectionIsNoop(t *testing.T) {
	changes, onChange := newRecorder()
	e := Load("<p>text</p>", onChange)

	assert.False(t, e.ToggleBold())
	assert.False(t, e.ToggleHeading(2))
	assert.False(t, e.ToggleBulletList())
	assert.False(t, e.ToggleBlockquote())

	e.Select(0, 2, 2)
	assert.False(t, e.ToggleItalic(), "caret without range")
	assert.False(t, e.ToggleHeading(9), "invalid level")
	assert.False(t, e.Select(5, 0, 1), "missing block")

	assert.Empty(t, *changes)
	assert.Equal(t, "<p>text</p>", e.HTML())
}

func TestFormattingImageBlockIsNoop(t *testing.T) {
	e := Load(`<img src="A"/>`, nil)
	require.True(t, e.Select(0, 0, 0))
	assert.False(t, e.ToggleHeading(1))
	assert.False(t, e.ToggleOrderedList())
}

func TestToggleHeadingAndBack(t *testing.T) {
	e := Load("<p>title</p>", nil)
	e.Select(0, 0, 0)

	require.True(t, e.ToggleHeading(2))
	assert.Equal(t, "<h2>title</h2>", e.HTML())
	require.True(t, e.ToggleHeading(3))
	assert.Equal(t, "<h3>title</h3>", e.HTML())
	require.True(t, e.ToggleHeading(3))
	assert.Equal(t, "<p>title</p>", e.HTML())
}

func TestListsGroupConsecutiveItems(t *testing.T) {
	e := Load("<p>a</p><p>b</p><p>c</p>", nil)
	e.Select(0, 0, 0)
	e.ToggleBulletList()
	e.Select(1, 0, 0)
	e.ToggleBulletList()
	e.Select(2, 0, 0)
	e.ToggleOrderedList()

	assert.Equal(t, "<ul><li>a</li><li>b</li></ul><ol><li>c</li></ol>", e.HTML())
}

func TestUndoRedoIsLinear(t *testing.T) {
	changes, onChange := newRecorder()
	e := Load("<p>abc</p>", onChange)
	e.Select(0, 0, 3)

	e.ToggleBold()
	e.ToggleBlockquote()
	assert.Equal(t, "<blockquote><strong>abc</strong></blockquote>", e.HTML())

	require.True(t, e.Undo())
	assert.Equal(t, "<p><strong>abc</strong></p>", e.HTML())
	require.True(t, e.Undo())
	assert.Equal(t, "<p>abc</p>", e.HTML())
	assert.False(t, e.Undo())

	require.True(t, e.Redo())
	assert.Equal(t, "<p><strong>abc</strong></p>", e.HTML())

	e.ToggleItalic()
	assert.False(t, e.CanRedo(), "new mutation clears redo")
	assert.Equal(t, e.HTML(), (*changes)[len(*changes)-1])
}

func TestUndoDropsSelectionOfRemovedBlock(t *testing.T) {
	e := New(nil)
	e.InsertParagraph("one")
	_, ok := e.Selection()
	require.True(t, ok)

	require.True(t, e.Undo())
	_, ok = e.Selection()
	assert.False(t, ok)
	assert.False(t, e.ToggleBold())
}

func TestApplyCommands(t *testing.T) {
	e := Load("<p>hello</p>", nil)
	for _, cmd := range []Command{
		{Name: "select", Block: 0, Start: 0, End: 5},
		{Name: "italic"},
		{Name: "image", URL: "B", Alt: "b"},
	} {
		changed, err := e.Apply(cmd)
		require.NoError(t, err)
		assert.True(t, changed, cmd.Name)
	}
	assert.Equal(t, `<p><em>hello</em></p><img src="B" alt="b"/>`, e.HTML())

	_, err := e.Apply(Command{Name: "explode"})
	assert.Error(t, err)
}

func TestFormattingSkipsRawBlocks(t *testing.T) {
	e := Load(`<pre>x  y</pre><p>z</p>`, nil)
	require.True(t, e.Select(0, 0, 0))

	assert.False(t, e.ToggleHeading(2))
	assert.False(t, e.ToggleBulletList())
	assert.False(t, e.CanUndo())
	assert.Equal(t, `<pre>x  y</pre><p>z</p>`, e.HTML())
}

func TestBoldInsideLinkKeepsLink(t *testing.T) {
	e := Load(`<p><a href="https://x.example">abcd</a></p>`, nil)
	require.True(t, e.Select(0, 1, 3))
	require.True(t, e.ToggleBold())

	assert.Equal(t, `<p><a href="https://x.example">a<strong>bc</strong>d</a></p>`, e.HTML())
}
