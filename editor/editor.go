package editor

// Selection is a rune range inside one block. Start == End is a caret.
type Selection struct {
	Block int
	Start int
	End   int
}

// Editor holds a document, the current selection and the undo/redo stacks.
// Every successful mutation re-serializes the whole document and passes the
// HTML to onChange; persisting it is the caller's job. Commands that do not
// apply to the current selection return false and change nothing.
type Editor struct {
	doc      Document
	sel      Selection
	hasSel   bool
	undo     []Document
	redo     []Document
	onChange func(html string)
}

func New(onChange func(html string)) *Editor {
	return &Editor{onChange: onChange}
}

// Load starts an editor on an existing serialized body. Loading is not a
// mutation: no history entry is recorded and onChange is not called.
func Load(body string, onChange func(html string)) *Editor {
	e := New(onChange)
	e.doc = Parse(body)
	return e
}

func (e *Editor) Document() Document {
	return e.doc.Clone()
}

func (e *Editor) HTML() string {
	return Serialize(e.doc)
}

func (e *Editor) Selection() (Selection, bool) {
	return e.sel, e.hasSel
}

// Select places the selection; offsets are clamped to the block. It returns
// false when block does not exist.
func (e *Editor) Select(block, start, end int) bool {
	if block < 0 || block >= len(e.doc.Blocks) {
		return false
	}
	n := e.doc.Blocks[block].Len()
	start, end = clamp(start, 0, n), clamp(end, 0, n)
	if start > end {
		start, end = end, start
	}
	e.sel = Selection{Block: block, Start: start, End: end}
	e.hasSel = true
	return true
}

func (e *Editor) ClearSelection() {
	e.hasSel = false
	e.sel = Selection{}
}

func (e *Editor) ToggleBold() bool {
	return e.toggleMark(Bold)
}

func (e *Editor) ToggleItalic() bool {
	return e.toggleMark(Italic)
}

func (e *Editor) toggleMark(mark Mark) bool {
	if !e.hasSel || e.sel.Start == e.sel.End {
		return false
	}
	sel := e.sel
	return e.mutate(func(d *Document) bool {
		b := &d.Blocks[sel.Block]
		if b.Type == Image || b.Type == Raw {
			return false
		}
		on := !hasMark(b.Spans, sel.Start, sel.End, mark)
		b.Spans = setMark(b.Spans, sel.Start, sel.End, mark, on)
		return true
	})
}

// ToggleHeading turns the selected block into a heading of level, or back into
// a paragraph when it already is one.
func (e *Editor) ToggleHeading(level int) bool {
	if level < 1 || level > 6 {
		return false
	}
	return e.toggleBlockType(Heading, level)
}

func (e *Editor) ToggleBulletList() bool {
	return e.toggleBlockType(BulletItem, 0)
}

func (e *Editor) ToggleOrderedList() bool {
	return e.toggleBlockType(OrderedItem, 0)
}

func (e *Editor) ToggleBlockquote() bool {
	return e.toggleBlockType(Blockquote, 0)
}

func (e *Editor) toggleBlockType(typ BlockType, level int) bool {
	if !e.hasSel {
		return false
	}
	idx := e.sel.Block
	return e.mutate(func(d *Document) bool {
		b := &d.Blocks[idx]
		if b.Type == Image || b.Type == Raw {
			return false
		}
		if b.Type == typ && b.Level == level {
			b.Type, b.Level = Paragraph, 0
		} else {
			b.Type, b.Level = typ, level
		}
		return true
	})
}

// InsertParagraph adds a paragraph after the selected block, or at the end
// when nothing is selected, and puts the caret at its end.
func (e *Editor) InsertParagraph(text string) bool {
	block := Block{Type: Paragraph}
	if text != "" {
		block.Spans = []Span{{Text: text}}
	}
	return e.insertBlock(block)
}

// InsertImage adds an image block referencing url. The upload must already have
// succeeded; an empty url is a no-op.
func (e *Editor) InsertImage(url, alt string) bool {
	if url == "" {
		return false
	}
	return e.insertBlock(Block{Type: Image, Src: url, Alt: alt})
}

func (e *Editor) insertBlock(block Block) bool {
	at := len(e.doc.Blocks)
	if e.hasSel {
		at = e.sel.Block + 1
	}
	ok := e.mutate(func(d *Document) bool {
		d.Blocks = append(d.Blocks, Block{})
		copy(d.Blocks[at+1:], d.Blocks[at:])
		d.Blocks[at] = block
		return true
	})
	if ok {
		n := e.doc.Blocks[at].Len()
		e.sel, e.hasSel = Selection{Block: at, Start: n, End: n}, true
	}
	return ok
}

func (e *Editor) CanUndo() bool {
	return len(e.undo) > 0
}

func (e *Editor) CanRedo() bool {
	return len(e.redo) > 0
}

func (e *Editor) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}
	e.redo = append(e.redo, e.doc)
	e.doc = e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.afterHistoryMove()
	return true
}

func (e *Editor) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}
	e.undo = append(e.undo, e.doc)
	e.doc = e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.afterHistoryMove()
	return true
}

func (e *Editor) afterHistoryMove() {
	if e.hasSel && !e.Select(e.sel.Block, e.sel.Start, e.sel.End) {
		e.ClearSelection()
	}
	e.emit()
}

// mutate applies fn to a copy of the document and commits it only when fn
// reports a change. A commit pushes the old document on the undo stack and
// clears redo.
func (e *Editor) mutate(fn func(d *Document) bool) bool {
	next := e.doc.Clone()
	if !fn(&next) {
		return false
	}
	e.undo = append(e.undo, e.doc)
	e.redo = nil
	e.doc = next
	e.emit()
	return true
}

func (e *Editor) emit() {
	if e.onChange != nil {
		e.onChange(Serialize(e.doc))
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
