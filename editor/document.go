// Package editor is an in-memory rich-text document with formatting commands,
// linear undo/redo history and HTML serialization. It never uploads anything:
// images are inserted by URL after the caller has stored them.
package editor

import "strings"

type BlockType int

const (
	Paragraph BlockType = iota
	Heading
	Blockquote
	BulletItem
	OrderedItem
	Image
	// Raw is markup the model cannot represent, such as tables, code blocks or
	// nested lists. It is written back exactly as parsed and never edited.
	Raw
)

// Mark is a set of inline styles.
type Mark uint8

const (
	Bold Mark = 1 << iota
	Italic
)

// Link is the anchor around a span. The zero Link means no anchor.
type Link struct {
	Href  string
	Rel   string
	Title string
}

// Span is a run of text sharing the same marks and link.
type Span struct {
	Text  string
	Marks Mark
	Link  Link
}

// Block is one top-level element. Level is only used by headings, Src and Alt
// only by images, HTML only by raw blocks.
type Block struct {
	Type  BlockType
	Level int
	Spans []Span
	Src   string
	Alt   string
	HTML  string
}

func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Len is the length of the block text in runes.
func (b Block) Len() int {
	n := 0
	for _, s := range b.Spans {
		n += len([]rune(s.Text))
	}
	return n
}

func (b Block) clone() Block {
	b.Spans = append([]Span(nil), b.Spans...)
	return b
}

type Document struct {
	Blocks []Block
}

func (d Document) Clone() Document {
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		blocks[i] = b.clone()
	}
	return Document{Blocks: blocks}
}

// splitAt makes sure a span boundary exists at rune offset pos.
func splitAt(spans []Span, pos int) []Span {
	out := make([]Span, 0, len(spans)+1)
	offset := 0
	for _, s := range spans {
		r := []rune(s.Text)
		if pos > offset && pos < offset+len(r) {
			out = append(out,
				Span{Text: string(r[:pos-offset]), Marks: s.Marks, Link: s.Link},
				Span{Text: string(r[pos-offset:]), Marks: s.Marks, Link: s.Link},
			)
		} else {
			out = append(out, s)
		}
		offset += len(r)
	}
	return out
}

// hasMark reports whether every rune in [start, end) carries mark.
func hasMark(spans []Span, start, end int, mark Mark) bool {
	offset := 0
	for _, s := range spans {
		n := len([]rune(s.Text))
		if offset < end && offset+n > start && s.Marks&mark == 0 {
			return false
		}
		offset += n
	}
	return true
}

// setMark adds or removes mark on [start, end).
func setMark(spans []Span, start, end int, mark Mark, on bool) []Span {
	spans = splitAt(splitAt(spans, start), end)
	offset := 0
	for i, s := range spans {
		n := len([]rune(s.Text))
		if offset >= start && offset+n <= end {
			if on {
				spans[i].Marks |= mark
			} else {
				spans[i].Marks &^= mark
			}
		}
		offset += n
	}
	return normalize(spans)
}

// normalize drops empty spans and merges neighbours with equal marks and link.
func normalize(spans []Span) []Span {
	out := spans[:0]
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Marks == s.Marks && out[len(out)-1].Link == s.Link {
			out[len(out)-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}
