package editor

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Serialize renders doc as HTML. Consecutive list items share one <ul>/<ol>.
func Serialize(doc Document) string {
	var sb strings.Builder
	var list *html.Node

	flushList := func() {
		if list != nil {
			_ = html.Render(&sb, list)
			list = nil
		}
	}

	for _, b := range doc.Blocks {
		var node *html.Node

		switch b.Type {
		case BulletItem, OrderedItem:
			listAtom := atom.Ul
			if b.Type == OrderedItem {
				listAtom = atom.Ol
			}
			if list != nil && list.DataAtom != listAtom {
				flushList()
			}
			if list == nil {
				list = element(listAtom)
			}
			list.AppendChild(inline(element(atom.Li), b.Spans))
			continue
		case Heading:
			node = inline(element(atom.Lookup([]byte("h"+strconv.Itoa(clamp(b.Level, 1, 6))))), b.Spans)
		case Blockquote:
			node = inline(element(atom.Blockquote), b.Spans)
		case Raw:
			flushList()
			sb.WriteString(b.HTML)
			continue
		case Image:
			node = element(atom.Img)
			node.Attr = append(node.Attr, html.Attribute{Key: "src", Val: b.Src})
			if b.Alt != "" {
				node.Attr = append(node.Attr, html.Attribute{Key: "alt", Val: b.Alt})
			}
		default:
			node = inline(element(atom.P), b.Spans)
		}

		flushList()
		_ = html.Render(&sb, node)
	}
	flushList()
	return sb.String()
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func inline(parent *html.Node, spans []Span) *html.Node {
	var anchor *html.Node
	for i, s := range spans {
		node := &html.Node{Type: html.TextNode, Data: s.Text}
		if s.Marks&Italic != 0 {
			em := element(atom.Em)
			em.AppendChild(node)
			node = em
		}
		if s.Marks&Bold != 0 {
			strong := element(atom.Strong)
			strong.AppendChild(node)
			node = strong
		}

		if s.Link == (Link{}) {
			anchor = nil
			parent.AppendChild(node)
			continue
		}
		// neighbours with the same link share one <a>
		if anchor == nil || spans[i-1].Link != s.Link {
			anchor = linkElement(s.Link)
			parent.AppendChild(anchor)
		}
		anchor.AppendChild(node)
	}
	return parent
}

func linkElement(l Link) *html.Node {
	a := element(atom.A)
	for _, attr := range []html.Attribute{{Key: "href", Val: l.Href}, {Key: "rel", Val: l.Rel}, {Key: "title", Val: l.Title}} {
		if attr.Val != "" {
			a.Attr = append(a.Attr, attr)
		}
	}
	return a
}

// Parse reads HTML into a Document. Paragraphs, headings, quotes, flat lists,
// images and bold, italic or linked text become editable blocks. Anything else,
// like tables, <pre>, nested lists or elements carrying other attributes, is
// kept as a Raw block and rendered back as parsed. Images nested in text
// blocks are lifted into their own blocks, and broken markup never fails.
func Parse(body string) Document {
	nodes, err := html.ParseFragment(strings.NewReader(body), &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	})
	if err != nil {
		return Document{}
	}

	var p parser
	for _, n := range nodes {
		p.block(n)
	}
	return p.doc
}

type parser struct {
	doc Document
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

func isBlank(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

func (p *parser) block(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			p.doc.Blocks = append(p.doc.Blocks, Block{Type: Paragraph, Spans: []Span{{Text: n.Data}}})
		}
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.P:
		if len(n.Attr) == 0 && inlinePlain(children(n)) {
			p.textBlock(children(n), Paragraph, 0)
			return
		}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		if len(n.Attr) == 0 && inlinePlain(children(n)) {
			level, _ := strconv.Atoi(n.Data[1:])
			p.textBlock(children(n), Heading, level)
			return
		}
	case atom.Blockquote:
		if plainContainer(n) {
			p.container(n, Blockquote)
			return
		}
	case atom.Ul:
		if plainList(n) {
			p.list(n, BulletItem)
			return
		}
	case atom.Ol:
		if plainList(n) {
			p.list(n, OrderedItem)
			return
		}
	case atom.Li:
		if plainContainer(n) {
			p.container(n, BulletItem)
			return
		}
	case atom.Img:
		if plainImage(n) {
			p.image(n)
			return
		}
	case atom.Strong, atom.B, atom.Em, atom.I, atom.Span, atom.A:
		if inlinePlain([]*html.Node{n}) {
			p.textBlock([]*html.Node{n}, Paragraph, 0)
			return
		}
	}
	p.raw(n)
}

func (p *parser) raw(n *html.Node) {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	p.doc.Blocks = append(p.doc.Blocks, Block{Type: Raw, HTML: sb.String()})
}

// inlinePlain reports whether nodes hold only text, bold, italic, links and
// images the document model can carry without loss.
func inlinePlain(nodes []*html.Node) bool {
	for _, c := range nodes {
		switch {
		case c.Type == html.TextNode:
		case c.Type != html.ElementNode:
			return false
		case c.DataAtom == atom.Img:
			if !plainImage(c) {
				return false
			}
		case c.DataAtom == atom.A:
			if !plainLink(c) || !inlinePlain(children(c)) {
				return false
			}
		case c.DataAtom == atom.Strong, c.DataAtom == atom.B, c.DataAtom == atom.Em, c.DataAtom == atom.I, c.DataAtom == atom.Span:
			if len(c.Attr) > 0 || !inlinePlain(children(c)) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func plainImage(n *html.Node) bool {
	src := false
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			src = a.Val != ""
		case "alt":
		default:
			return false
		}
	}
	return src
}

func plainLink(n *html.Node) bool {
	href := false
	for _, a := range n.Attr {
		switch a.Key {
		case "href":
			href = a.Val != ""
		case "rel", "title":
		default:
			return false
		}
	}
	return href
}

func hasParagraphs(nodes []*html.Node) bool {
	for _, c := range nodes {
		if isElement(c, atom.P) {
			return true
		}
	}
	return false
}

// plainContainer reports whether n holds either plain inline content or only
// plain <p> and <img> children.
func plainContainer(n *html.Node) bool {
	if len(n.Attr) > 0 {
		return false
	}
	kids := children(n)
	if !hasParagraphs(kids) {
		return inlinePlain(kids)
	}
	for _, c := range kids {
		switch {
		case isBlank(c):
		case isElement(c, atom.P):
			if len(c.Attr) > 0 || !inlinePlain(children(c)) {
				return false
			}
		case isElement(c, atom.Img):
			if !plainImage(c) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// plainList rejects nested lists and list attributes such as start.
func plainList(n *html.Node) bool {
	if len(n.Attr) > 0 {
		return false
	}
	for _, c := range children(n) {
		switch {
		case isBlank(c):
		case isElement(c, atom.Li):
			if !plainContainer(c) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (p *parser) list(n *html.Node, typ BlockType) {
	for _, c := range children(n) {
		if isElement(c, atom.Li) {
			p.container(c, typ)
		}
	}
}

// container handles elements that hold either inline content or <p>
// children, like <blockquote><p>..</p></blockquote> and <li><p>..</p></li>.
func (p *parser) container(n *html.Node, typ BlockType) {
	kids := children(n)
	if !hasParagraphs(kids) {
		p.textBlock(kids, typ, 0)
		return
	}
	for _, c := range kids {
		if isElement(c, atom.P) {
			p.textBlock(children(c), typ, 0)
		} else if isElement(c, atom.Img) {
			p.image(c)
		}
	}
}

func (p *parser) image(n *html.Node) {
	b := Block{Type: Image}
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			b.Src = a.Val
		case "alt":
			b.Alt = a.Val
		}
	}
	if b.Src != "" {
		p.doc.Blocks = append(p.doc.Blocks, b)
	}
}

func linkOf(n *html.Node) Link {
	var l Link
	for _, a := range n.Attr {
		switch a.Key {
		case "href":
			l.Href = a.Val
		case "rel":
			l.Rel = a.Val
		case "title":
			l.Title = a.Val
		}
	}
	return l
}

// textBlock collects the inline content of nodes into blocks of typ, splitting
// around any images it contains.
func (p *parser) textBlock(nodes []*html.Node, typ BlockType, level int) {
	current := Block{Type: typ, Level: level}
	emitted := false

	flush := func() {
		current.Spans = normalize(current.Spans)
		if len(current.Spans) > 0 {
			p.doc.Blocks = append(p.doc.Blocks, current)
			emitted = true
		}
		current = Block{Type: typ, Level: level}
	}

	var walk func(nodes []*html.Node, marks Mark, link Link)
	walk = func(nodes []*html.Node, marks Mark, link Link) {
		for _, c := range nodes {
			switch {
			case c.Type == html.TextNode:
				current.Spans = append(current.Spans, Span{Text: c.Data, Marks: marks, Link: link})
			case c.Type != html.ElementNode:
			case c.DataAtom == atom.Img:
				flush()
				p.image(c)
				emitted = true
			case c.DataAtom == atom.Strong || c.DataAtom == atom.B:
				walk(children(c), marks|Bold, link)
			case c.DataAtom == atom.Em || c.DataAtom == atom.I:
				walk(children(c), marks|Italic, link)
			case c.DataAtom == atom.A:
				walk(children(c), marks, linkOf(c))
			default:
				walk(children(c), marks, link)
			}
		}
	}
	walk(nodes, 0, Link{})

	flush()
	if !emitted {
		p.doc.Blocks = append(p.doc.Blocks, Block{Type: typ, Level: level})
	}
}
