// Package head reconciles page metadata into an HTML document's <head>.
// Every mutation is keyed: a tag is found by its (attribute, key) pair and
// updated or removed in place, so applying metadata any number of times
// never leaves duplicates behind.
package head

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const shell = `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title></title></head><body></body></html>`

// Document is one parsed HTML document. It is not safe for concurrent use.
type Document struct {
	root *html.Node
	head *html.Node
}

// New returns an empty document with a minimal head.
func New() *Document {
	d, err := ParseString(shell)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse reads an HTML document. The parser always synthesizes <head>.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	h := findElement(root, atom.Head)
	if h == nil {
		return nil, errors.New("document has no head")
	}
	return &Document{root: root, head: h}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Head returns the <head> node.
func (d *Document) Head() *html.Node {
	return d.head
}

// Body returns the <body> node, creating it if missing.
func (d *Document) Body() *html.Node {
	if b := findElement(d.root, atom.Body); b != nil {
		return b
	}
	b := element(atom.Body)
	d.head.Parent.AppendChild(b)
	return b
}

// Title returns the text of <title>.
func (d *Document) Title() string {
	t := d.child(atom.Title)
	if t == nil {
		return ""
	}
	return textOf(t)
}

// SetTitle replaces the text of <title>, creating it if missing.
func (d *Document) SetTitle(title string) {
	t := d.child(atom.Title)
	if t == nil {
		t = element(atom.Title)
		d.head.AppendChild(t)
	}
	for c := t.FirstChild; c != nil; {
		next := c.NextSibling
		t.RemoveChild(c)
		c = next
	}
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// SetMeta upserts <meta attr="key" content="value">. Duplicates of the key
// are removed. Empty content removes the tag.
func (d *Document) SetMeta(attr, key, value string) {
	if value == "" {
		d.RemoveMeta(attr, key)
		return
	}
	matches := d.metas(attr, key)
	if len(matches) == 0 {
		d.head.AppendChild(element(atom.Meta,
			html.Attribute{Key: attr, Val: key},
			html.Attribute{Key: "content", Val: value}))
		return
	}
	setAttr(matches[0], "content", value)
	for _, n := range matches[1:] {
		d.head.RemoveChild(n)
	}
}

// setMulti replaces every tag of key with one tag per non-blank value.
func (d *Document) setMulti(attr, key string, values []string) {
	d.RemoveMeta(attr, key)
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			continue
		}
		d.head.AppendChild(element(atom.Meta,
			html.Attribute{Key: attr, Val: key},
			html.Attribute{Key: "content", Val: v}))
	}
}

// RemoveMeta removes every <meta attr="key"> and returns how many were removed.
func (d *Document) RemoveMeta(attr, key string) int {
	matches := d.metas(attr, key)
	for _, n := range matches {
		d.head.RemoveChild(n)
	}
	return len(matches)
}

// RemoveMetaPrefix removes every <meta attr=...> whose key starts with prefix.
func (d *Document) RemoveMetaPrefix(attr, prefix string) int {
	var doomed []*html.Node
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Meta {
			if v, ok := getAttr(c, attr); ok && strings.HasPrefix(v, prefix) {
				doomed = append(doomed, c)
			}
		}
	}
	for _, n := range doomed {
		d.head.RemoveChild(n)
	}
	return len(doomed)
}

// MetaContent returns the content of the first <meta attr="key">.
func (d *Document) MetaContent(attr, key string) (string, bool) {
	matches := d.metas(attr, key)
	if len(matches) == 0 {
		return "", false
	}
	v, _ := getAttr(matches[0], "content")
	return v, true
}

// MetaValues returns the content of every <meta attr="key"> in order.
func (d *Document) MetaValues(attr, key string) []string {
	var out []string
	for _, n := range d.metas(attr, key) {
		v, _ := getAttr(n, "content")
		out = append(out, v)
	}
	return out
}

// Count returns how many head elements carry attr="key", for example
// ("property", "og:title") or ("rel", "canonical").
func (d *Document) Count(attr, key string) int {
	n := 0
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if v, ok := getAttr(c, attr); ok && v == key {
			n++
		}
	}
	return n
}

// Canonical returns the href of <link rel="canonical">.
func (d *Document) Canonical() string {
	for _, n := range d.canonicals() {
		v, _ := getAttr(n, "href")
		return v
	}
	return ""
}

// SetCanonical upserts the single <link rel="canonical">. Empty href removes it.
func (d *Document) SetCanonical(href string) {
	links := d.canonicals()
	if href == "" {
		for _, n := range links {
			d.head.RemoveChild(n)
		}
		return
	}
	if len(links) == 0 {
		d.head.AppendChild(element(atom.Link,
			html.Attribute{Key: "rel", Val: "canonical"},
			html.Attribute{Key: "href", Val: href}))
		return
	}
	setAttr(links[0], "href", href)
	for _, n := range links[1:] {
		d.head.RemoveChild(n)
	}
}

// Render writes the whole document.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the whole document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// RenderHead renders the children of <head>.
func (d *Document) RenderHead() (string, error) {
	var buf bytes.Buffer
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (d *Document) metas(attr, key string) []*html.Node {
	var out []*html.Node
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Meta {
			if v, ok := getAttr(c, attr); ok && v == key {
				out = append(out, c)
			}
		}
	}
	return out
}

func (d *Document) canonicals() []*html.Node {
	var out []*html.Node
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Link {
			if v, ok := getAttr(c, "rel"); ok && strings.EqualFold(v, "canonical") {
				out = append(out, c)
			}
		}
	}
	return out
}

func (d *Document) child(a atom.Atom) *html.Node {
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
