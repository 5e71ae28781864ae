package head

import (
	"encoding/json"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dewco/dewsite/internal/seo"
)

// LinkedDataAttr marks the one JSON-LD script this package owns.
const LinkedDataAttr = "data-seo-jsonld"

// ApplyPageMeta reconciles title, meta tags and the canonical link with
// meta. article:* tags are removed unless meta is an article.
func (d *Document) ApplyPageMeta(meta seo.PageMeta) {
	d.SetTitle(meta.Title)
	for _, t := range meta.Tags() {
		d.SetMeta(t.Attr, t.Key, t.Content)
	}
	d.SetCanonical(meta.CanonicalURL)

	if !meta.IsArticle() {
		d.RemoveMetaPrefix("property", "article:")
		return
	}
	a := meta.Article
	d.SetMeta("property", "article:author", a.Author)
	d.SetMeta("property", "article:section", a.Section)
	d.SetMeta("property", "article:published_time", a.PublishedTime)
	d.SetMeta("property", "article:modified_time", a.ModifiedTime)
	d.setMulti("property", "article:tag", a.Tags)
}

// ApplyLinkedData upserts the JSON-LD script. A nil graph removes it.
func (d *Document) ApplyLinkedData(g *seo.Graph) error {
	scripts := d.linkedDataScripts()
	if g == nil {
		for _, n := range scripts {
			d.head.RemoveChild(n)
		}
		return nil
	}

	payload, err := json.Marshal(g)
	if err != nil {
		return err
	}

	var script *html.Node
	if len(scripts) == 0 {
		script = element(atom.Script,
			html.Attribute{Key: "type", Val: "application/ld+json"},
			html.Attribute{Key: LinkedDataAttr, Val: "true"})
		d.head.AppendChild(script)
	} else {
		script = scripts[0]
		setAttr(script, "type", "application/ld+json")
		for _, n := range scripts[1:] {
			d.head.RemoveChild(n)
		}
	}
	for c := script.FirstChild; c != nil; {
		next := c.NextSibling
		script.RemoveChild(c)
		c = next
	}
	// json.Marshal escapes <, > and &, so the payload cannot close the script.
	script.AppendChild(&html.Node{Type: html.TextNode, Data: string(payload)})
	return nil
}

// LinkedData returns the JSON-LD payload currently in the head.
func (d *Document) LinkedData() string {
	scripts := d.linkedDataScripts()
	if len(scripts) == 0 {
		return ""
	}
	return textOf(scripts[0])
}

// Apply runs ApplyPageMeta then ApplyLinkedData.
func (d *Document) Apply(meta seo.PageMeta, g *seo.Graph) error {
	d.ApplyPageMeta(meta)
	return d.ApplyLinkedData(g)
}

func (d *Document) linkedDataScripts() []*html.Node {
	var out []*html.Node
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Script {
			if _, ok := getAttr(c, LinkedDataAttr); ok {
				out = append(out, c)
			}
		}
	}
	return out
}
