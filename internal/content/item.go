package content

import (
	"fmt"
	"strings"
)

// Kind is a content family sharing the same resolution pattern.
type Kind string

const (
	KindPortfolio   Kind = "portfolio"
	KindStory       Kind = "story"
	KindTestimonial Kind = "testimonial"
)

// Collection names in the document store.
const (
	CollectionPortfolios   = "portfolios"
	CollectionProjects     = "projects"
	CollectionStories      = "stories"
	CollectionStoryDetails = "story_details"
	CollectionTestimonials = "testimonials"
)

// ParseKind accepts singular, plural and collection spellings.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portfolio", "portfolios", "project", "projects":
		return KindPortfolio, true
	case "story", "stories":
		return KindStory, true
	case "testimonial", "testimonials":
		return KindTestimonial, true
	}
	return "", false
}

// SummaryCollection is where the kind's list records live.
func (k Kind) SummaryCollection() string {
	switch k {
	case KindPortfolio:
		return CollectionPortfolios
	case KindStory:
		return CollectionStories
	case KindTestimonial:
		return CollectionTestimonials
	}
	return ""
}

// DetailCollection is where the kind's full records live.
func (k Kind) DetailCollection() string {
	switch k {
	case KindPortfolio:
		return CollectionProjects
	case KindStory:
		return CollectionStoryDetails
	}
	return ""
}

// BasePath is the route prefix detail pages of this kind are served under.
func (k Kind) BasePath() string {
	switch k {
	case KindPortfolio:
		return "/portfolio"
	case KindStory:
		return "/stories"
	}
	return ""
}

// Label is the human name of the kind's listing.
func (k Kind) Label() string {
	switch k {
	case KindPortfolio:
		return "Portfolio"
	case KindStory:
		return "Stories"
	case KindTestimonial:
		return "Testimonials"
	}
	return ""
}

// Image is a picture reference with alt text.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Item is a summary record shown in listings.
type Item struct {
	Kind          Kind     `json:"kind"`
	Key           string   `json:"key"`
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Headline      string   `json:"headline,omitempty"`
	ShortHeadline string   `json:"short_headline,omitempty"`
	Excerpt       string   `json:"excerpt,omitempty"`
	Category      string   `json:"category,omitempty"`
	Date          string   `json:"date,omitempty"`
	Link          string   `json:"link"`
	SortOrder     *float64 `json:"sort_order,omitempty"`
	Images        []Image  `json:"images,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Image returns the first image source, if any.
func (i Item) Image() string {
	for _, img := range i.Images {
		if img.Src != "" {
			return img.Src
		}
	}
	return ""
}

// Detail is the full record behind an item. Fields carries every schema
// variant seen in the wild; use the accessors for the canonical shapes.
type Detail struct {
	Kind   Kind   `json:"kind"`
	Key    string `json:"key"`
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Fields Record `json:"fields"`
}

// Testimonial is a short client quote.
type Testimonial struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	Text string `json:"text"`
}

// ItemFromDocument decodes a summary record defensively.
func ItemFromDocument(kind Kind, doc Document) Item {
	data := doc.Data
	id := data.String("id")
	if id == "" {
		id = doc.Key
	}

	item := Item{
		Kind:          kind,
		Key:           doc.Key,
		ID:            id,
		Slug:          DeriveSlug(data, doc.Key),
		Headline:      data.String("headline"),
		ShortHeadline: data.FirstString("short_headline", "shortHeadline"),
		Category:      data.String("category"),
		Date:          data.FirstString("date", "published_at"),
		Link:          data.String("link"),
		Images:        adaptImages(data),
		Tags:          data.Strings("tags"),
	}

	switch kind {
	case KindPortfolio:
		item.Title = data.FirstString("name", "title", "headline")
		item.Excerpt = data.FirstString("tagline", "excerpt", "short_headline")
	default:
		item.Title = data.FirstString("title", "headline", "name")
		item.Excerpt = data.FirstString("excerpt", "summary", "tagline")
	}

	for _, path := range []string{"sort_order", "sortOrder", "order"} {
		if f, ok := data.Float(path); ok {
			item.SortOrder = &f
			break
		}
	}

	if item.Link == "" && item.Slug != "" {
		item.Link = kind.BasePath() + "/" + item.Slug
	}
	return item
}

// DetailFromDocument decodes a detail record.
func DetailFromDocument(kind Kind, doc Document) *Detail {
	id := doc.Data.String("id")
	if id == "" {
		id = doc.Key
	}
	return &Detail{
		Kind:   kind,
		Key:    doc.Key,
		ID:     id,
		Slug:   DeriveSlug(doc.Data, doc.Key),
		Fields: doc.Data,
	}
}

// TestimonialsFromDocuments flattens both stored shapes: one quote per
// document, or a wrapper document holding a "testimonials" array.
func TestimonialsFromDocuments(docs []Document) []Testimonial {
	var out []Testimonial
	add := func(r Record) {
		t := Testimonial{
			Name: r.FirstString("name", "author"),
			Role: r.FirstString("role", "title", "company"),
			Text: r.FirstString("text", "quote", "body"),
		}
		if t.Text != "" {
			out = append(out, t)
		}
	}
	for _, doc := range docs {
		if list, ok := doc.Data["testimonials"].([]any); ok {
			for _, v := range list {
				if m, ok := asMap(v); ok {
					add(Record(m))
				}
			}
			continue
		}
		add(doc.Data)
	}
	return out
}

// BodyImages returns the detail's in-body images. The canonical shape is a
// "body_images" list; the legacy "body-image-1", "body-image-2", ... fields
// are read when the list is absent.
func (d *Detail) BodyImages() []Image {
	if d == nil {
		return nil
	}
	if v, ok := d.Fields.Get("body_images"); ok {
		return imageList(v)
	}
	var out []Image
	for i := 1; ; i++ {
		v, ok := d.Fields.Get(fmt.Sprintf("body-image-%d", i))
		if !ok {
			break
		}
		if img, ok := toImage(v); ok {
			out = append(out, img)
		}
	}
	return out
}

// TechStack returns a flat tool list. The canonical shape is a list of
// strings; the legacy object form ({"frontend": [...], "backend": "Go"})
// is flattened in sorted key order.
func (d *Detail) TechStack() []string {
	if d == nil {
		return nil
	}
	if nested := d.Fields.Record("tech_stack"); nested != nil {
		var out []string
		for _, k := range nested.Keys() {
			out = append(out, nested.Strings(k)...)
		}
		return out
	}
	return d.Fields.Strings("tech_stack")
}

// Images returns the detail's gallery images, adapting legacy fields.
func (d *Detail) Images() []Image {
	if d == nil {
		return nil
	}
	return adaptImages(d.Fields)
}

// Tags returns the detail's tags merged with meta.tags, in order.
func (d *Detail) Tags() []string {
	if d == nil {
		return nil
	}
	return append(d.Fields.Strings("tags"), d.Fields.Strings("meta.tags")...)
}

// adaptImages reads "images" when present, else the legacy image-1/image-2
// and single "image" fields.
func adaptImages(data Record) []Image {
	if v, ok := data.Get("images"); ok {
		return imageList(v)
	}
	var out []Image
	for _, key := range []string{"image-1", "image-2", "image1", "image2", "image"} {
		if v, ok := data.Get(key); ok {
			if img, ok := toImage(v); ok {
				out = append(out, img)
			}
		}
	}
	return out
}

// ImageAt reads an image stored at path as a bare URL or a {src|url|href, alt} object.
func (r Record) ImageAt(path string) (Image, bool) {
	v, ok := r.Get(path)
	if !ok {
		return Image{}, false
	}
	if list, ok := v.([]any); ok {
		imgs := imageList(list)
		if len(imgs) == 0 {
			return Image{}, false
		}
		return imgs[0], true
	}
	return toImage(v)
}

func imageList(v any) []Image {
	list, ok := v.([]any)
	if !ok {
		if img, ok := toImage(v); ok {
			return []Image{img}
		}
		return nil
	}
	var out []Image
	for _, entry := range list {
		if img, ok := toImage(entry); ok {
			out = append(out, img)
		}
	}
	return out
}

func toImage(v any) (Image, bool) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return Image{Src: s}, true
		}
	default:
		if m, ok := asMap(v); ok {
			r := Record(m)
			img := Image{Src: r.FirstString("src", "url", "href"), Alt: r.String("alt")}
			if img.Src != "" {
				return img, true
			}
		}
	}
	return Image{}, false
}
