package seo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dewco/dewsite/internal/content"
)

// Graph roles.
const (
	RoleOrganization = "organization"
	RolePerson       = "person"
	RoleWebsite      = "website"
	RolePage         = "page"
	RoleBreadcrumb   = "breadcrumb"
	RoleItemList     = "itemList"
	RoleCreativeWork = "creativeWork"
	RoleBlogPosting  = "blogPosting"
)

// Node is one schema.org object. Values are JSON-compatible: strings,
// numbers, []any and map[string]any.
type Node map[string]any

// ID returns the node's @id.
func (n Node) ID() string {
	id, _ := n["@id"].(string)
	return id
}

// Ref is a cross-reference to another node.
func Ref(id string) map[string]any {
	return map[string]any{"@id": id}
}

// Graph maps roles to nodes and remembers insertion order. Nodes reference
// each other only through Ref, so the graph can be assembled in any order.
type Graph struct {
	roles []string
	nodes map[string]Node
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]Node)}
}

// Set stores node under role. Replacing a role keeps its original position.
func (g *Graph) Set(role string, node Node) {
	if _, ok := g.nodes[role]; !ok {
		g.roles = append(g.roles, role)
	}
	g.nodes[role] = node
}

// Node returns the node stored under role.
func (g *Graph) Node(role string) (Node, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.nodes[role]
	return n, ok
}

// Roles lists roles in insertion order.
func (g *Graph) Roles() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.roles...)
}

// Len is the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.roles)
}

// Document is the JSON-LD payload: {"@context", "@graph": [nodes...]}.
func (g *Graph) Document() map[string]any {
	nodes := make([]any, 0, g.Len())
	for _, role := range g.Roles() {
		nodes = append(nodes, map[string]any(g.nodes[role]))
	}
	return map[string]any{
		"@context": "https://schema.org",
		"@graph":   nodes,
	}
}

// MarshalJSON encodes the document. Object keys are sorted by encoding/json,
// so equal graphs encode to equal bytes.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Document())
}

// IDs lists every node's own @id in role order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, g.Len())
	for _, role := range g.Roles() {
		ids = append(ids, g.nodes[role].ID())
	}
	return ids
}

// References lists every {"@id": ...} pointer found inside node bodies.
func (g *Graph) References() []string {
	var refs []string
	for _, role := range g.Roles() {
		for k, v := range g.nodes[role] {
			if k == "@id" {
				continue
			}
			refs = collectRefs(v, refs)
		}
	}
	return refs
}

func collectRefs(v any, refs []string) []string {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["@id"].(string); ok && len(t) == 1 {
			return append(refs, id)
		}
		for _, inner := range t {
			refs = collectRefs(inner, refs)
		}
	case Node:
		return collectRefs(map[string]any(t), refs)
	case []any:
		for _, inner := range t {
			refs = collectRefs(inner, refs)
		}
	}
	return refs
}

// Crumb is one breadcrumb entry.
type Crumb struct {
	Name string
	URL  string
}

// BuildBreadcrumb returns a BreadcrumbList node, or nil when no crumb has a name.
func BuildBreadcrumb(id string, crumbs []Crumb) Node {
	elements := make([]any, 0, len(crumbs))
	for _, c := range crumbs {
		name := NormalizeText(c.Name)
		if name == "" {
			continue
		}
		el := map[string]any{
			"@type":    "ListItem",
			"position": len(elements) + 1,
			"name":     name,
		}
		if c.URL != "" {
			el["item"] = c.URL
		}
		elements = append(elements, el)
	}
	if len(elements) == 0 {
		return nil
	}
	return Node{
		"@type":           "BreadcrumbList",
		"@id":             id,
		"itemListElement": elements,
	}
}

// BuildLinkedDataGraph builds the schema.org graph of a page. detail and
// summary may be nil.
func BuildLinkedDataGraph(site *Site, detail *content.Detail, summary *content.Item, route RouteContext) *Graph {
	meta := BuildPageMeta(site, detail, summary, route)
	return buildGraph(site, meta, detail, summary, route)
}

// Synthesize builds the page metadata and the graph in one pass.
func Synthesize(site *Site, detail *content.Detail, summary *content.Item, route RouteContext) (PageMeta, *Graph) {
	meta := BuildPageMeta(site, detail, summary, route)
	return meta, buildGraph(site, meta, detail, summary, route)
}

func buildGraph(site *Site, meta PageMeta, detail *content.Detail, summary *content.Item, route RouteContext) *Graph {
	cfg := ConfigFor(route.Page)
	canonical := meta.CanonicalURL
	orgID := site.ID(RoleOrganization)
	personID := site.ID(RolePerson)
	websiteID := site.ID(RoleWebsite)
	pageID := canonical + "#webpage"

	g := NewGraph()
	g.Set(RoleOrganization, organizationNode(site, orgID, personID))
	g.Set(RolePerson, personNode(site, personID, orgID))
	g.Set(RoleWebsite, websiteNode(site, websiteID, orgID))

	page := Node{
		"@type":       cfg.WebPageType,
		"@id":         pageID,
		"url":         canonical,
		"name":        meta.Title,
		"description": meta.Description,
		"isPartOf":    Ref(websiteID),
		"inLanguage":  site.Language,
		"primaryImageOfPage": map[string]any{
			"@type": "ImageObject",
			"url":   meta.Image,
		},
	}
	if route.Page == PageHome {
		page["about"] = Ref(orgID)
	}
	g.Set(RolePage, page)

	if crumb := BuildBreadcrumb(canonical+"#breadcrumb", breadcrumbTrail(site, cfg, meta, route, detail, summary)); crumb != nil {
		g.Set(RoleBreadcrumb, crumb)
		page["breadcrumb"] = Ref(crumb.ID())
	}

	switch {
	case route.Page == PageHome:
		for i, svc := range site.Services {
			name := NormalizeText(svc.Name)
			if name == "" {
				continue
			}
			role := fmt.Sprintf("service-%d", i+1)
			n := Node{
				"@type":       "Service",
				"@id":         site.ID(role),
				"name":        name,
				"serviceType": name,
				"provider":    Ref(orgID),
				"url":         site.URL("/"),
			}
			if d := NormalizeText(svc.Description); d != "" {
				n["description"] = d
			}
			g.Set(role, n)
		}

	case route.Page.IsListing():
		listID := canonical + "#itemlist"
		elements := make([]any, 0, len(route.Items))
		for i, it := range route.Items {
			elements = append(elements, map[string]any{
				"@type":    "ListItem",
				"position": i + 1,
				"name":     NormalizeText(it.Title),
				"url":      site.URL(it.Link),
			})
		}
		g.Set(RoleItemList, Node{
			"@type":           "ItemList",
			"@id":             listID,
			"name":            cfg.Title,
			"numberOfItems":   len(elements),
			"itemListElement": elements,
		})
		page["mainEntity"] = Ref(listID)

	case route.Page.IsDetail() && (detail != nil || summary != nil):
		role, typ, frag := RoleCreativeWork, "CreativeWork", "#creativework"
		if route.Page == PageStoryDetail {
			role, typ, frag = RoleBlogPosting, "BlogPosting", "#blogposting"
		}
		var fields content.Record
		if detail != nil {
			fields = detail.Fields
		}
		name := pageTitle(cfg, fields, summary, route)
		published, modified := timestamps(fields, summary)

		work := Node{
			"@type":            typ,
			"@id":              canonical + frag,
			"name":             NormalizeText(name),
			"headline":         Truncate(name, 110),
			"description":      meta.Description,
			"url":              canonical,
			"image":            meta.Image,
			"inLanguage":       site.Language,
			"author":           Ref(personID),
			"publisher":        Ref(orgID),
			"isPartOf":         Ref(websiteID),
			"mainEntityOfPage": Ref(pageID),
		}
		if route.Page == PagePortfolioDetail {
			work["creator"] = Ref(orgID)
		}
		if published != "" {
			work["datePublished"] = published
		}
		if modified != "" {
			work["dateModified"] = modified
		}
		if meta.Article != nil && meta.Article.Section != "" {
			work["articleSection"] = meta.Article.Section
		}
		if tags := UniqueKeywords(contentTags(detail, summary)); len(tags) > 0 {
			work["keywords"] = strings.Join(tags, ", ")
		}
		if detail != nil {
			if stack := detail.TechStack(); len(stack) > 0 {
				work["about"] = toAnySlice(stack)
			}
			if client := detail.Fields.FirstString("client.name", "client"); client != "" {
				work["sourceOrganization"] = map[string]any{"@type": "Organization", "name": client}
			}
		}
		g.Set(role, work)
		page["mainEntity"] = Ref(work.ID())
	}

	return g
}

func breadcrumbTrail(site *Site, cfg PageConfig, meta PageMeta, route RouteContext, detail *content.Detail, summary *content.Item) []Crumb {
	trail := []Crumb{{Name: "Home", URL: CanonicalURL(site.Origin, "/")}}
	switch {
	case route.Page == PageHome:
	case route.Page.IsDetail():
		trail = append(trail, Crumb{Name: cfg.Section, URL: CanonicalURL(site.Origin, cfg.SectionPath)})
		if detail != nil || summary != nil {
			var fields content.Record
			if detail != nil {
				fields = detail.Fields
			}
			trail = append(trail, Crumb{Name: pageTitle(cfg, fields, summary, route), URL: meta.CanonicalURL})
		}
	default:
		trail = append(trail, Crumb{Name: cfg.Title, URL: meta.CanonicalURL})
	}
	return trail
}

func organizationNode(site *Site, id, personID string) Node {
	n := Node{
		"@type":       "CreativeAgency",
		"@id":         id,
		"name":        site.OrganizationName,
		"url":         site.Origin,
		"logo":        site.URL(site.DefaultImage),
		"description": site.DefaultDescription,
		"founder":     Ref(personID),
	}
	if site.Email != "" {
		n["email"] = site.Email
		n["contactPoint"] = []any{map[string]any{
			"@type":       "ContactPoint",
			"contactType": "business inquiries",
			"email":       site.Email,
		}}
	}
	if len(site.SameAs) > 0 {
		n["sameAs"] = toAnySlice(site.SameAs)
	}
	if len(site.KnowsAbout) > 0 {
		n["knowsAbout"] = toAnySlice(site.KnowsAbout)
	}
	return n
}

func personNode(site *Site, id, orgID string) Node {
	return Node{
		"@type":    "Person",
		"@id":      id,
		"name":     site.Author,
		"url":      site.Origin,
		"jobTitle": "Founder",
		"worksFor": Ref(orgID),
	}
}

func websiteNode(site *Site, id, orgID string) Node {
	return Node{
		"@type":       "WebSite",
		"@id":         id,
		"name":        site.Name,
		"url":         site.Origin,
		"description": site.DefaultDescription,
		"publisher":   Ref(orgID),
		"inLanguage":  site.Language,
	}
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
