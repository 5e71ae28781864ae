package seo

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dewco/dewsite/internal/content"
)

// requireReferentialIntegrity checks that every reference names exactly one node.
func requireReferentialIntegrity(t *testing.T, g *Graph) {
	t.Helper()
	count := make(map[string]int)
	for _, id := range g.IDs() {
		require.NotEmpty(t, id)
		count[id]++
	}
	for id, n := range count {
		require.Equal(t, 1, n, "duplicate @id %s", id)
	}
	for _, ref := range g.References() {
		require.Equal(t, 1, count[ref], "dangling reference %s", ref)
	}
}

func graphFixtures() map[string]struct {
	detail  *content.Detail
	summary *content.Item
	route   RouteContext
} {
	items := []content.Item{
		{Title: "Beta", Link: "/portfolio/beta"},
		{Title: "Acme", Link: "/portfolio/acme"},
	}
	detail := &content.Detail{Slug: "acme", Fields: content.Record{"name": "Acme", "tech_stack": []any{"Go"}, "client": "Acme Inc"}}
	return map[string]struct {
		detail  *content.Detail
		summary *content.Item
		route   RouteContext
	}{
		"home":             {nil, nil, RouteContext{Page: PageHome, Path: "/"}},
		"about":            {nil, nil, RouteContext{Page: PageAbout, Path: "/about"}},
		"portfolio list":   {nil, nil, RouteContext{Page: PagePortfolioList, Items: items}},
		"portfolio detail": {detail, &items[1], RouteContext{Page: PagePortfolioDetail, Slug: "acme"}},
		"story detail":     {&content.Detail{Slug: "s", Fields: content.Record{"title": "S"}}, nil, RouteContext{Page: PageStoryDetail, Slug: "s"}},
		"missing detail":   {nil, nil, RouteContext{Page: PageStoryDetail, Slug: "gone"}},
		"not found":        {nil, nil, RouteContext{Page: PageNotFound, Path: "/x"}},
	}
}

func TestBuildLinkedDataGraph_ReferentialIntegrity(t *testing.T) {
	site := testSite()
	for name, f := range graphFixtures() {
		t.Run(name, func(t *testing.T) {
			g := BuildLinkedDataGraph(site, f.detail, f.summary, f.route)

			for _, role := range []string{RoleOrganization, RolePerson, RoleWebsite, RolePage} {
				_, ok := g.Node(role)
				require.True(t, ok, "missing %s", role)
			}
			requireReferentialIntegrity(t, g)
		})
	}
}

func TestBuildLinkedDataGraph_FixedIDs(t *testing.T) {
	g := BuildLinkedDataGraph(testSite(), nil, nil, RouteContext{Page: PageAbout})

	org, _ := g.Node(RoleOrganization)
	person, _ := g.Node(RolePerson)
	website, _ := g.Node(RoleWebsite)
	require.Equal(t, "https://dewco.tech/#organization", org.ID())
	require.Equal(t, "https://dewco.tech/#person", person.ID())
	require.Equal(t, "https://dewco.tech/#website", website.ID())
	require.Equal(t, "CreativeAgency", org["@type"])
}

func TestBuildLinkedDataGraph_Home(t *testing.T) {
	site := testSite()
	g := BuildLinkedDataGraph(site, nil, nil, RouteContext{Page: PageHome})

	require.Equal(t, 4+len(site.Services)+1, g.Len(), "org, person, website, page, breadcrumb and services")
	svc, ok := g.Node("service-1")
	require.True(t, ok)
	require.Equal(t, "Service", svc["@type"])
	require.Equal(t, Ref(site.ID(RoleOrganization)), svc["provider"])
}

func TestBuildLinkedDataGraph_Listing(t *testing.T) {
	items := []content.Item{
		{Title: "C", Link: "/stories/c"},
		{Title: "B", Link: "/stories/b"},
		{Title: "A", Link: "/stories/a"},
	}
	g := BuildLinkedDataGraph(testSite(), nil, nil, RouteContext{Page: PageStoryList, Items: items})

	list, ok := g.Node(RoleItemList)
	require.True(t, ok)
	require.Equal(t, "ItemList", list["@type"])
	elements := list["itemListElement"].([]any)
	require.Len(t, elements, 3)
	for i, want := range []string{"C", "B", "A"} {
		el := elements[i].(map[string]any)
		require.Equal(t, want, el["name"])
		require.Equal(t, i+1, el["position"])
		require.True(t, strings.HasPrefix(el["url"].(string), "https://dewco.tech/stories/"))
	}

	page, _ := g.Node(RolePage)
	require.Equal(t, "CollectionPage", page["@type"])
	require.Equal(t, Ref(list.ID()), page["mainEntity"])
}

func TestBuildLinkedDataGraph_DetailDates(t *testing.T) {
	detail := &content.Detail{Slug: "launch", Fields: content.Record{
		"title":        "Launch",
		"meta":         map[string]any{"modified": "2024-05-05"},
		"published_at": "2024-05-01",
	}}
	g := BuildLinkedDataGraph(testSite(), detail, nil, RouteContext{Page: PageStoryDetail})

	post, ok := g.Node(RoleBlogPosting)
	require.True(t, ok)
	require.Equal(t, "https://dewco.tech/stories/launch#blogposting", post.ID())
	require.Equal(t, "2024-05-01", post["datePublished"])
	require.Equal(t, "2024-05-05", post["dateModified"])

	page, _ := g.Node(RolePage)
	require.Equal(t, Ref(post.ID()), page["mainEntity"])
}

func TestBuildLinkedDataGraph_SummaryDate(t *testing.T) {
	summary := &content.Item{Slug: "old", Title: "Old", Date: "2020-01-01"}
	g := BuildLinkedDataGraph(testSite(), &content.Detail{Fields: content.Record{}}, summary, RouteContext{Page: PageStoryDetail})

	post, _ := g.Node(RoleBlogPosting)
	require.Equal(t, "2020-01-01", post["datePublished"])
	require.Equal(t, "2020-01-01", post["dateModified"])
}

func TestBuildLinkedDataGraph_MissingDetail(t *testing.T) {
	site := testSite()
	g := BuildLinkedDataGraph(site, nil, nil, RouteContext{Page: PagePortfolioDetail, Slug: "gone"})

	_, hasWork := g.Node(RoleCreativeWork)
	require.False(t, hasWork)
	page, _ := g.Node(RolePage)
	require.Equal(t, site.DefaultDescription, page["description"])
}

func TestBuildBreadcrumb(t *testing.T) {
	require.Nil(t, BuildBreadcrumb("x#breadcrumb", nil))
	require.Nil(t, BuildBreadcrumb("x#breadcrumb", []Crumb{{Name: "  "}, {Name: ""}}))

	n := BuildBreadcrumb("x#breadcrumb", []Crumb{{Name: "Home", URL: "/"}, {Name: " "}, {Name: "Stories", URL: "/stories"}})
	elements := n["itemListElement"].([]any)
	require.Len(t, elements, 2)
	require.Equal(t, 2, elements[1].(map[string]any)["position"])
}

func TestGraph_DeterministicJSON(t *testing.T) {
	site := testSite()
	f := graphFixtures()["portfolio detail"]

	a, err := json.Marshal(BuildLinkedDataGraph(site, f.detail, f.summary, f.route))
	require.NoError(t, err)
	b, err := json.Marshal(BuildLinkedDataGraph(site, f.detail, f.summary, f.route))
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(a, &doc))
	require.Equal(t, "https://schema.org", doc["@context"])
	require.NotEmpty(t, doc["@graph"])
}

func TestGraph_SetKeepsPosition(t *testing.T) {
	g := NewGraph()
	g.Set("a", Node{"@id": "1"})
	g.Set("b", Node{"@id": "2"})
	g.Set("a", Node{"@id": "3"})

	require.Equal(t, []string{"a", "b"}, g.Roles())
	require.Equal(t, []string{"3", "2"}, g.IDs())
}

func TestSynthesize_EndToEndTitleAndID(t *testing.T) {
	detail := &content.Detail{Kind: content.KindPortfolio, Key: "acme_rebrand", ID: "acme_rebrand", Slug: "acme-rebrand",
		Fields: content.Record{"id": "acme_rebrand", "name": "Acme Rebrand", "sort_order": float64(1)}}

	meta, g := Synthesize(testSite(), detail, nil, RouteContext{Page: PagePortfolioDetail, Slug: "acme-rebrand"})

	require.True(t, strings.HasSuffix(meta.Title, "| DewCo"))
	work, ok := g.Node(RoleCreativeWork)
	require.True(t, ok)
	require.Equal(t, "CreativeWork", work["@type"])
	require.Contains(t, work.ID(), "acme-rebrand")
}
