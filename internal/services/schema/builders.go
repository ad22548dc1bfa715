package schema

import (
	"fmt"
	"strings"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
)

// maxInlineLocations is the threshold above which the homepage graph stops
// inlining every location and falls back to the primary plus an areaServed
// roll-up.
const maxInlineLocations = 3

// builderInput carries everything a node builder may need. Description has
// already been resolved through the fallback chain by the service.
type builderInput struct {
	Page        page.Page
	Account     account.Account
	Locations   []location.Location
	Description string
}

type node = map[string]any

func siteURL(acct account.Account) string {
	return "https://" + acct.Domain
}

func orgID(acct account.Account) string {
	return siteURL(acct) + "/#organization"
}

func webPageNode(in builderInput, pageType string) node {
	n := node{
		"@type": pageType,
		"@id":   in.Page.URL + "#webpage",
		"url":   in.Page.URL,
		"name":  in.Page.Title,
		"about": node{"@id": orgID(in.Account)},
	}
	if in.Description != "" {
		n["description"] = in.Description
	}
	return n
}

func organizationNode(in builderInput) node {
	return node{
		"@type": "MedicalClinic",
		"@id":   orgID(in.Account),
		"name":  in.Account.Name,
		"url":   siteURL(in.Account),
	}
}

func localBusinessNode(acct account.Account, loc location.Location) node {
	n := node{
		"@type": "MedicalClinic",
		"@id":   siteURL(acct) + "/#location-" + loc.ID,
		"name":  loc.Name,
		"address": node{
			"@type":           "PostalAddress",
			"streetAddress":   loc.Street,
			"addressLocality": loc.City,
			"addressRegion":   loc.Region,
			"postalCode":      loc.PostalCode,
			"addressCountry":  loc.Country,
		},
		"parentOrganization": node{"@id": orgID(acct)},
	}
	if loc.Phone != "" {
		n["telephone"] = loc.Phone
	}
	if loc.Latitude != 0 || loc.Longitude != 0 {
		n["geo"] = node{
			"@type":     "GeoCoordinates",
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
		}
	}
	if loc.BookingURL != "" {
		n["potentialAction"] = node{
			"@type":  "ReserveAction",
			"target": loc.BookingURL,
		}
	}
	return n
}

// buildGraph dispatches to the page type's builder and returns the @graph
// node list.
func buildGraph(in builderInput) ([]node, error) {
	switch in.Page.PageType {
	case page.TypeHomepage:
		return buildHomepage(in), nil
	case page.TypeProcedure:
		return buildProcedure(in), nil
	case page.TypeService:
		return buildService(in), nil
	case page.TypeTeamMember:
		return buildTeamMember(in), nil
	case page.TypeAbout:
		return buildAbout(in), nil
	case page.TypeContact:
		return buildContact(in), nil
	case page.TypeBlogPost:
		return buildBlogPost(in), nil
	case page.TypeFAQ:
		return buildFAQ(in)
	case page.TypeLocation:
		return buildLocationPage(in), nil
	default:
		return nil, fmt.Errorf("no builder for page type %s", in.Page.PageType)
	}
}

// buildHomepage emits the organization anchor plus its locations, applying
// the inline-vs-rollup threshold.
func buildHomepage(in builderInput) []node {
	org := organizationNode(in)
	if in.Description != "" {
		org["description"] = in.Description
	}

	complete := completeLocations(in.Locations)
	graph := []node{org}

	if len(complete) <= maxInlineLocations {
		for _, loc := range complete {
			graph = append(graph, localBusinessNode(in.Account, loc))
		}
	} else {
		var primary *location.Location
		var areas []string
		for i := range complete {
			if complete[i].Primary {
				primary = &complete[i]
			}
			areas = append(areas, complete[i].City)
		}
		if primary == nil {
			primary = &complete[0]
		}
		graph = append(graph, localBusinessNode(in.Account, *primary))
		org["areaServed"] = dedupeStrings(areas)
	}

	graph = append(graph, webPageNode(in, "WebPage"))
	return graph
}

func buildProcedure(in builderInput) []node {
	proc := node{
		"@type":    "MedicalProcedure",
		"@id":      in.Page.URL + "#procedure",
		"name":     in.Page.Title,
		"provider": node{"@id": orgID(in.Account)},
	}
	if in.Description != "" {
		proc["description"] = in.Description
	}
	if in.Account.Vertical != "" {
		proc["relevantSpecialty"] = in.Account.Vertical
	}
	return []node{organizationNode(in), proc, webPageNode(in, "WebPage")}
}

func buildService(in builderInput) []node {
	svc := node{
		"@type":    "Service",
		"@id":      in.Page.URL + "#service",
		"name":     in.Page.Title,
		"provider": node{"@id": orgID(in.Account)},
	}
	if in.Description != "" {
		svc["description"] = in.Description
	}
	return []node{organizationNode(in), svc, webPageNode(in, "WebPage")}
}

func buildTeamMember(in builderInput) []node {
	person := node{
		"@type":    "Person",
		"@id":      in.Page.URL + "#person",
		"name":     personName(in.Page.Title),
		"worksFor": node{"@id": orgID(in.Account)},
		"url":      in.Page.URL,
	}
	if in.Description != "" {
		person["description"] = in.Description
	}
	if strings.HasPrefix(strings.ToLower(person["name"].(string)), "dr") {
		person["@type"] = "Physician"
	}
	return []node{organizationNode(in), person, webPageNode(in, "ProfilePage")}
}

func buildAbout(in builderInput) []node {
	return []node{organizationNode(in), webPageNode(in, "AboutPage")}
}

func buildContact(in builderInput) []node {
	graph := []node{organizationNode(in)}
	for _, loc := range completeLocations(in.Locations) {
		graph = append(graph, localBusinessNode(in.Account, loc))
	}
	return append(graph, webPageNode(in, "ContactPage"))
}

func buildBlogPost(in builderInput) []node {
	post := node{
		"@type":    "BlogPosting",
		"@id":      in.Page.URL + "#post",
		"headline": in.Page.Title,
		"url":      in.Page.URL,
		"publisher": node{
			"@id": orgID(in.Account),
		},
	}
	if in.Description != "" {
		post["description"] = in.Description
	}
	if !in.Page.FetchedAt.IsZero() {
		post["dateModified"] = in.Page.FetchedAt.Format("2006-01-02")
	}
	return []node{organizationNode(in), post}
}

func buildFAQ(in builderInput) ([]node, error) {
	pairs := extractFAQs(in.Page.Headings, in.Page.Excerpt)
	if len(pairs) < minFAQPairs {
		return nil, fmt.Errorf("found %d question/answer pairs, need at least %d", len(pairs), minFAQPairs)
	}

	entities := make([]node, 0, len(pairs))
	for _, pair := range pairs {
		entities = append(entities, node{
			"@type": "Question",
			"name":  pair.Question,
			"acceptedAnswer": node{
				"@type": "Answer",
				"text":  pair.Answer,
			},
		})
	}

	faq := node{
		"@type":      "FAQPage",
		"@id":        in.Page.URL + "#faq",
		"url":        in.Page.URL,
		"mainEntity": entities,
	}
	return []node{organizationNode(in), faq}, nil
}

// buildLocationPage emits the LocalBusiness for the location the page
// describes, matched by name against the page title, falling back to the
// primary.
func buildLocationPage(in builderInput) []node {
	complete := completeLocations(in.Locations)
	matched := complete[0]
	title := strings.ToLower(in.Page.Title)
	for _, loc := range complete {
		if loc.Primary {
			matched = loc
		}
	}
	for _, loc := range complete {
		if strings.Contains(title, strings.ToLower(loc.Name)) ||
			strings.Contains(title, strings.ToLower(loc.City)) {
			matched = loc
			break
		}
	}
	return []node{organizationNode(in), localBusinessNode(in.Account, matched), webPageNode(in, "WebPage")}
}

// personName strips the common "Name | Practice" and "Name - Title" suffixes
// from a team page title.
func personName(title string) string {
	for _, sep := range []string{"|", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return strings.TrimSpace(title)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
