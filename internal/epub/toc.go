package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The navigation document comes in two shapes: the legacy NCX format
// (a navPoint tree) and the EPUB 3 nav document (an XHTML file with
// anchors inside a nav landmark). Both are flattened into one ordered
// []TocEntry in document order; nesting depth is discarded.

// findTocPath locates the navigation document in the manifest. The
// spine toc attribute wins, then the NCX media type, then the EPUB 3
// "nav" property, then an .ncx href.
func findTocPath(doc *packageDoc) (string, bool) {
	if doc.tocHint != "" {
		if item, ok := doc.Manifest[doc.tocHint]; ok {
			return item.Href, true
		}
	}
	for _, id := range doc.ManifestOrder {
		if doc.Manifest[id].MediaType == "application/x-dtbncx+xml" {
			return doc.Manifest[id].Href, true
		}
	}
	for _, id := range doc.ManifestOrder {
		for _, prop := range strings.Fields(doc.Manifest[id].Properties) {
			if prop == "nav" {
				return doc.Manifest[id].Href, true
			}
		}
	}
	for _, id := range doc.ManifestOrder {
		if strings.HasSuffix(doc.Manifest[id].Href, ".ncx") {
			return doc.Manifest[id].Href, true
		}
	}
	return "", false
}

// parseTOC parses the navigation document at docPath. The format is
// auto-detected from the file extension and content.
func parseTOC(data []byte, docPath, basePath string) ([]TocEntry, error) {
	if isNCX(data, docPath) {
		return parseNCX(data, basePath)
	}
	return parseNavDoc(data, basePath)
}

func isNCX(data []byte, docPath string) bool {
	if strings.HasSuffix(strings.ToLower(docPath), ".ncx") {
		return true
	}
	return bytes.Contains(data, []byte("<ncx")) || bytes.Contains(data, []byte(":ncx"))
}

// ncxDoc mirrors the NCX structure. Tags are namespace-agnostic.
type ncxDoc struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// parseNCX flattens the navPoint tree depth-first, in document order.
func parseNCX(data []byte, basePath string) ([]TocEntry, error) {
	var doc ncxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTocMalformed, err)
	}

	var entries []TocEntry
	var walk func(points []ncxNavPoint)
	walk = func(points []ncxNavPoint) {
		for _, np := range points {
			src := strings.TrimSpace(np.Content.Src)
			if src != "" {
				entries = append(entries, TocEntry{
					Title: strings.TrimSpace(np.Label.Text),
					Href:  normalizeTocHref(src, basePath),
				})
			}
			walk(np.Children)
		}
	}
	walk(doc.NavMap.NavPoints)

	return entries, nil
}

// parseNavDoc extracts anchors from an EPUB 3 nav document. The nav
// element with epub:type="toc" is preferred; otherwise the first nav
// element is used. Anchors are taken in document order.
func parseNavDoc(data []byte, basePath string) ([]TocEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTocMalformed, err)
	}

	navs := doc.Find("nav")
	if navs.Length() == 0 {
		return nil, fmt.Errorf("%w: no nav element", ErrTocMalformed)
	}

	nav := navs.First()
	navs.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.AttrOr("epub:type", "") == "toc" {
			nav = s
			return false
		}
		return true
	})

	var entries []TocEntry
	nav.Find("a").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		entries = append(entries, TocEntry{
			Title: strings.TrimSpace(s.Text()),
			Href:  normalizeTocHref(href, basePath),
		})
	})

	return entries, nil
}

// normalizeTocHref makes a TOC href BasePath-relative: hrefs that do
// not already carry the BasePath prefix get it prepended. The fragment,
// when present, is preserved.
func normalizeTocHref(href, basePath string) string {
	ref, fragment := splitFragment(normalizePath(href))
	if ref != "" {
		ref = joinBase(basePath, path.Clean(ref))
	}
	if fragment != "" {
		return ref + "#" + fragment
	}
	return ref
}

// splitFragment splits an href into its path and fragment identifier.
func splitFragment(href string) (p, fragment string) {
	parts := strings.SplitN(href, "#", 2)
	p = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return p, fragment
}
