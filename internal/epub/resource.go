package epub

import (
	"bytes"
	"encoding/base64"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// EPUB producers disagree on whether resource references are relative
// to the chapter file, the package document, or a conventional Images
// subfolder. Resolution therefore tries an ordered list of candidate
// archive paths per reference and stops at the first entry that reads.

// scanResourceRefs collects the distinct resource references in one
// chapter's markup, in document order: img src, link href, script src,
// and the href of image elements inside inline SVG (including the
// deprecated xlink:href form).
func scanResourceRefs(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var refs []string
	seen := make(map[string]bool)
	add := func(ref string) {
		if ref == "" || seen[ref] || isExternalRef(ref) {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	doc.Find("img[src], link[href], script[src], image").Each(func(i int, s *goquery.Selection) {
		switch n := s.Get(0); n.Data {
		case "img", "script":
			add(s.AttrOr("src", ""))
		case "link":
			add(s.AttrOr("href", ""))
		case "image":
			add(svgImageHref(n))
		}
	})

	return refs
}

// svgImageHref returns the href of an SVG image element. The parser may
// surface the deprecated xlink:href either as a namespaced "href" or as
// a literal "xlink:href" key depending on parse mode, so both are checked.
func svgImageHref(n *html.Node) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == "href" || attr.Key == "xlink:href" {
			if attr.Val != "" {
				return attr.Val
			}
		}
	}
	return ""
}

// isExternalRef reports whether a reference cannot live in the archive:
// absolute URLs, data URIs, and bare fragments.
func isExternalRef(ref string) bool {
	if strings.HasPrefix(ref, "#") {
		return true
	}
	for _, scheme := range []string{"http://", "https://", "data:", "mailto:"} {
		if strings.HasPrefix(ref, scheme) {
			return true
		}
	}
	return false
}

// candidatePaths builds the ordered list of archive paths to try for
// one reference: the leading ".." segment rewritten to basePath, the
// reference unchanged, the basePath-joined form, and the conventional
// Images folder under basePath.
func candidatePaths(ref, basePath string) []string {
	ref = normalizePath(ref)

	var candidates []string
	if rest, ok := strings.CutPrefix(ref, "../"); ok {
		candidates = append(candidates, joinBase(basePath, rest))
	}
	candidates = append(candidates, ref)
	candidates = append(candidates, joinBase(basePath, ref))
	candidates = append(candidates, joinBase(basePath, "Images/"+path.Base(ref)))

	// Drop duplicates, keeping first occurrence.
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// resolveResources loads every referenced resource of one chapter from
// the archive. The result maps the reference string exactly as written
// in the markup to a base64 payload; references that cannot be resolved
// by any candidate are omitted, and rendering degrades to a broken
// asset instead of failing.
func resolveResources(a *Archive, markup, basePath string) map[string]string {
	resources := make(map[string]string)
	for _, ref := range scanResourceRefs(markup) {
		for _, candidate := range candidatePaths(ref, basePath) {
			data, err := a.ReadBytes(candidate)
			if err != nil {
				continue
			}
			resources[ref] = base64.StdEncoding.EncodeToString(data)
			break
		}
	}
	return resources
}

// dataURI builds a data: URI for an archive payload.
func dataURI(mimeType, b64 string) string {
	var b bytes.Buffer
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(b64)
	return b.String()
}

// mimeTypeByExt derives the MIME type for data URIs from the file
// extension. Unknown extensions fall back to application/octet-stream.
func mimeTypeByExt(ref string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(splitFragmentPath(ref)), "."))
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func splitFragmentPath(ref string) string {
	p, _ := splitFragment(ref)
	return p
}
