package epub

// Metadata holds the Dublin Core metadata extracted from the package
// document. Absent elements default to the empty string.
type Metadata struct {
	Title       string
	Author      string // dc:creator
	Language    string
	Date        string
	Identifier  string
	Contributor string

	// CoverRef is the content of <meta name="cover">. It is either a
	// direct image path or a manifest item ID; the cover resolver
	// disambiguates.
	CoverRef string
}

// ManifestItem represents an item in the manifest. Href is relative to
// the directory containing the package document.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// SpineItem is a resolved spine entry in linear reading order.
type SpineItem struct {
	ID   string
	Href string
}

// TocEntry is a single flattened table-of-contents entry. Href is an
// archive path (BasePath-prefixed) with an optional #fragment.
type TocEntry struct {
	Title string
	Href  string
}

// Chapter is a logical reading unit derived from the spine. A chapter
// may span several spine files; PartPaths holds their hrefs relative to
// the package document directory, in reading order.
type Chapter struct {
	Title     string
	PartPaths []string
}

// Content is one extracted chapter: its markup plus every referenced
// resource that could be located in the archive. Resources is keyed by
// the reference string exactly as it appears in the markup; values are
// base64-encoded payloads.
type Content struct {
	Markup    string
	Resources map[string]string
}
