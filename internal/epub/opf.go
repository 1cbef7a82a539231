package epub

import (
	"encoding/xml"
	"fmt"
	"log"
	"path"
	"strings"
)

// packageDoc is the parsed package document: metadata, the id-keyed
// manifest, and the reading-order spine. BasePath is the archive
// directory containing the package document; every manifest, spine, and
// TOC href is interpreted relative to it. The whole structure is built
// once per load and never written afterwards.
type packageDoc struct {
	Metadata      Metadata
	Manifest      map[string]ManifestItem
	ManifestOrder []string
	Spine         []SpineItem
	BasePath      string

	// tocHint is the spine toc attribute (manifest id of the NCX), when present.
	tocHint string
}

// opfPackage mirrors the package document XML. Field tags carry no
// namespace on purpose: elements are matched by local name, so any
// prefix binding (dc:, dcterms:, none) decodes the same way.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Title       []string  `xml:"title"`
	Creator     []string  `xml:"creator"`
	Language    []string  `xml:"language"`
	Date        []string  `xml:"date"`
	Identifier  []string  `xml:"identifier"`
	Contributor []string  `xml:"contributor"`
	Meta        []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// parsePackage parses the package document. opfPath is its archive path
// and determines BasePath. Only an XML parse failure is fatal; missing
// metadata fields default to empty strings, and spine references that
// do not resolve in the manifest are dropped with a warning.
func parsePackage(content []byte, opfPath string) (*packageDoc, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageMalformed, err)
	}

	doc := &packageDoc{
		Manifest: make(map[string]ManifestItem),
		BasePath: basePathOf(opfPath),
	}
	doc.Metadata = extractMetadata(&pkg.Metadata)

	for _, item := range pkg.Manifest.Items {
		if item.ID == "" || item.Href == "" {
			continue
		}
		if _, dup := doc.Manifest[item.ID]; dup {
			log.Printf("warning: duplicate manifest id %q, keeping first", item.ID)
			continue
		}
		doc.Manifest[item.ID] = ManifestItem{
			ID:         item.ID,
			Href:       normalizePath(item.Href),
			MediaType:  item.MediaType,
			Properties: item.Properties,
		}
		doc.ManifestOrder = append(doc.ManifestOrder, item.ID)
	}

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := doc.Manifest[ref.IDRef]
		if !ok {
			log.Printf("warning: spine item %q not found in manifest, skipping", ref.IDRef)
			continue
		}
		doc.Spine = append(doc.Spine, SpineItem{ID: item.ID, Href: item.Href})
	}

	doc.tocHint = pkg.Spine.Toc
	return doc, nil
}

// extractMetadata takes the first occurrence of each Dublin Core
// element and the EPUB 2 cover meta.
func extractMetadata(meta *opfMetadata) Metadata {
	md := Metadata{
		Title:       first(meta.Title),
		Author:      first(meta.Creator),
		Language:    first(meta.Language),
		Date:        first(meta.Date),
		Identifier:  first(meta.Identifier),
		Contributor: first(meta.Contributor),
	}

	for _, m := range meta.Meta {
		if m.Name == "cover" && m.Content != "" {
			md.CoverRef = m.Content
			break
		}
	}

	return md
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// basePathOf returns the archive directory containing the package
// document, or "" when it sits at the archive root.
func basePathOf(opfPath string) string {
	dir := path.Dir(normalizePath(opfPath))
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// joinBase resolves a package-relative href to an archive path.
func joinBase(basePath, href string) string {
	href = normalizePath(href)
	if basePath == "" || strings.HasPrefix(href, basePath+"/") {
		return href
	}
	return basePath + "/" + href
}
