package epub

import (
	"encoding/base64"
	"path"
	"strings"
)

// conventionalCoverPaths are tried, relative to BasePath, when the
// package document gives no usable cover reference.
var conventionalCoverPaths = []string{"Cover.jpg", "cover.jpg", "Images/Cover.jpg"}

// imageExtensions recognises cover references that name an image file
// directly rather than a manifest id.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// resolveCover finds the cover image and returns it as a data: URI.
// The package document's cover reference is ambiguous by construction:
// it may be a direct path or a manifest id. Strategies, in order:
//
//  1. the reference as a path, when it looks like an image filename
//  2. the reference as a manifest id, following the id to its href
//  3. a manifest item carrying the cover-image property
//  4. conventional cover paths under BasePath
//
// Every candidate href goes through the same multi-candidate path
// strategy as chapter resources. An absent cover is reported with
// ErrNoCover, never as a hard failure.
func resolveCover(a *Archive, doc *packageDoc) (string, error) {
	ref := doc.Metadata.CoverRef

	if ref != "" && looksLikeImagePath(ref) {
		if uri, ok := readCoverCandidates(a, ref, doc.BasePath); ok {
			return uri, nil
		}
	}

	if ref != "" {
		if item, ok := doc.Manifest[ref]; ok {
			if uri, ok := readCoverCandidates(a, item.Href, doc.BasePath); ok {
				return uri, nil
			}
		}
	}

	for _, id := range doc.ManifestOrder {
		item := doc.Manifest[id]
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "cover-image" {
				if uri, ok := readCoverCandidates(a, item.Href, doc.BasePath); ok {
					return uri, nil
				}
			}
		}
	}

	for _, p := range conventionalCoverPaths {
		if uri, ok := readCoverCandidates(a, p, doc.BasePath); ok {
			return uri, nil
		}
	}

	return "", ErrNoCover
}

// readCoverCandidates tries the candidate paths for one cover reference
// and returns a data URI for the first readable one.
func readCoverCandidates(a *Archive, ref, basePath string) (string, bool) {
	for _, candidate := range candidatePaths(ref, basePath) {
		data, err := a.ReadBytes(candidate)
		if err != nil {
			continue
		}
		b64 := base64.StdEncoding.EncodeToString(data)
		return dataURI(mimeTypeByExt(candidate), b64), true
	}
	return "", false
}

func looksLikeImagePath(ref string) bool {
	return imageExtensions[strings.ToLower(path.Ext(ref))]
}
