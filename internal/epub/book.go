// Package epub is the EPUB package engine: it opens the zip-packaged
// book, resolves the container descriptor to the package document,
// parses metadata, manifest, spine, and navigation document, and
// extracts renderable chapter content with embedded resources.
//
// A loaded Book is immutable: every accessor reads state built once in
// Open, and chapter extraction is parameterized by index with no shared
// cursor, so concurrent reads of different chapters are safe without
// locks.
package epub

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Book is one loaded EPUB: the archive plus the cached package and
// navigation model.
type Book struct {
	archive  *Archive
	pkg      *packageDoc
	toc      []TocEntry
	tocErr   error
	chapters []Chapter
	warnings []string
	cacheKey string
}

var (
	openMu    sync.Mutex
	openCache = make(map[string]*Book)
	openGroup singleflight.Group
)

// Open loads the book at path. Opening is one-time setup: concurrent
// and repeated opens of the same path are deduplicated and return the
// same cached Book rather than re-parsing.
func Open(bookPath string) (*Book, error) {
	key, err := filepath.Abs(bookPath)
	if err != nil {
		key = bookPath
	}

	openMu.Lock()
	if b, ok := openCache[key]; ok {
		openMu.Unlock()
		return b, nil
	}
	openMu.Unlock()

	v, err, _ := openGroup.Do(key, func() (interface{}, error) {
		a, err := OpenArchive(bookPath)
		if err != nil {
			return nil, err
		}
		b, err := loadBook(a)
		if err != nil {
			a.Close()
			return nil, err
		}
		b.cacheKey = key

		openMu.Lock()
		openCache[key] = b
		openMu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Book), nil
}

// OpenReader loads a book from an io.ReaderAt holding the raw archive
// bytes. No caching is performed; the caller owns r's lifetime.
func OpenReader(r io.ReaderAt, size int64) (*Book, error) {
	a, err := NewArchive(r, size)
	if err != nil {
		return nil, err
	}
	return loadBook(a)
}

// loadBook drives container resolution, package parsing, navigation
// parsing, and chapter segmentation, in that order. Container and
// package failures are fatal; navigation failures only disable the
// chapter-list features.
func loadBook(a *Archive) (*Book, error) {
	b := &Book{archive: a}
	b.warnings = a.mimetypeWarnings()

	opfPath, err := resolvePackagePath(a)
	if err != nil {
		return nil, err
	}

	opfData, err := a.ReadBytes(opfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, opfPath)
	}

	pkg, err := parsePackage(opfData, opfPath)
	if err != nil {
		return nil, err
	}
	b.pkg = pkg

	b.toc, b.tocErr = loadToc(a, pkg)
	b.chapters = segmentChapters(a, pkg.Spine, pkg.BasePath)

	return b, nil
}

func loadToc(a *Archive, pkg *packageDoc) ([]TocEntry, error) {
	tocHref, ok := findTocPath(pkg)
	if !ok {
		return nil, ErrTocNotFound
	}
	data, err := a.ReadBytes(joinBase(pkg.BasePath, tocHref))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTocNotFound, tocHref)
	}
	return parseTOC(data, tocHref, pkg.BasePath)
}

// Close releases the archive and evicts the Book from the open cache.
func (b *Book) Close() error {
	if b.cacheKey != "" {
		openMu.Lock()
		if openCache[b.cacheKey] == b {
			delete(openCache, b.cacheKey)
		}
		openMu.Unlock()
	}
	return b.archive.Close()
}

// Metadata returns the book metadata.
func (b *Book) Metadata() Metadata {
	return b.pkg.Metadata
}

// Spine returns the linear reading order.
func (b *Book) Spine() []SpineItem {
	return append([]SpineItem(nil), b.pkg.Spine...)
}

// Toc returns the flattened table of contents. It is empty when the
// navigation document is missing or malformed; TocErr reports why.
func (b *Book) Toc() []TocEntry {
	return append([]TocEntry(nil), b.toc...)
}

// TocErr returns the navigation parse failure, if any. A TOC failure
// disables chapter-list navigation but not linear reading.
func (b *Book) TocErr() error {
	return b.tocErr
}

// Warnings returns non-fatal diagnostics accumulated while loading.
func (b *Book) Warnings() []string {
	return append([]string(nil), b.warnings...)
}

// Chapters returns the logical chapters derived from the spine by the
// segmentation heuristic. The slice is computed once at load time.
func (b *Book) Chapters() []Chapter {
	out := make([]Chapter, len(b.chapters))
	for i, ch := range b.chapters {
		out[i] = Chapter{
			Title:     ch.Title,
			PartPaths: append([]string(nil), ch.PartPaths...),
		}
	}
	return out
}

// Chapter extracts the content of the spine item at index. The call is
// self-contained: it takes the target index as a parameter and touches
// no book-level cursor, so calls with different indexes may run
// concurrently on the same Book.
func (b *Book) Chapter(index int) (*Content, error) {
	if index < 0 || index >= len(b.pkg.Spine) {
		return nil, fmt.Errorf("%w: %d", ErrChapterOutOfRange, index)
	}
	return extractContent(b.archive, []string{b.pkg.Spine[index].Href}, b.pkg.BasePath)
}

// Content extracts a segmented chapter: its parts are loaded and
// concatenated in order, sharing one resource map.
func (b *Book) Content(ch Chapter) (*Content, error) {
	if len(ch.PartPaths) == 0 {
		return nil, fmt.Errorf("%w: chapter has no parts", ErrChapterOutOfRange)
	}
	return extractContent(b.archive, ch.PartPaths, b.pkg.BasePath)
}

// SpineIndexFromTocIndex maps a TOC selection to the spine index that
// starts the enclosing chapter. The fragment is ignored; when the TOC
// target is a continuation file, the first part of its segmented
// chapter is used. The second return value is false when the entry
// cannot be mapped into the spine.
func (b *Book) SpineIndexFromTocIndex(tocIndex int) (int, bool) {
	if tocIndex < 0 || tocIndex >= len(b.toc) {
		return 0, false
	}

	target, _ := splitFragment(b.toc[tocIndex].Href)
	href := b.stripBase(target)

	// The enclosing chapter's start wins: a TOC entry pointing into a
	// continuation file maps to the spine item that opens its chapter.
	for _, ch := range b.chapters {
		for _, part := range ch.PartPaths {
			if part == href {
				return b.spineIndexOfFirst(ch)
			}
		}
	}

	return b.spineIndexOf(href)
}

func (b *Book) stripBase(archivePath string) string {
	if b.pkg.BasePath == "" {
		return archivePath
	}
	if rest, ok := strings.CutPrefix(archivePath, b.pkg.BasePath+"/"); ok {
		return rest
	}
	return archivePath
}

func (b *Book) spineIndexOf(href string) (int, bool) {
	for i, item := range b.pkg.Spine {
		if item.Href == href {
			return i, true
		}
	}
	return 0, false
}

func (b *Book) spineIndexOfFirst(ch Chapter) (int, bool) {
	if len(ch.PartPaths) == 0 {
		return 0, false
	}
	return b.spineIndexOf(ch.PartPaths[0])
}

// CoverImage returns the cover as a data: URI, or the empty string when
// no cover could be found. Callers substitute a placeholder.
func (b *Book) CoverImage() string {
	uri, err := resolveCover(b.archive, b.pkg)
	if err != nil {
		return ""
	}
	return uri
}
