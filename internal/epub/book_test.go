package epub

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func openTestBook(t *testing.T, entries map[string]string) *Book {
	t.Helper()

	data := zipBytes(t, entries)
	b, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	return b
}

func TestOpenLoadsModel(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	md := b.Metadata()
	if md.Title != "The Long Road" {
		t.Errorf("Title = %q, want %q", md.Title, "The Long Road")
	}
	if md.Author != "Ada Example" {
		t.Errorf("Author = %q, want %q", md.Author, "Ada Example")
	}

	spine := b.Spine()
	if len(spine) != 2 {
		t.Fatalf("spine length = %d, want 2", len(spine))
	}
	want := []SpineItem{
		{ID: "ch1", Href: "Text/ch1.xhtml"},
		{ID: "ch2", Href: "Text/ch2.xhtml"},
	}
	for i, item := range spine {
		if item != want[i] {
			t.Errorf("Spine[%d] = %+v, want %+v", i, item, want[i])
		}
	}

	// Every spine href must resolve to an archive entry.
	for _, item := range spine {
		if !b.archive.Has(joinBase("OEBPS", item.Href)) {
			t.Errorf("spine href %q not present in archive", item.Href)
		}
	}

	if err := b.TocErr(); err != nil {
		t.Fatalf("TocErr() = %v", err)
	}
	toc := b.Toc()
	if len(toc) != 2 || toc[0].Title != "Prologue" {
		t.Errorf("Toc() = %+v, want two entries starting with Prologue", toc)
	}
}

func TestOpenCachesByPath(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEPUB(t, dir, "book.epub", testBookEntries())

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if first != second {
		t.Errorf("Open() returned a new Book for a cached path")
	}
}

func TestOpenConcurrent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEPUB(t, dir, "book.epub", testBookEntries())

	const n = 8
	books := make([]*Book, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := Open(path)
			if err != nil {
				t.Errorf("Open() error = %v", err)
				return
			}
			books[i] = b
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if books[i] != books[0] {
			t.Fatalf("concurrent Open() produced distinct Books")
		}
	}
	books[0].Close()
}

func TestChapterBoundary(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	for _, index := range []int{-1, 2} {
		_, err := b.Chapter(index)
		if !errors.Is(err, ErrChapterOutOfRange) {
			t.Errorf("Chapter(%d) error = %v, want ErrChapterOutOfRange", index, err)
		}
	}
}

func TestChapterResolvesResources(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	content, err := b.Chapter(0)
	if err != nil {
		t.Fatalf("Chapter(0) error = %v", err)
	}
	if _, ok := content.Resources["../Images/pic.jpg"]; !ok {
		t.Errorf("Resources keys = %v, want the original reference string", keys(content.Resources))
	}
}

func TestChapterConcurrent(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			index := i % 2
			content, err := b.Chapter(index)
			if err != nil {
				t.Errorf("Chapter(%d) error = %v", index, err)
				return
			}
			if content.Markup == "" {
				t.Errorf("Chapter(%d) returned empty markup", index)
			}
		}(i)
	}
	wg.Wait()
}

func TestChaptersSegmentation(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	chapters := b.Chapters()
	if len(chapters) != 1 {
		t.Fatalf("got %d chapters, want 1: %+v", len(chapters), chapters)
	}
	if chapters[0].Title != "Prologue" {
		t.Errorf("Title = %q, want %q", chapters[0].Title, "Prologue")
	}
	wantParts := []string{"Text/ch1.xhtml", "Text/ch2.xhtml"}
	if len(chapters[0].PartPaths) != 2 ||
		chapters[0].PartPaths[0] != wantParts[0] ||
		chapters[0].PartPaths[1] != wantParts[1] {
		t.Errorf("PartPaths = %v, want %v", chapters[0].PartPaths, wantParts)
	}

	content, err := b.Content(chapters[0])
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if !strings.Contains(content.Markup, "dark") || !strings.Contains(content.Markup, "went on") {
		t.Errorf("Content() markup missing concatenated parts")
	}
}

func TestSpineIndexFromTocIndex(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	tests := []struct {
		tocIndex int
		want     int
		ok       bool
	}{
		{0, 0, true},
		// Entry 1 points into a continuation file; it maps to the
		// spine item that opens the enclosing chapter.
		{1, 0, true},
		{-1, 0, false},
		{2, 0, false},
	}

	for _, tt := range tests {
		got, ok := b.SpineIndexFromTocIndex(tt.tocIndex)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SpineIndexFromTocIndex(%d) = (%d, %v), want (%d, %v)",
				tt.tocIndex, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCoverImageViaBook(t *testing.T) {
	b := openTestBook(t, testBookEntries())

	uri := b.CoverImage()
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("CoverImage() = %q, want jpeg data URI", uri)
	}
}

func TestCoverImageAbsentIsEmpty(t *testing.T) {
	entries := testBookEntries()
	delete(entries, "OEBPS/Images/cover.jpg")
	b := openTestBook(t, entries)

	if uri := b.CoverImage(); uri != "" {
		t.Errorf("CoverImage() = %q, want empty string for missing cover", uri)
	}
}

func TestMissingTocDoesNotBlockReading(t *testing.T) {
	entries := testBookEntries()
	delete(entries, "OEBPS/toc.ncx")
	b := openTestBook(t, entries)

	if err := b.TocErr(); !errors.Is(err, ErrTocNotFound) {
		t.Errorf("TocErr() = %v, want ErrTocNotFound", err)
	}
	if len(b.Toc()) != 0 {
		t.Errorf("Toc() = %v, want empty", b.Toc())
	}

	if _, err := b.Chapter(0); err != nil {
		t.Errorf("Chapter(0) error = %v, want linear reading to survive a missing TOC", err)
	}
}

func TestOpenFailsWithoutContainer(t *testing.T) {
	entries := testBookEntries()
	delete(entries, "META-INF/container.xml")
	data := zipBytes(t, entries)

	_, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrContainerNotFound) {
		t.Errorf("OpenReader() error = %v, want ErrContainerNotFound", err)
	}
}

func TestOpenFailsWithoutPackageDocument(t *testing.T) {
	entries := testBookEntries()
	delete(entries, "OEBPS/content.opf")
	data := zipBytes(t, entries)

	_, err := OpenReader(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("OpenReader() error = %v, want ErrPackageNotFound", err)
	}
}
