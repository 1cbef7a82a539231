package epub

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// zipBytes builds an in-memory zip from the given entries. The mimetype
// entry, when present, is written first and stored uncompressed, as the
// format requires.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if content, ok := entries["mimetype"]; ok {
		mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("create mimetype entry: %v", err)
		}
		mw.Write([]byte(content))
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		ew, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		ew.Write([]byte(entries[name]))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

// newTestArchive builds an in-memory Archive from the given entries.
func newTestArchive(t *testing.T, entries map[string]string) *Archive {
	t.Helper()

	data := zipBytes(t, entries)
	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	return a
}

// writeTestEPUB writes an EPUB file into dir and returns its path.
func writeTestEPUB(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()

	epubPath := filepath.Join(dir, name)
	if err := os.WriteFile(epubPath, zipBytes(t, entries), 0o644); err != nil {
		t.Fatalf("write test epub: %v", err)
	}
	return epubPath
}

// testBookEntries is a well-formed two-chapter book: chapter one opens
// with a heading and references an image through a "../" path, chapter
// two has no heading and continues the chapter.
func testBookEntries() map[string]string {
	return map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Long Road</dc:title>
    <dc:creator>Ada Example</dc:creator>
    <dc:language>en</dc:language>
    <dc:date>2021-05-01</dc:date>
    <dc:identifier id="bookid">urn:isbn:9780000000001</dc:identifier>
    <meta name="cover" content="cover-image"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover-image" href="Images/cover.jpg" media-type="image/jpeg"/>
    <item id="ch1" href="Text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="Text/ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`,
		"OEBPS/toc.ncx": `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Prologue</text></navLabel>
      <content src="Text/ch1.xhtml"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>Still the Prologue</text></navLabel>
      <content src="Text/ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`,
		"OEBPS/Text/ch1.xhtml": `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Prologue</title></head>
<body><h1>Prologue</h1><p>It was a <em>dark</em> night.</p>
<img src="../Images/pic.jpg"/></body>
</html>`,
		"OEBPS/Text/ch2.xhtml": `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Continuation</title></head>
<body><p>The night went on.</p></body>
</html>`,
		"OEBPS/Images/pic.jpg":   "fake-image-bytes",
		"OEBPS/Images/cover.jpg": "fake-cover-bytes",
	}
}
