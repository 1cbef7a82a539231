package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
)

// expectedMimetype is the required content of the "mimetype" entry.
const expectedMimetype = "application/epub+zip"

// Archive provides random-access reads of named entries inside the
// zip-packaged book file. Lookup is exact (after path normalization);
// callers supply alternative candidates when a reference may not match
// the stored layout.
type Archive struct {
	zr     *zip.Reader
	closer io.Closer // non-nil only when created via OpenArchive
	files  map[string]*zip.File
}

// OpenArchive opens the book file at the given path.
func OpenArchive(path string) (*Archive, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", path, err)
	}
	a := newArchive(&zrc.Reader)
	a.closer = zrc
	return a, nil
}

// NewArchive creates an Archive from an io.ReaderAt with the given
// size. The caller owns the lifetime of r.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub: open zip: %w", err)
	}
	return newArchive(zr), nil
}

func newArchive(zr *zip.Reader) *Archive {
	a := &Archive{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if _, ok := a.files[name]; !ok {
			a.files[name] = f
		}
	}
	return a
}

// Close releases the underlying file when the Archive was created via
// OpenArchive. Close is idempotent.
func (a *Archive) Close() error {
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// Has reports whether the archive contains the named entry.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[normalizePath(name)]
	return ok
}

// ReadBytes reads the named entry. Absent entries return
// ErrFileNotFound; they are common and non-fatal for most callers.
func (a *Archive) ReadBytes(name string) ([]byte, error) {
	f, ok := a.files[normalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open entry %s: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// ReadText reads the named entry as a string.
func (a *Archive) ReadText(name string) (string, error) {
	data, err := a.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// mimetypeWarnings checks the conventional "mimetype" entry and reports
// deviations. Real-world files get this wrong often enough that it is
// not treated as fatal.
func (a *Archive) mimetypeWarnings() []string {
	var warnings []string

	f, ok := a.files["mimetype"]
	if !ok {
		return append(warnings, "mimetype entry missing")
	}
	if f.Method != zip.Store {
		warnings = append(warnings, "mimetype entry is compressed")
	}
	content, err := a.ReadText("mimetype")
	if err != nil {
		return append(warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
	}
	if content != expectedMimetype {
		warnings = append(warnings, fmt.Sprintf("unexpected mimetype: %q", content))
	}
	return warnings
}

// normalizePath normalizes entry names for lookup: forward slashes, no
// "./" prefix.
func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	return path
}
