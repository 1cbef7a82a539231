package epub

import "errors"

var (
	// ErrContainerNotFound indicates META-INF/container.xml is missing
	// from the archive. The book cannot be opened without it.
	ErrContainerNotFound = errors.New("epub: META-INF/container.xml not found")

	// ErrPackageNotFound indicates the container descriptor does not
	// declare a package document, or the declared document is missing.
	ErrPackageNotFound = errors.New("epub: package document not found")

	// ErrPackageMalformed indicates the package document is not parseable XML.
	ErrPackageMalformed = errors.New("epub: malformed package document")

	// ErrTocNotFound indicates no navigation document could be located.
	// Linear reading still works; only the chapter list is unavailable.
	ErrTocNotFound = errors.New("epub: navigation document not found")

	// ErrTocMalformed indicates the navigation document could not be parsed.
	ErrTocMalformed = errors.New("epub: malformed navigation document")

	// ErrFileNotFound indicates the requested entry does not exist in the archive.
	ErrFileNotFound = errors.New("epub: file not found in archive")

	// ErrChapterOutOfRange indicates a chapter index outside the spine.
	ErrChapterOutOfRange = errors.New("epub: chapter index out of range")

	// ErrNoCover indicates no cover image could be found by any strategy.
	ErrNoCover = errors.New("epub: no cover image found")
)
