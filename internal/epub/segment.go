package epub

import (
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The file-per-section layout of an EPUB rarely matches the logical
// chapter boundaries readers expect: front matter, part breaks, and
// chapter bodies are often split across several spine files with no
// heading of their own. segmentChapters groups the flat spine into
// navigable chapters in a single left-to-right pass:
//
//   - a spine file whose body contains a top-level h1 starts a new
//     chapter, titled by the heading text
//   - a heading-less file before any chapter exists starts a synthetic
//     chapter, titled from the document title element when present,
//     otherwise "Chapter n"
//   - any other heading-less file continues the current chapter; its
//     path is appended and its content concatenated at render time
//
// The heuristic is a best-effort default: books using a different
// heading convention (or none) may be mis-grouped.
func segmentChapters(a *Archive, spine []SpineItem, basePath string) []Chapter {
	var chapters []Chapter
	synthetic := 0

	for _, item := range spine {
		heading, docTitle := inspectSpineFile(a, joinBase(basePath, item.Href))

		switch {
		case heading != "":
			chapters = append(chapters, Chapter{
				Title:     heading,
				PartPaths: []string{item.Href},
			})
		case len(chapters) == 0:
			synthetic++
			title := docTitle
			if title == "" {
				title = fmt.Sprintf("Chapter %d", synthetic)
			}
			chapters = append(chapters, Chapter{
				Title:     title,
				PartPaths: []string{item.Href},
			})
		default:
			last := &chapters[len(chapters)-1]
			last.PartPaths = append(last.PartPaths, item.Href)
		}
	}

	return chapters
}

// inspectSpineFile reads one spine file and returns the text of its
// first h1 and of its title element, either possibly empty. Unreadable
// or unparseable files report neither and fold into the surrounding
// chapter.
func inspectSpineFile(a *Archive, archivePath string) (heading, docTitle string) {
	markup, err := a.ReadText(archivePath)
	if err != nil {
		log.Printf("warning: spine file %q unreadable: %v", archivePath, err)
		return "", ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Printf("warning: spine file %q unparseable: %v", archivePath, err)
		return "", ""
	}

	heading = strings.TrimSpace(doc.Find("h1").First().Text())
	docTitle = strings.TrimSpace(doc.Find("title").First().Text())
	return heading, docTitle
}
