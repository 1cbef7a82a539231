package epub

import (
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// extractContent reads one chapter's part files, concatenates their
// markup, and resolves every referenced resource. Missing continuation
// parts degrade with a warning; a chapter with no readable part at all
// is an error.
func extractContent(a *Archive, partPaths []string, basePath string) (*Content, error) {
	var parts []string
	for _, p := range partPaths {
		text, err := a.ReadText(joinBase(basePath, p))
		if err != nil {
			log.Printf("warning: chapter part %q unreadable, skipping: %v", p, err)
			continue
		}
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no readable chapter part in %v", ErrFileNotFound, partPaths)
	}

	markup := strings.Join(parts, "\n")
	return &Content{
		Markup:    markup,
		Resources: resolveResources(a, markup, basePath),
	}, nil
}

// InlineOptions controls the InlineHTML rewrite.
type InlineOptions struct {
	// FontSize, when positive, injects a reader stylesheet sized in px.
	FontSize int
}

// InlineHTML rewrites every matched resource reference into a data: URI
// built from the resource's MIME type and base64 payload, producing a
// self-contained document for embedded web views. It is a pure function
// of the Content; no I/O is performed.
func InlineHTML(c *Content, opts InlineOptions) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.Markup))
	if err != nil {
		return "", fmt.Errorf("epub: parse chapter markup: %w", err)
	}

	inline := func(s *goquery.Selection, attr string) {
		ref, ok := s.Attr(attr)
		if !ok {
			return
		}
		if b64, found := c.Resources[ref]; found {
			s.SetAttr(attr, dataURI(mimeTypeByExt(ref), b64))
		}
	}

	doc.Find("img[src]").Each(func(i int, s *goquery.Selection) { inline(s, "src") })
	doc.Find("link[href]").Each(func(i int, s *goquery.Selection) { inline(s, "href") })
	doc.Find("script[src]").Each(func(i int, s *goquery.Selection) { inline(s, "src") })
	doc.Find("image").Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		for j, attr := range node.Attr {
			if attr.Key != "href" && attr.Key != "xlink:href" {
				continue
			}
			if b64, found := c.Resources[attr.Val]; found {
				node.Attr[j].Val = dataURI(mimeTypeByExt(attr.Val), b64)
			}
		}
	})

	if opts.FontSize > 0 {
		doc.Find("head").First().AppendHtml(readerStylesheet(opts.FontSize))
	}

	return doc.Html()
}

// readerStylesheet builds the injected reader CSS. Heading size tracks
// the body font size.
func readerStylesheet(fontSize int) string {
	return fmt.Sprintf(`<style>
body { font-family: 'Arial', sans-serif; line-height: 1.8; color: #333; margin: 20px; padding: 20px; }
h1 { color: #444; text-align: center; font-size: %dpx; }
p { margin: 12px 0; font-size: %dpx; }
img { display: block; max-width: 100%%; height: auto; margin: 10px auto; }
</style>`, fontSize+5, fontSize)
}

// NodeKind discriminates block node variants.
type NodeKind int

const (
	NodeParagraph NodeKind = iota
	NodeHeading
	NodeImage
)

// Span is a run of text with inline styling.
type Span struct {
	Text     string
	Emphasis bool
	Bold     bool
}

// BlockNode is one block-level unit of a chapter for renderers that do
// not embed a web view: a paragraph or heading of styled spans, or an
// image referencing a key in Content.Resources.
type BlockNode struct {
	Kind  NodeKind
	Level int // heading level, 1-6; zero otherwise
	Spans []Span

	// ResourceKey is the reference string of an image node, usable as a
	// key into Content.Resources.
	ResourceKey string
}

// BlockNodes parses the chapter markup into an ordered sequence of
// block nodes. Like InlineHTML it is a pure function of the Content.
func BlockNodes(c *Content) ([]BlockNode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.Markup))
	if err != nil {
		return nil, fmt.Errorf("epub: parse chapter markup: %w", err)
	}

	var nodes []BlockNode
	doc.Find("body").Each(func(i int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			collectBlocks(n, &nodes)
		}
	})
	return nodes, nil
}

// collectBlocks walks the node tree and appends block nodes in document order.
func collectBlocks(n *html.Node, out *[]BlockNode) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		switch child.Data {
		case "p":
			spans := inlineSpans(child, false, false)
			if len(spans) > 0 {
				*out = append(*out, BlockNode{Kind: NodeParagraph, Spans: spans})
			}
		case "h1", "h2", "h3", "h4", "h5", "h6":
			spans := inlineSpans(child, false, false)
			if len(spans) > 0 {
				*out = append(*out, BlockNode{
					Kind:  NodeHeading,
					Level: int(child.Data[1] - '0'),
					Spans: spans,
				})
			}
		case "img":
			if src := attrValue(child, "src"); src != "" {
				*out = append(*out, BlockNode{Kind: NodeImage, ResourceKey: src})
			}
		default:
			collectBlocks(child, out)
		}
	}
}

// inlineSpans flattens the inline content of a block element into spans,
// tracking emphasis and bold through nested elements. Images inside a
// block are ignored here; standalone img elements become image nodes.
func inlineSpans(n *html.Node, emphasis, bold bool) []Span {
	var spans []Span
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			text := collapseSpace(child.Data)
			if text != "" {
				spans = append(spans, Span{Text: text, Emphasis: emphasis, Bold: bold})
			}
		case html.ElementNode:
			em, b := emphasis, bold
			switch child.Data {
			case "em", "i":
				em = true
			case "strong", "b":
				b = true
			}
			spans = append(spans, inlineSpans(child, em, b)...)
		}
	}
	return spans
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
