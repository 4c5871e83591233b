package fetch

import (
	"bytes"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveBlankLines = regexp.MustCompile(`\n{3,}`)

// ConvertResult holds the normalized text form of an HTML page.
type ConvertResult struct {
	Title    string
	Markdown string
}

// Converter turns raw HTML into markdown suitable for capability prompts:
// boilerplate chrome is stripped so page text dominates the token budget.
type Converter struct {
	conv *md.Converter
}

func NewConverter() *Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return &Converter{conv: c}
}

// Convert strips navigation/script noise and produces markdown plus the page
// title. Unparsable HTML falls through to the raw converter rather than
// failing the page.
func (c *Converter) Convert(raw []byte) (*ConvertResult, error) {
	title := ""
	cleaned := string(raw)

	if doc, err := html.Parse(bytes.NewReader(raw)); err == nil {
		title = findTitle(doc)
		removeNoise(doc)
		if body := findElement(doc, "body"); body != nil {
			var buf bytes.Buffer
			if err := html.Render(&buf, body); err == nil {
				cleaned = buf.String()
			}
		}
	}

	out, err := c.conv.ConvertString(cleaned)
	if err != nil {
		return nil, err
	}
	out = excessiveBlankLines.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	if title == "" {
		title = firstHeading(out)
	}
	return &ConvertResult{Title: title, Markdown: out}, nil
}

func findTitle(doc *html.Node) string {
	n := findElement(doc, "title")
	if n == nil || n.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

var noiseElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "svg": true,
}

func removeNoise(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && noiseElements[c.Data] {
			n.RemoveChild(c)
			continue
		}
		removeNoise(c)
	}
}

func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	return ""
}
