package fetch

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed before conversion.
const noiseSelectors = "script, style, noscript, iframe, svg, nav, header, footer, aside, form, link, meta"

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// HTMLToMarkdown extracts the main readable region of a page and renders
// it as markdown. Pages with a <main> or <article> element keep only that
// element; otherwise the body is used.
func HTMLToMarkdown(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}
	doc.Find(noiseSelectors).Remove()

	region := doc.Find("main").First()
	if region.Length() == 0 {
		region = doc.Find("article").First()
	}
	if region.Length() == 0 {
		region = doc.Find("body").First()
	}

	fragment, err := goquery.OuterHtml(region)
	if err != nil {
		return "", err
	}

	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(md), nil
}

// Title returns the page <title>, falling back to the first h1.
func Title(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func cleanMarkdown(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = excessBlankLines.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}
