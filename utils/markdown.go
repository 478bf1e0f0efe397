// utils/markdown.go
package utils

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
			goldhtml.WithXHTML(),
		),
	)
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()

	whitespaceRun = regexp.MustCompile(`\s+`)
)

func init() {
	ugcPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	ugcPolicy.RequireNoReferrerOnLinks(true)
}

// ExtractSingleURL returns the URL when the markdown body, once markup and
// whitespace are ignored, consists of exactly one http(s) link and nothing else.
func ExtractSingleURL(body string) (string, bool) {
	src := []byte(html.UnescapeString(strings.TrimSpace(body)))
	if len(src) == 0 {
		return "", false
	}

	doc := mdParser.Parser().Parse(text.NewReader(src))

	var urls []string
	var rest strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			urls = append(urls, string(node.Destination))
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			urls = append(urls, string(node.Destination))
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			urls = append(urls, string(node.URL(src)))
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			rest.Write(node.Segment.Value(src))
		case *ast.String:
			rest.Write(node.Value)
		case *ast.CodeSpan, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.RawHTML, *ast.HTMLBlock:
			// code and raw html never count as a bare link
			rest.WriteString("x")
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil || len(urls) != 1 || strings.TrimSpace(rest.String()) != "" {
		return "", false
	}

	u, err := url.Parse(strings.TrimSpace(urls[0]))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// MarkdownText renders markdown and strips every tag, leaving the visible text
// with whitespace collapsed.
func MarkdownText(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(html.UnescapeString(source)), &buf); err != nil {
		return strings.TrimSpace(source)
	}
	plain := html.UnescapeString(strictPolicy.Sanitize(buf.String()))
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(plain, " "))
}

// RenderMarkdownHTML converts markdown to sanitised HTML for the stats pages.
func RenderMarkdownHTML(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source)
	}
	sanitized := ugcPolicy.SanitizeBytes(buf.Bytes())
	return enhanceLinks(string(sanitized))
}

// enhanceLinks points relative forum links at the forum host.
func enhanceLinks(htmlStr string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}
	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if strings.HasPrefix(href, "/u/") || strings.HasPrefix(href, "/r/") || strings.HasPrefix(href, "/comments/") {
			s.SetAttr("href", "https://www.reddit.com"+href)
			s.SetAttr("target", "_blank")
			s.SetAttr("rel", "nofollow noreferrer noopener")
		}
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}
