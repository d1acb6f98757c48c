// Package text flattens blast content, which may carry HTML markup, into
// plain text: a single line for the list, paragraphs for the detail pane.
package text

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

// Flatten returns content as one line of plain text. Markup is dropped,
// entities are decoded, links keep their href when the text differs, and
// runs of whitespace (newlines included) collapse to one space.
func Flatten(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if !strings.ContainsAny(content, "<&") {
		return collapse(content)
	}

	body := parseBody(content)
	if body == nil {
		return collapse(html.UnescapeString(content))
	}
	return tidy(collapse(renderChildren(body, " ")))
}

// paragraphBreak marks block boundaries while rendering paragraphs. The
// HTML parser never lets a NUL through in text.
const paragraphBreak = "\x00"

// Paragraphs returns content as plain-text paragraphs. Line breaks separate
// paragraphs in plain text, block elements do in markup; each paragraph is
// flattened as in Flatten and empty ones are dropped.
func Paragraphs(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	raw := strings.ReplaceAll(content, "\n", paragraphBreak)
	markup := strings.ContainsAny(content, "<&")
	if markup {
		if body := parseBody(content); body != nil {
			raw = renderChildren(body, paragraphBreak)
		} else {
			raw = html.UnescapeString(raw)
		}
	}

	var out []string
	for _, para := range strings.Split(raw, paragraphBreak) {
		para = collapse(para)
		if markup {
			para = tidy(para)
		}
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

func parseBody(content string) *nethtml.Node {
	doc, err := nethtml.Parse(strings.NewReader("<html><body>" + content + "</body></html>"))
	if err != nil {
		return nil
	}
	return findBody(doc)
}

// renderChildren renders node's children, putting sep around block
// elements.
func renderChildren(node *nethtml.Node, sep string) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(renderNode(child, sep))
	}
	return b.String()
}

func renderNode(node *nethtml.Node, sep string) string {
	switch node.Type {
	case nethtml.TextNode:
		return node.Data
	case nethtml.ElementNode:
		switch strings.ToLower(node.Data) {
		case "script", "style", "noscript", "img":
			return ""
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre":
			return sep + renderChildren(node, sep) + sep
		case "a":
			text := collapse(renderChildren(node, sep))
			href := attr(node, "href")
			switch {
			case href == "":
				return text
			case text == "", strings.EqualFold(text, href):
				return href
			default:
				return text + " (" + href + ")"
			}
		case "q":
			if text := collapse(renderChildren(node, sep)); text != "" {
				return `"` + text + `"`
			}
			return ""
		case "code", "kbd", "samp":
			if text := collapse(renderChildren(node, sep)); text != "" {
				return "`" + text + "`"
			}
			return ""
		default:
			return renderChildren(node, sep)
		}
	default:
		return ""
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var punctuation = strings.NewReplacer(
	" .", ".",
	" ,", ",",
	" ;", ";",
	" :", ":",
	" !", "!",
	" ?", "?",
	" )", ")",
	"( ", "(",
)

func tidy(s string) string {
	return punctuation.Replace(s)
}

func findBody(node *nethtml.Node) *nethtml.Node {
	if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "body") {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBody(child); found != nil {
			return found
		}
	}
	return nil
}

func attr(node *nethtml.Node, name string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
