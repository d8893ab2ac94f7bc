// Package markdown renders the small Markdown subset produced by the AI
// backends: ATX headers up to level three, bold, italic, flat lists and
// paragraphs. Anything else is passed through as escaped text.
package markdown

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockSep  = regexp.MustCompile(`\n[ \t]*\n+`)
	headerRe  = regexp.MustCompile(`^(#{1,3}) (.*)$`)
	listRe    = regexp.MustCompile(`^[-*] (.*)$`)
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe  = regexp.MustCompile(`\*(.+?)\*`)
	newlineRe = regexp.MustCompile(`\r\n?`)
)

// Render converts text to an HTML fragment.
func Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = newlineRe.ReplaceAllString(text, "\n")

	var sb strings.Builder
	for _, block := range blockSep.Split(text, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		sb.WriteString(renderBlock(block))
	}
	return sb.String()
}

func renderBlock(block string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = renderLine(line)
	}

	first := strings.TrimSpace(lines[0])
	switch {
	case strings.HasPrefix(first, "<li>"):
		return "<ul>" + strings.Join(lines, "\n") + "</ul>"
	case strings.HasPrefix(first, "<h3>"), strings.HasPrefix(first, "<h4>"):
		return strings.Join(lines, "\n")
	default:
		return "<p>" + strings.Join(lines, "<br>") + "</p>"
	}
}

func renderLine(line string) string {
	if m := headerRe.FindStringSubmatch(line); m != nil {
		tag := "h3"
		if len(m[1]) == 3 {
			tag = "h4"
		}
		return "<" + tag + ">" + inline(m[2]) + "</" + tag + ">"
	}
	if m := listRe.FindStringSubmatch(strings.TrimLeft(line, " \t")); m != nil {
		return "<li>" + inline(m[1]) + "</li>"
	}
	return inline(line)
}

func inline(s string) string {
	s = html.EscapeString(s)
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	return s
}
