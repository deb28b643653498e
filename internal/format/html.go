package format

import (
	"html"
	"regexp"
	"strings"
)

var sgrPattern = regexp.MustCompile(`\x1b\[([0-9;]*)m`)

// Styles applied per SGR code. Codes without an entry are ignored rather
// than rendered literally.
var sgrStyles = map[string]string{
	"1":  "font-weight:bold",
	"2":  "opacity:0.7",
	"31": "color:#e74c3c",
	"32": "color:#2ecc71",
	"33": "color:#f1c40f",
	"34": "color:#3498db",
	"35": "color:#9b59b6",
	"36": "color:#1abc9c",
}

// ANSIToHTML converts ANSI-styled terminal output into HTML. Text is
// escaped, SGR color and weight codes become styled spans, and newlines
// become <br> tags.
func ANSIToHTML(s string) string {
	var b strings.Builder
	open := 0
	last := 0
	for _, m := range sgrPattern.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(escape(s[last:m[0]]))
		last = m[1]

		codes := s[m[2]:m[3]]
		if codes == "" || codes == "0" {
			for ; open > 0; open-- {
				b.WriteString("</span>")
			}
			continue
		}
		var styles []string
		for _, code := range strings.Split(codes, ";") {
			if style, ok := sgrStyles[code]; ok {
				styles = append(styles, style)
			}
		}
		if len(styles) > 0 {
			b.WriteString(`<span style="` + strings.Join(styles, ";") + `">`)
			open++
		}
	}
	b.WriteString(escape(s[last:]))
	for ; open > 0; open-- {
		b.WriteString("</span>")
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
