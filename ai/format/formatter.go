// Package format converts an LLM-generated reply from CommonMark, which
// is the only structured style models naturally fall back to for lists
// and emphasis, into the plain-text markup a messaging channel actually
// renders. WhatsApp (and every channel this module ships) understands
// none of CommonMark's own syntax, so a reply that asks for **bold** or
// a bullet list would otherwise reach the customer with the raw
// asterisks and dashes still in it.
package format

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// ToChannelText renders a CommonMark reply into WhatsApp's own markup:
// *bold*, _italic_, ~strikethrough~, a "- " bullet per list item, and a
// bare triple-backtick fence around code blocks. On a parse failure the
// original text is returned unchanged rather than dropping the reply.
func ToChannelText(reply string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(reply), &buf); err != nil {
		return reply, err
	}
	return htmlToWhatsApp(buf.String()), nil
}

var (
	strongRe  = regexp.MustCompile(`(?s)<strong>(.*?)</strong>`)
	emRe      = regexp.MustCompile(`(?s)<em>(.*?)</em>`)
	delRe     = regexp.MustCompile(`(?s)<del>(.*?)</del>`)
	preRe     = regexp.MustCompile(`(?s)<pre><code[^>]*>(.*?)</code></pre>`)
	codeRe    = regexp.MustCompile(`(?s)<code>(.*?)</code>`)
	headingRe = regexp.MustCompile(`(?s)<h[1-6]>(.*?)</h[1-6]>`)
	liRe      = regexp.MustCompile(`(?s)<li>(.*?)</li>`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

func htmlToWhatsApp(h string) string {
	h = preRe.ReplaceAllString(h, "```\n$1```\n")
	h = strongRe.ReplaceAllString(h, "*$1*")
	h = emRe.ReplaceAllString(h, "_$1_")
	h = delRe.ReplaceAllString(h, "~$1~")
	h = codeRe.ReplaceAllString(h, "`$1`")
	h = headingRe.ReplaceAllString(h, "*$1*\n")
	h = liRe.ReplaceAllString(h, "- $1\n")
	h = tagRe.ReplaceAllString(h, "")
	h = html.UnescapeString(h)
	h = blankRe.ReplaceAllString(h, "\n\n")

	lines := strings.Split(h, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
