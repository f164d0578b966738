package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageText flattens an HTML document to its visible text, with whitespace
// runs collapsed to single spaces. Script, style and noscript contents are
// stripped first so the match cascade sees only what a reader would.
func PageText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
