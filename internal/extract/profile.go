// Package extract turns fetched HTML into storable records: subject fields
// from a profile page, reference links from its "URLs of interest" section,
// and flattened page text for the content check.
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/linkcheck-service/internal/entity"
)

// Profile extracts a subject and its reference links from a profile page.
// Missing optional fields stay zero-valued; a page without the expected
// title structure is rejected as not a profile page.
func Profile(html, pageURL string) (*entity.Subject, []*entity.LinkRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	subject := &entity.Subject{
		Slug:         slugFromURL(pageURL),
		ProfileURL:   pageURL,
		SectorDetail: "[]",
		CreatedAt:    time.Now().UTC(),
	}

	title := doc.Find("h1.entry-title").First()
	if title.Length() == 0 {
		return nil, nil, fmt.Errorf("no profile title found at %s", pageURL)
	}
	subject.Name = strings.TrimSpace(title.Text())

	if src, ok := doc.Find("div.thumbnail img").First().Attr("src"); ok {
		subject.ImageURL = src
	}

	doc.Find("p.basic-info-item").Each(func(_ int, p *goquery.Selection) {
		applyBasicInfo(subject, p)
	})

	extractSource(subject, doc)
	extractAuthor(subject, doc)
	extractDescription(subject, doc)
	extractContactEmail(subject, doc)

	return subject, referenceLinks(doc), nil
}

func slugFromURL(pageURL string) string {
	trimmed := strings.TrimRight(pageURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func applyBasicInfo(subject *entity.Subject, p *goquery.Selection) {
	label := strings.TrimSuffix(strings.TrimSpace(p.Find("span").First().Text()), ":")

	var value string
	if a := p.Find("a").First(); a.Length() > 0 {
		value = strings.TrimSpace(a.Text())
	} else {
		text := strings.TrimSpace(p.Text())
		if _, after, found := strings.Cut(text, ":"); found {
			value = strings.TrimSpace(after)
		}
	}

	switch {
	case label == "Region":
		subject.Region = value
	case label == "Country":
		subject.Country = value
	case label == "Department/Province/State":
		subject.State = value
	case strings.HasPrefix(label, "Sex"):
		subject.Sex = value
	case label == "Date of Killing":
		subject.DateOfKilling = normalizeDate(value)
	case label == "Previous Threats":
		subject.PreviousThreats = strings.EqualFold(value, "yes")
	case label == "Type of Work":
		subject.TypeOfWork = value
	case strings.HasPrefix(label, "Sector or Type of Rights"):
		subject.Sector = value
	case label == "Sector Detail":
		var details []string
		p.Find("a").Each(func(_ int, a *goquery.Selection) {
			details = append(details, strings.TrimSpace(a.Text()))
		})
		if encoded, err := json.Marshal(details); err == nil {
			subject.SectorDetail = string(encoded)
		}
	case label == "More information":
		subject.MoreInformation = value
	}
}

func extractSource(subject *entity.Subject, doc *goquery.Document) {
	doc.Find("strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), "Source:") {
			return true
		}
		if a := s.Parent().Find("a").First(); a.Length() > 0 {
			subject.SourceName = strings.TrimSpace(a.Text())
			subject.SourceURL, _ = a.Attr("href")
		}
		return false
	})
}

func extractAuthor(subject *entity.Subject, doc *goquery.Document) {
	meta := doc.Find("p.meta").First()
	if text := meta.Text(); strings.Contains(text, "Written by") {
		subject.Author = strings.TrimSpace(strings.ReplaceAll(text, "Written by", ""))
	}
}

func extractDescription(subject *entity.Subject, doc *goquery.Document) {
	desc := doc.Find("div.entry-content").First()
	if desc.Length() == 0 {
		return
	}
	// Embedded players carry no text and bloat the stored HTML.
	desc.Find("iframe").Remove()

	if outer, err := goquery.OuterHtml(desc); err == nil {
		subject.DescriptionHTML = outer
	}

	var paragraphs []string
	desc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	subject.DescriptionText = strings.Join(paragraphs, "\n\n")
}

func extractContactEmail(subject *entity.Subject, doc *goquery.Document) {
	doc.Find("h5").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(h.Text()), "contact") {
			return true
		}
		if a := h.NextFiltered("p").Find("a[href]").First(); a.Length() > 0 {
			href, _ := a.Attr("href")
			subject.ContactEmail = strings.TrimPrefix(href, "mailto:")
		}
		return false
	})
}

// referenceLinks reads the "URLs of interest" definition list: each dt is
// the label, its dd holds the anchor. All validation fields start null.
func referenceLinks(doc *goquery.Document) []*entity.LinkRecord {
	var links []*entity.LinkRecord
	doc.Find("h5").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(h.Text(), "URLs") {
			return true
		}
		h.NextFiltered("dl").Find("dt").Each(func(_ int, dt *goquery.Selection) {
			a := dt.NextFiltered("dd").Find("a[href]").First()
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			links = append(links, &entity.LinkRecord{
				Label: strings.TrimSpace(dt.Text()),
				URL:   href,
			})
		})
		return false
	})
	return links
}

func normalizeDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		slog.Warn("Date parse failed", "value", s)
		return nil
	}
	return &t
}
