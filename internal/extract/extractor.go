// Package extract turns FIS athlete profile pages into raw athlete records.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
)

// Profile page selectors.
const (
	nameSelector       = "h1.athlete-profile__name"
	infoFieldClass     = "profile-info__field"
	infoValueClass     = "profile-info__value"
	birthdateLabel     = "Birthdate"
	rowSelector        = "a.table-row"
	dateSelector       = "div.g-xs-4.g-sm-4.g-md-4.g-lg-4"
	placeSelector      = "div.g-md.g-lg.justify-left.hidden-sm-down"
	categorySelector   = "div.g-md-5.g-lg-5.justify-left.hidden-sm-down"
	disciplineSelector = "div.g-md-3.g-lg-3.justify-left.hidden-sm-down"
	nationSelector     = "span.country__name-short"
	rightGroupSelector = "div.g-xs-6.g-sm-6.g-md-6.g-lg-6.justify-right.flex-xs-wrap > div"
)

// Query parameters identifying the athlete and sector.
const (
	competitorParam = "competitorid"
	sectorParam     = "sectorcode"
)

// placeholderNamePrefix is used when the page carries no usable name.
const placeholderNamePrefix = "Athlete "

// Extractor implements athlete.Extractor for FIS profile pages.
type Extractor struct{}

var _ athlete.Extractor = (*Extractor)(nil)

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses body as the profile page served at sourceURL. Only a source
// URL lacking the competitor or sector parameter is an error; missing page
// fields degrade to defaults.
func (e *Extractor) Extract(body []byte, sourceURL string) (athlete.RawAthleteRecord, error) {
	externalID, sportCode, err := identify(sourceURL)
	if err != nil {
		return athlete.RawAthleteRecord{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return athlete.RawAthleteRecord{}, fmt.Errorf("parse profile %s: %w", sourceURL, err)
	}

	return athlete.RawAthleteRecord{
		SourceURL:  sourceURL,
		ExternalID: externalID,
		SportCode:  sportCode,
		Name:       extractName(doc, externalID),
		BirthDate:  extractBirthDate(doc),
		Results:    extractResults(doc),
	}, nil
}

func identify(sourceURL string) (externalID, sportCode string, err error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse url %q: %v", athlete.ErrMalformedPage, sourceURL, err)
	}
	q := u.Query()
	externalID = strings.TrimSpace(q.Get(competitorParam))
	sportCode = strings.TrimSpace(q.Get(sectorParam))
	if externalID == "" {
		return "", "", fmt.Errorf("%w: %s has no %s parameter", athlete.ErrMalformedPage, sourceURL, competitorParam)
	}
	if sportCode == "" {
		return "", "", fmt.Errorf("%w: %s has no %s parameter", athlete.ErrMalformedPage, sourceURL, sectorParam)
	}
	return externalID, sportCode, nil
}

func extractName(doc *goquery.Document, externalID string) string {
	heading := doc.Find(nameSelector).First()
	name := NormalizeName(strings.Join(textPieces(heading), ""))
	if name == "" {
		return placeholderNamePrefix + externalID
	}
	return name
}

// extractBirthDate finds the first labelled Birthdate field and reads the next
// value span in document order.
func extractBirthDate(doc *goquery.Document) string {
	var (
		labelSeen bool
		value     string
	)
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !labelSeen {
			labelSeen = s.HasClass(infoFieldClass) && strings.Contains(s.Text(), birthdateLabel)
			return true
		}
		if !s.HasClass(infoValueClass) {
			return true
		}
		value = strings.Join(textPieces(s), "")
		return false
	})
	iso, ok := ReorderDate(value)
	if !ok {
		return ""
	}
	return iso
}

func extractResults(doc *goquery.Document) []athlete.RawResult {
	rows := doc.Find(rowSelector)
	results := make([]athlete.RawResult, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		results = append(results, parseRow(row))
	})
	return results
}

func parseRow(row *goquery.Selection) athlete.RawResult {
	r := athlete.RawResult{
		Place:      columnText(row, placeSelector),
		Category:   columnText(row, categorySelector),
		Discipline: columnText(row, disciplineSelector),
		Nation:     columnText(row, nationSelector),
	}
	if date, ok := ReorderDate(columnText(row, dateSelector)); ok {
		r.Date = date
	}

	// Rank, FIS points and cup points are only read positionally when the
	// whole group is present.
	group := row.Find(rightGroupSelector)
	if group.Length() < 3 {
		return r
	}
	r.Rank, r.RankStatus = ParseRank(joinText(group.Eq(0)))
	r.FISPoints = ParsePoints(joinText(group.Eq(1)))
	r.CupPoints = ParsePoints(joinText(group.Eq(2)))
	return r
}

func columnText(row *goquery.Selection, selector string) string {
	return joinText(row.Find(selector).First())
}

func joinText(s *goquery.Selection) string {
	return strings.Join(textPieces(s), " ")
}

// textPieces returns the trimmed, non-empty text nodes under s in document
// order.
func textPieces(s *goquery.Selection) []string {
	var pieces []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				pieces = append(pieces, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return pieces
}
