package amazon

import (
	"fmt"
	"regexp"
	"strings"

	"ListingScraper/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const (
	bulletsHeader = "about this item"
	bulletsFooter = "see more product details"
)

// detailsBoilerplate are whole lines dropped from the raw detail blocks.
var detailsBoilerplate = []string{
	"product information",
	"feedback",
	"would you like to tell us about a lower price?",
}

// descriptionSkipMarkers open a region of the rich description that lasts
// until the next blank line.
var descriptionSkipMarkers = []string{
	"from the brand",
	"click to play video",
}

const descriptionHeader = "product description"

var (
	imageURLRegex = regexp.MustCompile(`(?i)(?:https?:)?//[^\s"'<>()\\/][^\s"'<>()\\]*?\.(?:jpe?g|png|gif|webp)\b`)
	videoURLRegex = regexp.MustCompile(`(?i)(?:https?:)?//[^\s"'<>()\\/][^\s"'<>()\\]*?\.mp4\b`)
)

// detailRows matches every key/value row of the product detail tables.
var detailRows = cascadia.MustCompile("table.prodDetTable tr, " +
	"#productDetails_techSpec_section_1 tr, " +
	"#productDetails_detailBullets_sections1 tr, " +
	"#productOverview_feature_div tr")

// CleanBullets drops the "About this item" header line and the
// "See more product details" footer line from the bullet block text. The
// header must be the whole first line; the footer carries a "›" prefix.
func CleanBullets(text string) string {
	lines := utils.NonEmptyLines(text)
	if len(lines) > 0 && strings.ToLower(lines[0]) == bulletsHeader {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.Contains(strings.ToLower(lines[n-1]), bulletsFooter) {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// StripBoilerplate removes the known boilerplate lines of the detail blocks.
func StripBoilerplate(text string) string {
	var kept []string
	for _, line := range utils.NonEmptyLines(text) {
		if isBoilerplate(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, b := range detailsBoilerplate {
		if lower == b {
			return true
		}
	}
	return false
}

// CleanDescription strips the brand/video sections and the bare
// "Product description" header from the rich description text.
func CleanDescription(text string) string {
	var kept []string
	skipping := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if skipping {
			if line == "" {
				skipping = false
			}
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, descriptionSkipMarkers) {
			skipping = true
			continue
		}
		if lower == descriptionHeader {
			continue
		}
		if line == "" && (len(kept) == 0 || kept[len(kept)-1] == "") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractImageURLs returns every image URL referenced in markup, without
// duplicates, in the order they first appear. Protocol-relative references
// are returned as https URLs.
func ExtractImageURLs(markup string) []string {
	matches := imageURLRegex.FindAllString(unescapeSlashes(markup), -1)
	for i, m := range matches {
		matches[i] = absoluteURL(html.UnescapeString(m))
	}
	return utils.UniqueStrings(matches)
}

// FindVideoURL returns the first .mp4 URL in markup, or "" when there is none.
func FindVideoURL(markup string) string {
	m := videoURLRegex.FindString(unescapeSlashes(markup))
	if m == "" {
		return ""
	}
	return absoluteURL(html.UnescapeString(m))
}

// absoluteURL gives protocol-relative references ("//host/x.jpg") the https
// scheme.
func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// unescapeSlashes undoes the JSON escaping of URLs embedded in inline scripts.
func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, `/`)
}

// ParseDetailRows turns the product detail tables found in markup into
// "key: value" lines. Rows missing either side are skipped.
func ParseDetailRows(markup string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail markup: %w", err)
	}
	doc.Find("script, style").Remove()

	var rows []string
	doc.FindMatcher(detailRows).Each(func(_ int, tr *goquery.Selection) {
		key := utils.CollapseSpace(tr.Find("th").First().Text())
		value := utils.CollapseSpace(tr.Find("td").First().Text())
		// the overview table uses two cells instead of th/td
		if key == "" {
			if cells := tr.Find("td"); cells.Length() >= 2 {
				key = utils.CollapseSpace(cells.Eq(0).Text())
				value = utils.CollapseSpace(cells.Eq(1).Text())
			}
		}
		if key == "" || value == "" {
			return
		}
		rows = append(rows, key+": "+value)
	})
	return rows, nil
}
