// Package report assembles per-section HTML into one document. Every section
// is preceded by a hidden marker tag so consumers can locate sections again.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/Sternrassler/sec-api-client/pkg/edgar"
)

// MarkerComment is the fixed comment attribute of every marker tag.
const MarkerComment = "This tag was added by sec-api-io library based on sec-api.io API"

// ErrNoMarkers is returned by Split when a document carries no section marker.
var ErrNoMarkers = errors.New("document has no section markers")

var (
	titleStripRe = regexp.MustCompile(`[^a-zA-Z0-9' ]+`)

	markerRe = regexp.MustCompile(`<top-level-section-start-marker id="([^"]*)" title="([^"]*)" comment="` +
		regexp.QuoteMeta(MarkerComment) + `" style="display: none;"</top-level-section-start-marker>`)
)

// Marker returns the hidden tag placed before a section. The start tag is
// left unterminated; existing consumers match these exact bytes.
func Marker(section edgar.SectionType) string {
	return fmt.Sprintf(
		`<top-level-section-start-marker id="%s" title="%s" comment="%s" style="display: none;"</top-level-section-start-marker>`,
		section, MarkerTitle(section.Title()), MarkerComment)
}

// MarkerTitle removes everything but ASCII letters, digits, apostrophes and
// spaces from a section title.
func MarkerTitle(title string) string {
	return titleStripRe.ReplaceAllString(title, "")
}

// Section is the extracted HTML of one section.
type Section struct {
	Type  edgar.SectionType `json:"id"`
	Title string            `json:"title"`
	HTML  string            `json:"html"`
}

// Report is a filing reassembled from its sections, in request order.
type Report struct {
	DocumentType edgar.DocumentType `json:"document_type"`
	URL          string             `json:"url"`
	Sections     []Section          `json:"sections"`
}

// New pairs sections with their fetched HTML. The slices must have equal length.
func New(doc edgar.DocumentType, url string, sections []edgar.SectionType, htmls []string) (*Report, error) {
	if len(sections) != len(htmls) {
		return nil, fmt.Errorf("got %d html bodies for %d sections", len(htmls), len(sections))
	}

	r := &Report{
		DocumentType: doc,
		URL:          url,
		Sections:     make([]Section, len(sections)),
	}
	for i, section := range sections {
		r.Sections[i] = Section{Type: section, Title: section.Title(), HTML: htmls[i]}
	}
	return r, nil
}

// HTML joins marker and body of every section with newlines.
func (r *Report) HTML() string {
	parts := make([]string, 0, 2*len(r.Sections))
	for _, s := range r.Sections {
		parts = append(parts, Marker(s.Type), s.HTML)
	}
	return strings.Join(parts, "\n")
}

// Markdown renders each section as a level-two heading followed by its body
// converted to GitHub flavoured Markdown.
func (r *Report) Markdown() (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	var sb strings.Builder
	for i, s := range r.Sections {
		body, err := converter.ConvertString(s.HTML)
		if err != nil {
			return "", fmt.Errorf("convert section %s: %w", s.Type, err)
		}

		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(s.Title)
		if body = strings.TrimSpace(body); body != "" {
			sb.WriteString("\n\n")
			sb.WriteString(body)
		}
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// Split is the inverse of HTML: it cuts a document at its markers. Titles
// come from the section table when the id is known and from the marker
// otherwise.
func Split(document string) ([]Section, error) {
	matches := markerRe.FindAllStringSubmatchIndex(document, -1)
	if len(matches) == 0 {
		return nil, ErrNoMarkers
	}
	if lead := strings.TrimSpace(document[:matches[0][0]]); lead != "" {
		return nil, fmt.Errorf("unexpected content before first marker: %.40q", lead)
	}

	sections := make([]Section, len(matches))
	for i, m := range matches {
		id := edgar.SectionType(document[m[2]:m[3]])
		title := document[m[4]:m[5]]
		if id.Valid() {
			title = id.Title()
		}

		end := len(document)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := document[m[1]:end]
		body = strings.TrimPrefix(body, "\n")
		if i+1 < len(matches) {
			body = strings.TrimSuffix(body, "\n")
		}

		sections[i] = Section{Type: id, Title: title, HTML: body}
	}
	return sections, nil
}
