// Package edgar holds the SEC form and section identifiers understood by the
// sec-api.io item extraction API, together with their canonical names.
package edgar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDocumentType is returned when a form type is not recognised.
	ErrInvalidDocumentType = errors.New("invalid document type")

	// ErrInvalidSection is returned when a section id is not recognised.
	ErrInvalidSection = errors.New("invalid section")
)

// DocumentType is an SEC form type.
type DocumentType string

const (
	// DocumentTypeInvalid is a placeholder for unknown or unimplemented forms.
	DocumentTypeInvalid DocumentType = "INVALID"

	// Form10Q is the quarterly report.
	Form10Q DocumentType = "10-Q"

	// Form10K is the annual report.
	Form10K DocumentType = "10-K"

	// Form8K is the current report.
	Form8K DocumentType = "8-K"
)

// DocumentTypes lists every supported form in a stable order.
func DocumentTypes() []DocumentType {
	return []DocumentType{Form10Q, Form10K, Form8K}
}

// ParseDocumentType converts user input such as " 10-k" into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	doc := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	if !doc.Valid() {
		return DocumentTypeInvalid, fmt.Errorf("%w %q", ErrInvalidDocumentType, s)
	}
	return doc, nil
}

// Valid reports whether the form has a section table.
func (d DocumentType) Valid() bool {
	_, ok := formSections[d]
	return ok
}

func (d DocumentType) String() string {
	return string(d)
}

// SectionType is a section id in the form expected by the extractor API.
type SectionType string

// 10-Q sections.
const (
	Form10QPart1Item1  SectionType = "part1item1"
	Form10QPart1Item2  SectionType = "part1item2"
	Form10QPart1Item3  SectionType = "part1item3"
	Form10QPart1Item4  SectionType = "part1item4"
	Form10QPart2Item1  SectionType = "part2item1"
	Form10QPart2Item1A SectionType = "part2item1a"
	Form10QPart2Item2  SectionType = "part2item2"
	Form10QPart2Item3  SectionType = "part2item3"
	Form10QPart2Item4  SectionType = "part2item4"
	Form10QPart2Item5  SectionType = "part2item5"
	Form10QPart2Item6  SectionType = "part2item6"
)

// 10-K sections.
const (
	Form10K1  SectionType = "1"
	Form10K1A SectionType = "1A"
	Form10K1B SectionType = "1B"
	Form10K2  SectionType = "2"
	Form10K3  SectionType = "3"
	Form10K4  SectionType = "4"
	Form10K5  SectionType = "5"
	Form10K6  SectionType = "6"
	Form10K7  SectionType = "7"
	Form10K7A SectionType = "7A"
	Form10K8  SectionType = "8"
	Form10K9  SectionType = "9"
	Form10K9A SectionType = "9A"
	Form10K9B SectionType = "9B"
	Form10K10 SectionType = "10"
	Form10K11 SectionType = "11"
	Form10K12 SectionType = "12"
	Form10K13 SectionType = "13"
	Form10K14 SectionType = "14"
	// Form10K15 is accepted by the API but not described in its docs.
	Form10K15 SectionType = "15"
)

// 8-K items.
const (
	Form8KItem101   SectionType = "1-1"
	Form8KItem102   SectionType = "1-2"
	Form8KItem103   SectionType = "1-3"
	Form8KItem104   SectionType = "1-4"
	Form8KItem105   SectionType = "1-5"
	Form8KItem201   SectionType = "2-1"
	Form8KItem202   SectionType = "2-2"
	Form8KItem203   SectionType = "2-3"
	Form8KItem204   SectionType = "2-4"
	Form8KItem205   SectionType = "2-5"
	Form8KItem206   SectionType = "2-6"
	Form8KItem301   SectionType = "3-1"
	Form8KItem302   SectionType = "3-2"
	Form8KItem303   SectionType = "3-3"
	Form8KItem401   SectionType = "4-1"
	Form8KItem402   SectionType = "4-2"
	Form8KItem501   SectionType = "5-1"
	Form8KItem502   SectionType = "5-2"
	Form8KItem503   SectionType = "5-3"
	Form8KItem504   SectionType = "5-4"
	Form8KItem505   SectionType = "5-5"
	Form8KItem506   SectionType = "5-6"
	Form8KItem507   SectionType = "5-7"
	Form8KItem508   SectionType = "5-8"
	Form8KItem601   SectionType = "6-1"
	Form8KItem602   SectionType = "6-2"
	Form8KItem603   SectionType = "6-3"
	Form8KItem604   SectionType = "6-4"
	Form8KItem605   SectionType = "6-5"
	Form8KItem606   SectionType = "6-6"
	Form8KItem610   SectionType = "6-10"
	Form8KItem701   SectionType = "7-1"
	Form8KItem801   SectionType = "8-1"
	Form8KItem901   SectionType = "9-1"
	Form8KSignature SectionType = "signature"
)

// UnknownSectionTitle is returned by Title for ids without a canonical name.
const UnknownSectionTitle = "Unknown Section"

// ParseSection resolves a section id. Matching tolerates case differences,
// so "1a" resolves to 1A and "PART1ITEM1" to part1item1.
func ParseSection(s string) (SectionType, error) {
	trimmed := strings.TrimSpace(s)
	for _, candidate := range []string{trimmed, strings.ToLower(trimmed), strings.ToUpper(trimmed)} {
		if section := SectionType(candidate); section.Valid() {
			return section, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrInvalidSection, s)
}

// ParseSections resolves a list of section ids, stopping at the first error.
func ParseSections(ids []string) ([]SectionType, error) {
	sections := make([]SectionType, 0, len(ids))
	for _, id := range ids {
		section, err := ParseSection(id)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// Valid reports whether the id has a canonical name.
func (s SectionType) Valid() bool {
	_, ok := sectionTitles[s]
	return ok
}

// Title returns the canonical section name.
func (s SectionType) Title() string {
	if title, ok := sectionTitles[s]; ok {
		return title
	}
	return UnknownSectionTitle
}

func (s SectionType) String() string {
	return string(s)
}

// FormSections returns the ordered section list of a form, or nil when the
// form is unknown. The slice is a copy and may be modified by the caller.
func FormSections(doc DocumentType) []SectionType {
	sections, ok := formSections[doc]
	if !ok {
		return nil
	}
	out := make([]SectionType, len(sections))
	copy(out, sections)
	return out
}

// SectionsFor reports whether section is part of the form's section table.
func SectionsFor(doc DocumentType, section SectionType) bool {
	for _, s := range formSections[doc] {
		if s == section {
			return true
		}
	}
	return false
}
