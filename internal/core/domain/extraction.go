package domain

// Page is a page span within extracted text.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// StartChar is the byte offset where the page begins.
	StartChar int

	// EndChar is the exclusive byte offset where the page ends.
	EndChar int
}

// Section is a heading found in extracted text.
type Section struct {
	Title     string
	StartChar int
}

// Extraction is the canonical text of a document plus its structure.
// Pages and Sections are optional and ordered by StartChar.
type Extraction struct {
	Text     string
	Pages    []Page
	Sections []Section

	// Title is a title found in the source itself, if any.
	Title string

	// Extractor names the implementation that produced the text.
	Extractor string
}

// PageAt returns the page number containing offset, defaulting to 1.
func PageAt(pages []Page, offset int) int {
	for _, p := range pages {
		if offset >= p.StartChar && offset < p.EndChar {
			return p.Number
		}
	}
	// Offsets inside a page separator belong to the preceding page.
	page := 1
	for _, p := range pages {
		if p.StartChar <= offset {
			page = p.Number
		}
	}
	return page
}

// SectionAt returns the title of the nearest section starting at or before offset.
func SectionAt(sections []Section, offset int) string {
	title := ""
	for _, s := range sections {
		if s.StartChar > offset {
			break
		}
		title = s.Title
	}
	return title
}
