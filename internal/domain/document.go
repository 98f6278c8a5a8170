package domain

// Page is the extracted text of one document page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Document is the raw text of a source, page by page.
type Document struct {
	Path  string
	Pages []Page
}
