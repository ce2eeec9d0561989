package webintel

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content (usually an Extractor's output) into Markdown.
	Convert(html string) (string, error)
}
