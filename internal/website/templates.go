// Package website renders the HTML document around live components: head,
// inline styles and the client script.
package website

// PageConfig defines the document metadata.
type PageConfig struct {
	// Title is the page title
	Title string
	// Description is the meta description
	Description string
	// URL is the canonical URL of the page
	URL string
	// Language is the page language (default: "en")
	Language string
	// ThemeColor is the mobile browser theme color
	ThemeColor string
	// Scripts are script URLs appended to the body
	Scripts []string
}

// ClientScript is where the live client is served.
const ClientScript = "/_live/signup.js"

// DefaultPageConfig returns a PageConfig with sensible defaults.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Language:   "en",
		ThemeColor: "#8B5CF6",
	}
}
