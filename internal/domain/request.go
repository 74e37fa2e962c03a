package domain

import "fmt"

// FontStrategy is how the font reaches the rendering surface.
type FontStrategy string

const (
	// FontEmbedBase64 inlines the font file as a data URI. This is the
	// reference behaviour: nothing has to be fetched while the page loads.
	FontEmbedBase64 FontStrategy = "embed-base64"
	// FontLinkURL references the font through the service's static route.
	FontLinkURL FontStrategy = "link-url"
	// FontRasterizeImage renders the text once, screenshots it and prints a
	// page holding the image plus an invisible text layer.
	FontRasterizeImage FontStrategy = "rasterize-image"
)

// FontStrategies lists the supported strategies in preference order.
var FontStrategies = []FontStrategy{FontEmbedBase64, FontLinkURL, FontRasterizeImage}

// ParseFontStrategy validates a strategy name.
func ParseFontStrategy(s string) (FontStrategy, error) {
	for _, fs := range FontStrategies {
		if string(fs) == s {
			return fs, nil
		}
	}
	return "", fmt.Errorf("unknown font strategy %q", s)
}

// RenderRequest is the input of one render. It is built per request and
// dropped once the response has been written.
type RenderRequest struct {
	Text     string
	Lang     string
	Dir      string // "rtl" or "ltr"; detected from Text when empty
	Strategy FontStrategy
	Filename string
}

// Artifact is a rendered PDF. Bytes must not be modified after capture.
type Artifact struct {
	PDF      []byte
	Filename string
	Pages    int
	// DependenciesReady records whether the page had signalled that fonts
	// and images finished loading when it was printed.
	DependenciesReady bool
}
