package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode"

	"golang.org/x/image/font/sfnt"

	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
)

// FontAsset is a font file read from disk and checked to be usable.
type FontAsset struct {
	Path   string
	Family string
	Format string // CSS format() hint: truetype, opentype, woff, woff2
	MIME   string
	Data   []byte
}

// LoadFont reads and validates the font at path. A missing, empty or
// unparseable file is a domain.KindResourceMissing error.
func LoadFont(path, family string) (*FontAsset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewError(domain.KindResourceMissing, "load font", fmt.Errorf("font file %s does not exist", path))
		}
		return nil, domain.NewError(domain.KindResourceMissing, "load font", err)
	}
	if len(data) == 0 {
		return nil, domain.NewError(domain.KindResourceMissing, "load font", fmt.Errorf("font file %s is empty", path))
	}

	format, mime := sniffFontFormat(data)
	if format == "truetype" || format == "opentype" {
		if _, err := sfnt.Parse(data); err != nil {
			return nil, domain.NewError(domain.KindResourceMissing, "load font", fmt.Errorf("font file %s is not a usable font: %w", path, err))
		}
	}

	return &FontAsset{
		Path:   path,
		Family: family,
		Format: format,
		MIME:   mime,
		Data:   data,
	}, nil
}

// FileName is the name the static route serves the font under.
func (f *FontAsset) FileName() string {
	return filepath.Base(f.Path)
}

// DataURI is the font inlined as base64.
func (f *FontAsset) DataURI() string {
	return "data:" + f.MIME + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// MissingGlyphs returns the letters of text the font has no glyph for.
// Spaces, marks and controls are ignored. WOFF files are not inspected.
func (f *FontAsset) MissingGlyphs(text string) []rune {
	if f.Format != "truetype" && f.Format != "opentype" {
		return nil
	}
	parsed, err := sfnt.Parse(f.Data)
	if err != nil {
		return nil
	}
	var (
		buf     sfnt.Buffer
		missing []rune
		seen    = map[rune]bool{}
	)
	for _, r := range text {
		if seen[r] || unicode.IsSpace(r) || unicode.IsControl(r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		seen[r] = true
		idx, err := parsed.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

func sniffFontFormat(data []byte) (format, mime string) {
	switch {
	case bytes.HasPrefix(data, []byte("wOF2")):
		return "woff2", "font/woff2"
	case bytes.HasPrefix(data, []byte("wOFF")):
		return "woff", "font/woff"
	case bytes.HasPrefix(data, []byte("OTTO")):
		return "opentype", "font/otf"
	default:
		return "truetype", "font/ttf"
	}
}
