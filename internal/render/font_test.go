package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoveCode20/arabic-pdf-pages/internal/domain"
)

func TestLoadFont_Valid(t *testing.T) {
	p := writeTestFont(t)
	f, err := LoadFont(p, "ArabicFont")
	require.NoError(t, err)
	assert.Equal(t, "truetype", f.Format)
	assert.Equal(t, "font/ttf", f.MIME)
	assert.Equal(t, "GoRegular.ttf", f.FileName())
	assert.True(t, strings.HasPrefix(f.DataURI(), "data:font/ttf;base64,AAEAAA"))
}

func TestLoadFont_MissingFileIsResourceMissing(t *testing.T) {
	_, err := LoadFont(filepath.Join(t.TempDir(), "nope.ttf"), "ArabicFont")
	assert.ErrorIs(t, err, domain.ErrResourceMissing)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadFont_EmptyOrGarbageIsResourceMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.ttf")
	garbage := filepath.Join(dir, "garbage.ttf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a font file"), 0o644))

	for _, p := range []string{empty, garbage} {
		_, err := LoadFont(p, "ArabicFont")
		assert.Equal(t, domain.KindResourceMissing, domain.KindOf(err), p)
	}
}

func TestLoadFont_WOFFIsNotParsed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "font.woff2")
	require.NoError(t, os.WriteFile(p, []byte("wOF2 pretend payload"), 0o644))

	f, err := LoadFont(p, "ArabicFont")
	require.NoError(t, err)
	assert.Equal(t, "woff2", f.Format)
	assert.Nil(t, f.MissingGlyphs(arabicText))
}

func TestMissingGlyphs(t *testing.T) {
	f, err := LoadFont(writeTestFont(t), "ArabicFont")
	require.NoError(t, err)

	assert.Empty(t, f.MissingGlyphs("hello world"))

	missing := f.MissingGlyphs(arabicText)
	assert.Contains(t, missing, 'م')
	assert.NotContains(t, missing, ' ')
	assert.Len(t, missing, len(uniqueLetters(arabicText)))
}

func uniqueLetters(s string) map[rune]bool {
	m := map[rune]bool{}
	for _, r := range s {
		if r != ' ' {
			m[r] = true
		}
	}
	return m
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "rtl", Direction(arabicText))
	assert.Equal(t, "rtl", Direction("123 שלום"))
	assert.Equal(t, "ltr", Direction("hello مرحبا"))
	assert.Equal(t, "ltr", Direction("2024"))
	assert.Equal(t, "ltr", Direction(""))
}
