package render

import "golang.org/x/text/unicode/bidi"

// Direction returns "rtl" when the first strongly typed character of text is
// right-to-left (Hebrew, Arabic), otherwise "ltr".
func Direction(text string) string {
	for _, r := range text {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.R, bidi.AL:
			return "rtl"
		case bidi.L:
			return "ltr"
		}
	}
	return "ltr"
}
