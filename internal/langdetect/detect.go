// Package langdetect guesses the language of a text by counting common
// function words. It is a heuristic: short or mixed texts may come back as
// a neighbouring language or as Unknown.
package langdetect

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const Unknown = "unknown"

type markerSet struct {
	tag   language.Tag
	words map[string]struct{}
}

// Order matters: on equal counts the earlier language wins.
var markers = []markerSet{
	newMarkerSet(language.French, "je tu nous vous ils elles le la les un une des et ou mais donc car est sont"),
	newMarkerSet(language.English, "the a an of to in is are and or but for with that this"),
	newMarkerSet(language.Spanish, "el la los las un una unos unas y o pero porque como está están"),
	newMarkerSet(language.German, "der die das ein eine und oder aber ist sind für mit dass"),
	newMarkerSet(language.Italian, "il la lo i gli le un una e o ma perché come è sono"),
	newMarkerSet(language.Russian, "я ты он она оно мы вы они и или но что как это этот эта эти в на с из от для"),
	newMarkerSet(language.Polish, "ja ty on ona ono my wy oni one i lub ale że jak to ten ta te w na z od dla"),
}

func newMarkerSet(tag language.Tag, list string) markerSet {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		words[w] = struct{}{}
	}
	return markerSet{tag: tag, words: words}
}

// Supported lists the language codes Detect can return, in priority order.
func Supported() []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.tag.String())
	}
	return out
}

// Detect returns an ISO 639-1 code such as "fr", or Unknown when no marker
// word occurs in text.
func Detect(text string) string {
	counts := Score(text)

	best, bestCount := Unknown, 0
	for _, m := range markers {
		code := m.tag.String()
		if counts[code] > bestCount {
			best, bestCount = code, counts[code]
		}
	}
	return best
}

// Score returns the marker hit count per language code.
func Score(text string) map[string]int {
	counts := make(map[string]int, len(markers))
	for _, m := range markers {
		counts[m.tag.String()] = 0
	}

	// Casers keep state, so one per call.
	lower := cases.Lower(language.Und).String(text)
	for _, w := range words(lower) {
		for _, m := range markers {
			if _, ok := m.words[w]; ok {
				counts[m.tag.String()]++
			}
		}
	}
	return counts
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) && r != '_'
	})
}
