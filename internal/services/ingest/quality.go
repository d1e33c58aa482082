package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/Houeta/offerhunt/internal/normalizer"
)

const (
	minNameRunes = 3
	maxNameRunes = 200
)

// Quality rejection reasons.
const (
	ReasonEmptyName = "empty name"
	ReasonShortName = "name too short"
	ReasonLongName  = "name too long"
	ReasonNoise     = "ui noise"
)

// noiseVocabulary is button and widget text that adapters capture by accident, stored folded.
var noiseVocabulary = []string{
	"add to cart",
	"anadir",
	"carrito",
	"comprar",
	"buy now",
	"quick view",
	"vista rapida",
	"read more",
	"leer mas",
	"seleccionar opciones",
	"select options",
}

// CheckName returns the reason a listing name is rejected, or "" when it passes.
func CheckName(name string) string {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return ReasonEmptyName
	case n < minNameRunes:
		return ReasonShortName
	case n > maxNameRunes:
		return ReasonLongName
	}

	folded := normalizer.Fold(name)
	for _, noise := range noiseVocabulary {
		if strings.Contains(folded, noise) {
			return ReasonNoise
		}
	}

	return ""
}

// MatchesKeyword reports whether every word of keyword occurs in name, ignoring case and accents.
func MatchesKeyword(name, keyword string) bool {
	folded := normalizer.Fold(name)
	for _, word := range strings.Fields(normalizer.Fold(keyword)) {
		if !strings.Contains(folded, word) {
			return false
		}
	}
	return true
}
