// Package normalizer turns locale-formatted price text into numeric amounts.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultFloor rejects values that are almost certainly badges, percentages or SKU fragments.
const DefaultFloor = 5000

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// markerPattern matches the currency markers us$, pyg, gs., gs, ₲ and $. Letter markers count
// only as whole words, so "Settings" or "Kingston" carry no marker.
var markerPattern = regexp.MustCompile(`(?i)(^|[^\pL])(us\$|pyg|gs\.?)($|[^\pL])|₲|\$`)

// noiseWords are fragments retailers print next to the amount.
var noiseWords = []string{"add to cart", "precio", "contado", "lista", "internet", "price", "cart"}

// Options configures a Normalizer.
type Options struct {
	// Floor is the minimum plausible amount; values below it are rejected.
	Floor float64
	// RequireMarker rejects text that carries no currency marker.
	RequireMarker bool
	// DecimalComma treats ',' as the decimal separator and '.' as thousands separator.
	DecimalComma bool
}

// DefaultOptions matches the single-denomination (guaraní) stores.
func DefaultOptions() Options {
	return Options{Floor: DefaultFloor, RequireMarker: true, DecimalComma: true}
}

// Normalizer converts raw price text into an amount. It is safe for concurrent use.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize returns the amount in raw and true, or false when raw is not a plausible price.
// Malformed input is a normal case and never causes a panic.
func (n *Normalizer) Normalize(raw string) (float64, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return 0, false
	}
	text = strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(text)

	if n.opts.RequireMarker && !HasMarker(text) {
		return 0, false
	}

	text = markerPattern.ReplaceAllString(text, "${1} ${3}")
	for _, w := range noiseWords {
		text = strings.ReplaceAll(text, w, " ")
	}

	if n.opts.DecimalComma {
		text = strings.ReplaceAll(text, ".", "")
		text = strings.ReplaceAll(text, ",", ".")
	} else {
		text = strings.ReplaceAll(text, ",", "")
	}

	token := numberPattern.FindString(text)
	if token == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil || value < n.opts.Floor {
		return 0, false
	}

	return value, true
}

// HasMarker reports whether text contains a recognized currency marker.
func HasMarker(text string) bool {
	return markerPattern.MatchString(text)
}
