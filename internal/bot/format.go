package bot

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Houeta/offerhunt/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var errBadTarget = errors.New("target price is not a number")

var printer = message.NewPrinter(language.Spanish)

// parseTrackArgs splits a /track payload such as "iphone 15 <=5.000.000" into the keyword and
// the optional target price.
func parseTrackArgs(payload string) (string, *float64, error) {
	keyword := payload
	var target *float64

	if idx := strings.Index(payload, "<"); idx >= 0 {
		keyword = payload[:idx]

		raw := strings.TrimSpace(payload[idx+1:])
		raw = strings.TrimPrefix(raw, "=")
		raw = strings.NewReplacer(".", "", ",", "", " ", "").Replace(raw)

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			return "", nil, errBadTarget
		}
		target = &value
	}

	keyword = strings.Join(strings.Fields(keyword), " ")
	if keyword == "" {
		return "", nil, errors.New("keyword is empty")
	}

	return keyword, target, nil
}

// formatPrice renders an amount as guaraníes with Spanish digit grouping.
func formatPrice(amount float64) string {
	return printer.Sprintf("Gs. %d", int64(math.Round(amount)))
}

func formatMatch(match models.SearchResult) string {
	return fmt.Sprintf(
		"%s\n%s en %s\n%s",
		match.Product.Name,
		formatPrice(match.Latest.Amount),
		match.Latest.Store,
		match.Product.URL,
	)
}
