package models

import "time"

// FetchStrategy tells the fetch executor how a source's pages must be retrieved.
type FetchStrategy string

const (
	// StrategyStatic is a single HTTP request/response.
	StrategyStatic FetchStrategy = "static"
	// StrategyRendered loads the page in a headless browser and reads the resulting DOM.
	StrategyRendered FetchStrategy = "rendered"
)

// FetchTarget describes one page a source wants fetched for a run.
type FetchTarget struct {
	URL      string
	Strategy FetchStrategy
	// WaitSelector is awaited after load by the rendered strategy.
	WaitSelector string
	// SettleDelay is slept after load when WaitSelector is empty.
	SettleDelay time.Duration
	Scroll      bool
	// KeywordGuard is set when the keyword could not be passed to the source,
	// so listings must be checked against it before persisting.
	KeywordGuard bool
}

// Page is fetched content handed to a source adapter.
type Page struct {
	URL       string
	HTML      []byte
	FetchedAt time.Time
}

// RawListing is a candidate product entry extracted from a page, before normalization.
type RawListing struct {
	Source    string
	Name      string
	URL       string
	PriceText string
	ImageURL  string
}
