package models

import "time"

// TrackingAlert is a chat's standing watch on a keyword.
type TrackingAlert struct {
	ChatID      int64
	Keyword     string
	TargetPrice *float64 // nil when any price should be reported
	CreatedAt   time.Time
}

// Accepts reports whether amount satisfies the alert's target price.
func (a TrackingAlert) Accepts(amount float64) bool {
	return a.TargetPrice == nil || amount <= *a.TargetPrice
}
