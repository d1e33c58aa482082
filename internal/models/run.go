package models

import (
	"time"

	"github.com/google/uuid"
)

// Trigger names the caller that started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerSearch   Trigger = "search"
	TriggerChat     Trigger = "chat"
	TriggerAlert    Trigger = "alert"
)

// Stage is a step of the per-source ingestion state machine.
type Stage string

const (
	StagePending    Stage = "pending"
	StageFetching   Stage = "fetching"
	StageExtracting Stage = "extracting"
	StageFiltering  Stage = "filtering"
	StagePersisting Stage = "persisting"
	StageDone       Stage = "done"
)

// RunRequest parameterizes one ingestion run.
type RunRequest struct {
	Keyword string
	Origin  Origin
	Trigger Trigger
	// Source restricts the run to one source, matched case-insensitively. Empty runs them all.
	Source string
}

// SourceReport summarizes what happened to one source during a run.
type SourceReport struct {
	Source string
	Stage  Stage // last stage reached; StageDone on success
	Err    error

	// Skipped is set when the source has nothing to fetch for this request.
	Skipped bool

	Listings int
	Accepted int

	RejectedPrice   int
	RejectedQuality int
	RejectedKeyword int
	StoreErrors     int
}

// RunReport is the outcome of a run.
type RunReport struct {
	ID         uuid.UUID
	Request    RunRequest
	StartedAt  time.Time
	FinishedAt time.Time
	// ProductIDs holds every product touched by the run, in first-seen order.
	ProductIDs []int64
	Sources    []SourceReport
}

// Failed returns the reports of sources that did not reach StageDone.
func (r *RunReport) Failed() []SourceReport {
	var failed []SourceReport
	for _, s := range r.Sources {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}
