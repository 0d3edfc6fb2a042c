// Package analysis follows an analysis run from creation to a terminal
// status and turns the status into the stepper shown to the user.
package analysis

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusNone             Status = ""
	StatusStarted          Status = "started"
	StatusGetCommits       Status = "get_commits"
	StatusGetCommitDetails Status = "get_commit_details"
	StatusAnalyzing        Status = "analyzing"
	StatusSuccess          Status = "success"
	StatusFailed           Status = "failed"
)

// Sequence is the order a healthy run moves through.
var Sequence = []Status{StatusStarted, StatusGetCommits, StatusGetCommitDetails, StatusAnalyzing, StatusSuccess}

func (s Status) Terminal() bool { return s == StatusSuccess || s == StatusFailed }

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusStarted, StatusGetCommits, StatusGetCommitDetails, StatusAnalyzing, StatusSuccess, StatusFailed:
		return s, nil
	}
	return StatusNone, fmt.Errorf("unknown analysis status %q", raw)
}

type StepState string

const (
	StepPending   StepState = "pending"
	StepCurrent   StepState = "current"
	StepCompleted StepState = "completed"
)

type Step struct {
	Key         Status
	Index       int
	Title       string
	Description string
	State       StepState
}

var stepDefs = []Step{
	{Key: StatusStarted, Title: "Analysis Started", Description: "Initializing analysis process"},
	{Key: StatusGetCommits, Title: "Fetching Commits", Description: "Retrieving commit history from repository"},
	{Key: StatusGetCommitDetails, Title: "Processing Details", Description: "Analyzing commit details and changes"},
	{Key: StatusAnalyzing, Title: "Data Analysis", Description: "Running AI analysis on collected data"},
}

// StepIndex returns the position of a non-terminal status, or -1.
func StepIndex(s Status) int {
	for i, d := range stepDefs {
		if d.Key == s {
			return i
		}
	}
	return -1
}

// DeriveSteps maps a run status onto the stepper. With no run every step is
// pending; a terminal status marks every step completed.
func DeriveSteps(status Status) []Step {
	cur := StepIndex(status)
	out := make([]Step, len(stepDefs))
	for i, d := range stepDefs {
		d.Index = i
		switch {
		case status.Terminal():
			d.State = StepCompleted
		case cur < 0:
			d.State = StepPending
		case i < cur:
			d.State = StepCompleted
		case i == cur:
			d.State = StepCurrent
		default:
			d.State = StepPending
		}
		out[i] = d
	}
	return out
}

// Tracker accumulates the statuses observed for one run. It never moves
// backwards: a status earlier than one already seen is ignored, and nothing
// changes once the run is terminal. It also remembers the last working step
// so a failure can be pinned to it.
type Tracker struct {
	status     Status
	lastActive Status
}

func (t *Tracker) Reset() { *t = Tracker{} }

// Observe records s and reports whether the visible status changed.
func (t *Tracker) Observe(s Status) bool {
	if t.status.Terminal() || s == StatusNone || s == t.status {
		return false
	}
	if !s.Terminal() {
		if StepIndex(s) < StepIndex(t.status) {
			return false
		}
		t.lastActive = s
	}
	t.status = s
	return true
}

func (t *Tracker) Status() Status { return t.status }
func (t *Tracker) Steps() []Step  { return DeriveSteps(t.status) }

// FailedAt returns the step that was running when the run failed. A run that
// failed before reporting any step failed at the first one.
func (t *Tracker) FailedAt() (Step, bool) {
	if t.status != StatusFailed {
		return Step{}, false
	}
	i := StepIndex(t.lastActive)
	if i < 0 {
		i = 0
	}
	s := stepDefs[i]
	s.Index = i
	s.State = StepCompleted
	return s, true
}
