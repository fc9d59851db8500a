package journal

import (
	"strings"
	"time"
)

// Action is the terminal state of one batch entry.
type Action string

const (
	ActionSkipped Action = "skipped"
	ActionCopied  Action = "copied"
	ActionMerged  Action = "merged"
	ActionFailed  Action = "failed"
)

var actionSet = map[Action]struct{}{
	ActionSkipped: {},
	ActionCopied:  {},
	ActionMerged:  {},
	ActionFailed:  {},
}

// ParseAction converts a string into a known Action.
func ParseAction(value string) (Action, bool) {
	normalized := Action(strings.ToLower(strings.TrimSpace(value)))
	_, ok := actionSet[normalized]
	return normalized, ok
}

// Run records one orchestrator invocation over a source directory.
type Run struct {
	ID         string
	SourceDir  string
	DestDir    string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Merged     int
	Copied     int
	Skipped    int
	Failed     int
}

// Entry records the outcome of one top-level entry within a run.
type Entry struct {
	RunID      string
	Name       string
	Kind       string
	Action     Action
	OutputPath string
	Error      string
	Elapsed    time.Duration
}
