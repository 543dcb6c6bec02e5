// Package testrounds drives a live service through full rounds: create,
// start, submit, end, and verify the resulting scoreboard.
package testrounds

import "time"

// Config controls a round simulation run.
type Config struct {
	// BaseURL of the running service.
	BaseURL string

	// Participants per round.
	Participants int

	// Rounds to run sequentially.
	Rounds int

	// SolveRatio and DelegateRatio set the action mix; the remainder pass.
	SolveRatio    float64
	DelegateRatio float64

	// CorrectRatio is the fraction of solvers answering correctly.
	CorrectRatio float64

	// DurationSeconds for each created round.
	DurationSeconds int

	// Workers submitting concurrently.
	Workers int

	// Timeout for each HTTP request.
	Timeout time.Duration

	// ScoreWait bounds how long to poll for the scoreboard after ending
	// a round.
	ScoreWait time.Duration

	Verbose bool
}

// Stats collects counters across a run.
type Stats struct {
	StartTime        time.Time
	RoundsRun        int
	SubmissionsSent  int
	SubmitFailures   int
	ParticipantsSeen int
	CycleMembers     int
	VerifyFailures   int
}
