package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/koderAP/trust-gambit-sub000/internal/testrounds"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

// Default configuration constants.
const (
	defaultParticipants = 200
	defaultRounds       = 3
	defaultWorkers      = 16
	defaultDurationS    = 60
	defaultTimeout      = 10 * time.Second
	defaultScoreWait    = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9090", "Base URL of the service")
		participants = flag.Int("participants", defaultParticipants, "Participants per round")
		rounds       = flag.Int("rounds", defaultRounds, "Rounds to run")
		solveRatio   = flag.Float64("solve", 0.4, "Fraction of participants that SOLVE")
		delegate     = flag.Float64("delegate", 0.4, "Fraction of participants that DELEGATE")
		correct      = flag.Float64("correct", 0.5, "Fraction of solvers answering correctly")
		durationS    = flag.Int("duration", defaultDurationS, "Round duration in seconds")
		workers      = flag.Int("workers", defaultWorkers, "Concurrent submission workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		scoreWait    = flag.Duration("score-wait", defaultScoreWait, "How long to wait for scores")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &testrounds.Config{
		BaseURL:         *baseURL,
		Participants:    *participants,
		Rounds:          *rounds,
		SolveRatio:      *solveRatio,
		DelegateRatio:   *delegate,
		CorrectRatio:    *correct,
		DurationSeconds: *durationS,
		Workers:         *workers,
		Timeout:         *timeout,
		ScoreWait:       *scoreWait,
		Verbose:         *verbose,
	}

	if err := testrounds.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
