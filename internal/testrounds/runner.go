package testrounds

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

// Run executes the configured number of simulated rounds against a live
// service and verifies each scoreboard.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("testrounds")

	log.Info(ctx, "starting round simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("participants", cfg.Participants),
		logger.Int("workers", cfg.Workers),
	)

	c := newClient(cfg)
	if err := c.checkHealth(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < cfg.Rounds; i++ {
		if err := runRound(ctx, cfg, c, rng, stats); err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
		stats.RoundsRun++
	}

	report(ctx, log, stats)
	if stats.VerifyFailures > 0 {
		return fmt.Errorf("%d verification failures", stats.VerifyFailures)
	}
	return nil
}

func runRound(ctx context.Context, cfg *Config, c *client, rng *rand.Rand, stats *Stats) error {
	log := logger.Get().Named("testrounds")

	roster := generateRoster(cfg.Participants)
	subs := generateSubmissions(cfg, roster, rng)

	roundID, err := c.createRound(ctx, cfg, roster)
	if err != nil {
		return err
	}
	if err := c.startRound(ctx, roundID); err != nil {
		return err
	}
	log.Info(ctx, "round started",
		logger.String("roundID", roundID),
		logger.Int("submissions", len(subs)),
	)

	submitAll(ctx, cfg, c, roundID, subs, stats)

	if err := c.endRound(ctx, roundID); err != nil {
		return err
	}
	board, err := c.waitForScores(ctx, roundID, cfg.ScoreWait)
	if err != nil {
		return err
	}

	failures := verifyScoreboard(cfg, roster, subs, board)
	for _, f := range failures {
		log.Error(ctx, "verification failure",
			logger.String("roundID", roundID),
			logger.String("check", f),
		)
	}
	stats.VerifyFailures += len(failures)
	stats.ParticipantsSeen += len(board.Scores)
	for _, s := range board.Scores {
		if s.InCycle {
			stats.CycleMembers++
		}
	}
	return nil
}

// submitAll fans submissions out over a worker pool. Failures are counted,
// not fatal; the server synthesizes a PASS for anyone whose submission was
// lost.
func submitAll(ctx context.Context, cfg *Config, c *client, roundID string, subs []submission, stats *Stats) {
	jobs := make(chan submission)
	var sent, failed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				if err := c.submit(ctx, roundID, sub); err != nil {
					failed.Add(1)
					continue
				}
				sent.Add(1)
			}
		}()
	}
	for _, sub := range subs {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()

	stats.SubmissionsSent += int(sent.Load())
	stats.SubmitFailures += int(failed.Load())
}

func report(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "simulation finished",
		logger.Int("rounds", stats.RoundsRun),
		logger.Int("submissionsSent", stats.SubmissionsSent),
		logger.Int("submitFailures", stats.SubmitFailures),
		logger.Int("participantsScored", stats.ParticipantsSeen),
		logger.Int("cycleMembers", stats.CycleMembers),
		logger.Int("verifyFailures", stats.VerifyFailures),
		logger.Duration("elapsed", time.Since(stats.StartTime)),
	)
}
