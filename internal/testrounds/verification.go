package testrounds

import (
	"fmt"
	"math"
)

// verifyScoreboard checks structural invariants of a returned scoreboard
// against the submissions we generated. It does not recompute the full
// propagation; it asserts the properties any correct scoring must satisfy.
func verifyScoreboard(cfg *Config, roster []string, subs []submission, board *scoreboardInfo) []string {
	var failures []string

	// Every roster member gets exactly one score, silent ones included.
	if len(board.Scores) != len(roster) {
		failures = append(failures, fmt.Sprintf(
			"scored %d participants, roster has %d", len(board.Scores), len(roster)))
	}

	byID := make(map[string]scoreInfo, len(board.Scores))
	for _, s := range board.Scores {
		if _, dup := byID[s.ParticipantID]; dup {
			failures = append(failures, "duplicate score for "+s.ParticipantID)
		}
		byID[s.ParticipantID] = s
	}

	actions := make(map[string]submission, len(subs))
	for _, sub := range subs {
		actions[sub.ParticipantID] = sub
	}

	for id, s := range byID {
		if math.IsNaN(s.TotalScore) || math.IsInf(s.TotalScore, 0) {
			failures = append(failures, "non-finite score for "+id)
			continue
		}

		sub, submitted := actions[id]
		switch {
		case s.InCycle:
			// Cycle members always lose more than the base penalty.
			if s.TotalScore > -1 {
				failures = append(failures, fmt.Sprintf(
					"cycle member %s scored %.3f, want < -1", id, s.TotalScore))
			}
			if s.Distance != nil {
				failures = append(failures, "cycle member "+id+" has a distance")
			}
		case !submitted || sub.Action == "PASS":
			// Passers, synthesized or explicit, get the flat pass score.
			if s.TotalScore != 0 {
				failures = append(failures, fmt.Sprintf(
					"passer %s scored %.3f, want 0", id, s.TotalScore))
			}
		case sub.Action == "SOLVE":
			if s.Distance == nil || *s.Distance != 0 {
				failures = append(failures, "solver "+id+" missing zero distance")
			}
			if sub.Answer == simAnswer && s.TotalScore < 1 {
				failures = append(failures, fmt.Sprintf(
					"correct solver %s scored %.3f, want >= 1", id, s.TotalScore))
			}
			if sub.Answer != simAnswer && s.TotalScore != -1 {
				failures = append(failures, fmt.Sprintf(
					"incorrect solver %s scored %.3f, want -1", id, s.TotalScore))
			}
		}
	}

	return failures
}
