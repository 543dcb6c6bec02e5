package testrounds

import (
	"fmt"
	"math/rand"
)

// question/answer pair used for every simulated round.
const (
	simQuestion = "What is the capital of France?"
	simAnswer   = "PARIS"
	wrongAnswer = "LYON"
)

// submission is the wire payload generated for one participant.
type submission struct {
	ParticipantID string `json:"participant_id"`
	Action        string `json:"action"`
	Answer        string `json:"answer,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
}

// generateRoster builds deterministic participant ids.
func generateRoster(n int) []string {
	roster := make([]string, n)
	for i := range roster {
		roster[i] = fmt.Sprintf("player-%04d", i)
	}
	return roster
}

// generateSubmissions rolls an action for each participant per the
// configured mix. Delegation targets are uniform over the roster, so chains
// and the occasional cycle both occur naturally. A share of participants
// stays silent to exercise PASS synthesis on the server.
func generateSubmissions(cfg *Config, roster []string, rng *rand.Rand) []submission {
	subs := make([]submission, 0, len(roster))
	for _, id := range roster {
		roll := rng.Float64()
		switch {
		case roll < cfg.SolveRatio:
			answer := simAnswer
			if rng.Float64() >= cfg.CorrectRatio {
				answer = wrongAnswer
			}
			subs = append(subs, submission{ParticipantID: id, Action: "SOLVE", Answer: answer})
		case roll < cfg.SolveRatio+cfg.DelegateRatio:
			target := roster[rng.Intn(len(roster))]
			subs = append(subs, submission{ParticipantID: id, Action: "DELEGATE", TargetID: target})
		case roll < 0.95:
			subs = append(subs, submission{ParticipantID: id, Action: "PASS"})
		default:
			// silent; the server synthesizes a PASS at completion
		}
	}
	return subs
}
