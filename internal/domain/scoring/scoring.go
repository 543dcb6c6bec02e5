// Package scoring propagates scores through a round's delegation graph.
//
// Scores are a pure, deterministic function of the graph and the round's
// scoring parameters. Graph shapes that look pathological (cycles, dangling
// delegation targets) are first-class scoring outcomes here, never errors.
package scoring

import (
	"github.com/koderAP/trust-gambit-sub000/internal/domain/graph"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// Outcome classifies what a participant's delegation chain leads to. The
// outcome of a node propagates upward to every delegator behind it.
type Outcome uint8

const (
	// OutcomeUnresolved is the zero value; no node keeps it after Evaluate.
	OutcomeUnresolved Outcome = iota
	// OutcomeCycle covers cycle members, chains into a cycle, and dangling
	// delegation targets.
	OutcomeCycle
	// OutcomeCorrect marks a correct solve or a chain ending in one.
	OutcomeCorrect
	// OutcomeIncorrect marks an incorrect solve or a chain ending in one.
	OutcomeIncorrect
	// OutcomePass marks a pass or a chain ending in one.
	OutcomePass
)

// nilDistance is the in-arena encoding of a missing terminus distance.
const nilDistance = -1

// Result is the computed score for one participant.
type Result struct {
	ParticipantID string
	Score         float64
	Outcome       Outcome
	InCycle       bool

	// Distance is the hop count to the chain's terminus (0 for solvers),
	// nil for passers, cycle members, and dangling delegations.
	Distance *int
}

// Propagator evaluates delegation graphs against per-round parameters.
type Propagator struct{}

// New creates a Propagator.
func New() *Propagator {
	return &Propagator{}
}

// Evaluate scores every node of g under params p and returns results in
// arena order. It resolves terminal nodes first, then walks each unresolved
// delegation chain down to a resolved node and unwinds it, so each node is
// computed exactly once and no recursion depth is consumed by long chains.
func (pr *Propagator) Evaluate(g *graph.Graph, p model.ScoringParams) []Result {
	n := g.Len()
	score := make([]float64, n)
	dist := make([]int, n)
	out := make([]Outcome, n)

	// Terminal classification: cycle membership dominates everything else.
	for i := range g.Nodes {
		nd := &g.Nodes[i]
		switch {
		case nd.InCycle:
			out[i] = OutcomeCycle
			score[i] = -1 - p.Gamma
			dist[i] = nilDistance
		case nd.Action == model.ActionSolve && nd.Correct:
			out[i] = OutcomeCorrect
			score[i] = 1 + p.Beta*float64(nd.InDegree)
			dist[i] = 0
		case nd.Action == model.ActionSolve:
			out[i] = OutcomeIncorrect
			score[i] = -1
			dist[i] = 0
		case nd.Action == model.ActionPass:
			out[i] = OutcomePass
			score[i] = p.PassScore
			dist[i] = nilDistance
		case nd.TargetMissing:
			// Dangling delegation target: scored like a cycle member so
			// bad input degrades instead of failing the round.
			out[i] = OutcomeCycle
			score[i] = -1 - p.Gamma
			dist[i] = nilDistance
		}
	}

	// Chain resolution. Anything still unresolved is a DELEGATE node with a
	// live edge and no cycle membership, so following edges must reach a
	// resolved node.
	chain := make([]int, 0, n)
	for i := range g.Nodes {
		if out[i] != OutcomeUnresolved {
			continue
		}
		chain = chain[:0]
		cur := i
		for out[cur] == OutcomeUnresolved {
			chain = append(chain, cur)
			cur = g.Nodes[cur].Target
		}
		for j := len(chain) - 1; j >= 0; j-- {
			node := chain[j]
			t := g.Nodes[node].Target
			k := 1
			if dist[t] != nilDistance {
				k = dist[t] + 1
			}
			dist[node] = k
			switch out[t] {
			case OutcomeCycle:
				out[node] = OutcomeCycle
				score[node] = -1 - p.Gamma/float64(k+1)
			case OutcomeCorrect:
				out[node] = OutcomeCorrect
				score[node] = 1 + p.Lambda*(2*float64(k)/float64(k+1))
			case OutcomeIncorrect:
				out[node] = OutcomeIncorrect
				score[node] = -1
			case OutcomePass:
				out[node] = OutcomePass
				score[node] = -1
			}
		}
	}

	results := make([]Result, n)
	for i := range g.Nodes {
		results[i] = Result{
			ParticipantID: g.Nodes[i].ParticipantID,
			Score:         score[i],
			Outcome:       out[i],
			InCycle:       g.Nodes[i].InCycle,
		}
		if dist[i] != nilDistance {
			d := dist[i]
			results[i].Distance = &d
		}
	}
	return results
}
