// Package graph builds the per-round delegation graph and marks cycles.
//
// The graph is arena-indexed: nodes live in a flat slice and delegation
// edges are slice indexes, so traversal needs no pointers and no recursion.
// A graph is built fresh from durable submissions for each scoring run and
// is never shared between runs.
package graph

import (
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
)

// none marks the absence of an outgoing edge.
const none = -1

// Node is one participant's position in the delegation graph.
type Node struct {
	ParticipantID string
	Action        model.Action

	// Correct is set only for SOLVE nodes.
	Correct bool

	// Target is the arena index of the delegation target, or -1 when the
	// node has no outgoing edge. TargetMissing is set when a DELEGATE
	// submission names a participant outside the roster; the node then has
	// no edge but is scored as if it delegated into a cycle.
	Target        int
	TargetMissing bool

	// InDegree counts direct delegators only; it feeds the trust bonus.
	InDegree int

	// InCycle is set by MarkCycles.
	InCycle bool
}

// Graph holds the node arena and a participant-id index into it.
type Graph struct {
	Nodes []Node

	index map[string]int
}

// Build constructs the graph for one round. Every roster participant gets a
// node; roster members with no submission become PASS nodes so that silence
// is scored like an explicit pass. DELEGATE submissions become edges even
// when the target never submitted, as long as the target is on the roster.
func Build(roster []string, subs []model.Submission, correctAnswer string) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(roster)),
		index: make(map[string]int, len(roster)),
	}

	for _, id := range roster {
		if _, ok := g.index[id]; ok {
			continue
		}
		g.index[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			ParticipantID: id,
			Action:        model.ActionPass,
			Target:        none,
		})
	}

	for _, sub := range subs {
		i, ok := g.index[sub.ParticipantID]
		if !ok {
			// Submission from outside the roster; the roster is
			// authoritative, so it does not get a node.
			continue
		}
		n := &g.Nodes[i]
		n.Action = sub.Action
		switch sub.Action {
		case model.ActionSolve:
			n.Correct = model.AnswerCorrect(sub.Answer, correctAnswer)
		case model.ActionDelegate:
			if t, ok := g.index[sub.TargetID]; ok {
				n.Target = t
			} else {
				n.TargetMissing = true
			}
		case model.ActionPass:
			// no edge, nothing to record
		}
	}

	for i := range g.Nodes {
		if t := g.Nodes[i].Target; t != none {
			g.Nodes[t].InDegree++
		}
	}

	return g
}

// Lookup returns the arena index for a participant id.
func (g *Graph) Lookup(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// MarkCycles finds every delegation cycle and sets InCycle on its members.
//
// Each node has at most one outgoing edge, so traversal follows chains with
// an explicit on-path stack instead of recursive DFS. When the walk reaches
// a node already on the current path, everything from that node's first path
// occurrence to the path's end is one cycle; a self-delegation is the
// one-node case and is marked the same way. Every node is walked at most
// once, so the pass is linear in nodes plus edges. Disjoint cycles are each
// found independently.
func (g *Graph) MarkCycles() {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully resolved
	)

	state := make([]uint8, len(g.Nodes))
	path := make([]int, 0, len(g.Nodes))

	for root := range g.Nodes {
		if state[root] != white {
			continue
		}

		path = path[:0]
		cur := root
		for cur != none && state[cur] == white {
			state[cur] = gray
			path = append(path, cur)
			cur = g.Nodes[cur].Target
		}

		if cur != none && state[cur] == gray {
			// Found a cycle: mark from cur's first occurrence on the
			// path through the path's end.
			marking := false
			for _, i := range path {
				if i == cur {
					marking = true
				}
				if marking {
					g.Nodes[i].InCycle = true
				}
			}
		}

		for _, i := range path {
			state[i] = black
		}
	}
}
