package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/blocktrigger/internal/ir"
)

// CycleWarning represents a chain of rules that can re-trigger itself.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Toggles that flip between two states on alternate clicks
//   - Counters guarded by a variable-lt condition
//   - Loops the cascade limit is expected to cut
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on trigger rules.
//
// It builds a rule dependency graph (an edge A -> B when the action of A
// can cause an event that B listens for) and detects strongly connected
// components. Conditions are ignored, so a reported cycle may be guarded
// at runtime.
//
// The algorithm:
//  1. Build rule -> rule edges from each action's observable effects
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle warning
//
// A DAG (no cycles) returns an empty warning list.
func AnalyzeCycles(rules []ir.TriggerRule) []CycleWarning {
	if len(rules) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildDependencyGraph(rules)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	return warnings
}

// dependencyGraph maps rule id -> ids of rules it could trigger.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the rule dependency graph. The returned
// order lists rule ids as they appear so traversal is deterministic.
func buildDependencyGraph(rules []ir.TriggerRule) (dependencyGraph, []string) {
	graph := make(dependencyGraph, len(rules))
	order := make([]string, 0, len(rules))

	for _, from := range rules {
		if _, ok := graph[from.ID]; ok {
			continue
		}
		order = append(order, from.ID)
		graph[from.ID] = []string{}
		for _, to := range rules {
			if mayTrigger(from, to) && !slices.Contains(graph[from.ID], to.ID) {
				graph[from.ID] = append(graph[from.ID], to.ID)
			}
		}
	}

	return graph, order
}

// mayTrigger reports whether performing from's action can produce an
// event that to's source event matches.
func mayTrigger(from, to ir.TriggerRule) bool {
	onTarget := to.SourceObjectID == from.TargetObjectID

	switch act := from.TargetAction.(type) {
	case ir.GoToState:
		if !onTarget {
			return false
		}
		switch ev := to.SourceEvent.(type) {
		case ir.StateEnter:
			return ev.StateID == act.StateID
		case ir.StateExit:
			return ev.StateID != act.StateID
		}
	case ir.SetVariable:
		ev, ok := to.SourceEvent.(ir.VariableChange)
		return ok && ev.VariableName == act.VariableName
	case ir.IncrementVariable:
		ev, ok := to.SourceEvent.(ir.VariableChange)
		return ok && ev.VariableName == act.VariableName
	case ir.PlayMedia:
		return onTarget && isSignal(to.SourceEvent, ir.EventMediaPlay)
	case ir.PauseMedia:
		return onTarget && isSignal(to.SourceEvent, ir.EventMediaPause)
	case ir.SeekMedia:
		if !onTarget {
			return false
		}
		_, ok := to.SourceEvent.(ir.MediaTime)
		return ok
	case ir.ScrollTo:
		return onTarget && isSignal(to.SourceEvent, ir.EventScrollInView)
	}
	return false
}

func isSignal(e ir.Event, kind ir.EventType) bool {
	s, ok := e.(ir.Signal)
	return ok && s.Kind == kind
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of rule IDs.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Root first, so paths start at the earliest rule in the SCC
			slices.Reverse(scc)
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes
	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// The path shows the cycle sequence by reconstructing a path through the SCC.
// For self-loops, the path is [rule-id, rule-id].
// For multi-node cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		// Self-loop
		ruleID := scc[0]
		return CycleWarning{
			Path:    []string{ruleID, ruleID},
			Message: fmt.Sprintf("Self-triggering rule detected: %s → %s", ruleID, ruleID),
			Level:   "warning",
		}
	}

	// Multi-node cycle - reconstruct a cycle path
	path := reconstructCyclePath(scc, graph)

	pathStr := strings.Join(path, " → ")
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential cycle detected: %s", pathStr),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	// Build set of SCC members for fast lookup
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at first node
	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}
