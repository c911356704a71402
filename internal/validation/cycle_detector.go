package validation

import (
	"sort"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// detectCycle returns the variable ids forming a dependency cycle, or nil
// when the graph is acyclic. Edges point from a variable to the variables it
// depends on; edges to undeclared targets (built-in context fields included)
// cannot participate in a cycle and are skipped.
func detectCycle(variables map[string]template.VariableSpec) []string {
	graph := make(map[string][]string, len(variables))
	for id, spec := range variables {
		deps := make([]string, 0, len(spec.Dependencies))
		for _, dep := range spec.Dependencies {
			if _, declared := variables[dep.Variable]; declared {
				deps = append(deps, dep.Variable)
			}
		}
		graph[id] = deps
	}

	visiting := make(map[string]bool, len(variables))
	visited := make(map[string]bool, len(variables))
	var stack []string

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range graph[node] {
			if visited[dep] {
				continue
			}
			if visiting[dep] {
				idx := indexOf(stack, dep)
				if idx >= 0 {
					cycle = append([]string{}, stack[idx:]...)
					cycle = append(cycle, dep)
				}
				return true
			}
			if dfs(dep) {
				return true
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		if dfs(id) {
			break
		}
	}

	return cycle
}

func indexOf(slice []string, target string) int {
	for i, v := range slice {
		if v == target {
			return i
		}
	}
	return -1
}
