package main

import "sort"

// Resolve implements §4.4: rewrite the Callee of every indirect edge
// across every module in ctx.Graph, applying Rule A, then B, then C,
// the first to produce a match winning. Edges with more than one
// matching candidate fan out in place, lexicographically ordered.
func Resolve(ctx *Context) {
	for module, edges := range ctx.Graph {
		settings := settingsOf(ctx, module)
		argPasses := argPassesOf(ctx, module)

		rewritten := make([]*CallEdge, 0, len(edges))
		for _, e := range edges {
			if !e.IsIndirect || e.Callee != Unresolved {
				rewritten = append(rewritten, e)
				continue
			}

			candidates := resolveCandidates(e, settings, argPasses)
			if len(candidates) == 0 {
				rewritten = append(rewritten, e)
				continue
			}

			sort.Strings(candidates)
			for _, fn := range candidates {
				clone := *e
				clone.Callee = fn
				rewritten = append(rewritten, &clone)
			}
			debugf("resolved %s:%s [line %d] -> %v", module, e.Caller, e.Line, candidates)
		}
		ctx.Graph[module] = rewritten
	}
}

// resolveCandidates applies Rule A, then B, then C (first match wins)
// and returns the distinct candidate function names, unordered.
func resolveCandidates(e *CallEdge, settings []FPSetting, argPasses []FPArgPass) []string {
	// Rule A: Local/Global variable match.
	if e.VarName != "" && !e.HasOffset {
		var candidates []string
		seen := map[string]bool{}
		for _, s := range settings {
			if s.StructType == "" && s.VarName == e.VarName {
				if !seen[s.FuncName] {
					seen[s.FuncName] = true
					candidates = append(candidates, s.FuncName)
				}
			}
		}
		if len(candidates) > 0 {
			return candidates
		}
	}

	// Rule B: struct field match.
	if e.HasOffset {
		var candidates []string
		seen := map[string]bool{}
		for _, s := range settings {
			if s.StructType == e.StructType && s.FieldOffset == e.FieldOffset {
				if !seen[s.FuncName] {
					seen[s.FuncName] = true
					candidates = append(candidates, s.FuncName)
				}
			}
		}
		if len(candidates) > 0 {
			return candidates
		}
	}

	// Rule C: parameter-flow match.
	if e.HasArgIndex {
		var candidates []string
		seen := map[string]bool{}
		for _, p := range argPasses {
			if p.Callee == e.Caller && p.ArgIndex == e.ArgIndex {
				if !seen[p.PassedFunc] {
					seen[p.PassedFunc] = true
					candidates = append(candidates, p.PassedFunc)
				}
			}
		}
		if len(candidates) > 0 {
			return candidates
		}
	}

	return nil
}
