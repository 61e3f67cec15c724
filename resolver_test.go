package main

import "testing"

func TestResolveRuleA_VariableMatch(t *testing.T) {
	ctx := NewContext(false)
	ctx.FPSettings = []FPSetting{
		{Module: "m", Setter: "global", VarName: "sfp", FuncName: "m.baz", Line: 1},
	}
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.main", Callee: Unresolved, IsIndirect: true, VarName: "sfp", Line: 20},
	}

	Resolve(ctx)

	edges := ctx.Graph["m"]
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Callee != "m.baz" {
		t.Errorf("Callee = %q, want m.baz", edges[0].Callee)
	}
}

func TestResolveRuleB_StructFieldMatch(t *testing.T) {
	ctx := NewContext(false)
	ctx.FPSettings = []FPSetting{
		{Module: "m", Setter: "global", VarName: "iops", StructType: "inode_operations", FieldOffset: 0, FuncName: "m.foo", Line: 1},
		{Module: "m", Setter: "global", VarName: "iops", StructType: "inode_operations", FieldOffset: 1, FuncName: "m.bar", Line: 2},
	}
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.dispatch", Callee: Unresolved, IsIndirect: true,
			StructType: "inode_operations", FieldOffset: 1, HasOffset: true, VarName: "base", Line: 30},
	}

	Resolve(ctx)

	edges := ctx.Graph["m"]
	if len(edges) != 1 || edges[0].Callee != "m.bar" {
		t.Fatalf("expected single edge resolved to m.bar, got %+v", edges)
	}
}

func TestResolveRuleB_IgnoresBaseVarName(t *testing.T) {
	// Rule B keys only on (struct_type, field_offset): a different
	// base variable of the same struct type/offset must still match.
	ctx := NewContext(false)
	ctx.FPSettings = []FPSetting{
		{Module: "m", StructType: "iops", FieldOffset: 0, FuncName: "m.foo", Line: 1},
	}
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.other", Callee: Unresolved, IsIndirect: true,
			StructType: "iops", FieldOffset: 0, HasOffset: true, VarName: "some_other_base", Line: 5},
	}

	Resolve(ctx)

	if got := ctx.Graph["m"][0].Callee; got != "m.foo" {
		t.Errorf("Callee = %q, want m.foo (base_var should not gate Rule B)", got)
	}
}

func TestResolveRuleC_ParameterFlow(t *testing.T) {
	ctx := NewContext(false)
	ctx.FPArgPasses = []FPArgPass{
		{Module: "m", Caller: "m.main", Callee: "m.bar", PassedFunc: "m.foo", ArgIndex: 1, Line: 1},
	}
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.bar", Callee: Unresolved, IsIndirect: true, ArgIndex: 1, HasArgIndex: true, Line: 8},
	}

	Resolve(ctx)

	if got := ctx.Graph["m"][0].Callee; got != "m.foo" {
		t.Errorf("Callee = %q, want m.foo", got)
	}
}

func TestResolveFanOutIsLexicographicAndDeduped(t *testing.T) {
	ctx := NewContext(false)
	ctx.FPSettings = []FPSetting{
		{Module: "m", VarName: "fp", FuncName: "m.zed", Line: 1},
		{Module: "m", VarName: "fp", FuncName: "m.alpha", Line: 2},
		{Module: "m", VarName: "fp", FuncName: "m.alpha", Line: 3}, // duplicate func, must not double the fan-out
	}
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.main", Callee: Unresolved, IsIndirect: true, VarName: "fp", Line: 40},
	}

	Resolve(ctx)

	edges := ctx.Graph["m"]
	if len(edges) != 2 {
		t.Fatalf("expected fan-out to 2 distinct candidates, got %d: %+v", len(edges), edges)
	}
	if edges[0].Callee != "m.alpha" || edges[1].Callee != "m.zed" {
		t.Errorf("fan-out not lexicographically ordered: got [%s, %s]", edges[0].Callee, edges[1].Callee)
	}
	// Both clones must retain the dispatch attributes of the original edge.
	for _, e := range edges {
		if e.VarName != "fp" || e.Line != 40 || e.Caller != "m.main" {
			t.Errorf("fan-out clone lost edge attributes: %+v", e)
		}
	}
}

func TestResolveLeavesUnmatchedEdgeUnresolved(t *testing.T) {
	ctx := NewContext(false)
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.main", Callee: Unresolved, IsIndirect: true, VarName: "mystery", Line: 99},
	}

	Resolve(ctx)

	edges := ctx.Graph["m"]
	if len(edges) != 1 || edges[0].Callee != Unresolved {
		t.Fatalf("expected edge to remain Unresolved, got %+v", edges)
	}
	if edges[0].Resolved() {
		t.Error("Resolved() should be false for an edge with no matching candidate")
	}
}

func TestResolveRuleOrder_StructFieldBeforeParameter(t *testing.T) {
	// An edge carrying both a struct-field dispatch and (incidentally) a
	// variable name should resolve through Rule B, never fall through to
	// Rule C, since HasArgIndex is false here -- this guards against a
	// resolver that checks rules out of order.
	ctx := NewContext(false)
	ctx.FPSettings = []FPSetting{
		{Module: "m", StructType: "ops", FieldOffset: 2, FuncName: "m.real", Line: 1},
	}
	ctx.FPArgPasses = []FPArgPass{
		{Module: "m", Caller: "m.other", Callee: "m.dispatch", PassedFunc: "m.decoy", ArgIndex: 2, Line: 2},
	}
	ctx.Graph["m"] = []*CallEdge{
		{Module: "m", Caller: "m.dispatch", Callee: Unresolved, IsIndirect: true,
			StructType: "ops", FieldOffset: 2, HasOffset: true, Line: 50},
	}

	Resolve(ctx)

	if got := ctx.Graph["m"][0].Callee; got != "m.real" {
		t.Errorf("Callee = %q, want m.real (struct-field rule should have matched, not parameter flow)", got)
	}
}
