package main

import (
	"go/token"

	"golang.org/x/tools/go/ssa"
)

// collectCallSites implements §4.2.5: one CallSite per *ssa.Call
// instruction, direct sites recording their static callee, indirect
// sites classified into a Dispatch per the ordering SPEC_FULL.md §4
// resolves (parameter-flow-through-a-local checked before the
// generic local-variable pattern; see DESIGN.md's Open Question
// note). *ssa.Go and *ssa.Defer are out of scope (DESIGN.md).
func collectCallSites(ctx *Context, m *Module) {
	for _, pkg := range m.SSA {
		for _, fn := range ssaPackageFunctions(pkg) {
			if len(fn.Blocks) == 0 {
				continue
			}
			caller := qualifiedName(fn)
			for _, b := range fn.Blocks {
				for _, instr := range b.Instrs {
					call, ok := instr.(*ssa.Call)
					if !ok {
						continue
					}
					line := lineOf(m, call.Pos())

					if callee := call.Common().StaticCallee(); callee != nil {
						ctx.CallSites = append(ctx.CallSites, CallSite{
							Module: m.Name,
							Caller: caller,
							Line:   line,
							Callee: qualifiedName(callee),
						})
						continue
					}

					ctx.CallSites = append(ctx.CallSites, CallSite{
						Module:   m.Name,
						Caller:   caller,
						Line:     line,
						Indirect: true,
						Dispatch: classifyDispatch(fn, call.Common().Value),
					})
				}
			}
		}
	}
}

// classifyDispatch implements the ordered pattern match of §4.2.5.
func classifyDispatch(fn *ssa.Function, v ssa.Value) Dispatch {
	// step 4: the call value is itself one of the caller's parameters.
	if i := paramIndex(fn, v); i >= 0 {
		return Dispatch{Kind: DispatchParameter, ArgIndex: i}
	}

	if load, ok := v.(*ssa.UnOp); ok && load.Op == token.MUL {
		switch x := load.X.(type) {
		case *ssa.Alloc:
			// step 5: a local fed exclusively by a parameter store.
			if i, ok := paramFedAlloc(fn, x); ok {
				return Dispatch{Kind: DispatchParameter, ArgIndex: i}
			}
			// step 1: any other local-variable load.
			return Dispatch{Kind: DispatchLocalVar, VarName: allocDisplayName(x)}
		case *ssa.Global:
			// step 2: a load from a global variable.
			return Dispatch{Kind: DispatchGlobalVar, VarName: x.Name()}
		case *ssa.FieldAddr:
			// step 6: a field-pointer computation flows into the call.
			return Dispatch{
				Kind:        DispatchStructField,
				StructType:  structTypeName(x),
				FieldOffset: x.Field,
				BaseVar:     x.X.Name(),
			}
		}
	}

	// step 3: the called operand is itself a global variable reference.
	if g, ok := v.(*ssa.Global); ok {
		return Dispatch{Kind: DispatchGlobalVar, VarName: g.Name()}
	}

	// step 7: arithmetic, a call return, or anything else unrecognised.
	return Dispatch{Kind: DispatchUnknown}
}

// paramIndex returns the index of v among fn's parameters, or -1.
func paramIndex(fn *ssa.Function, v ssa.Value) int {
	for i, p := range fn.Params {
		if p == v {
			return i
		}
	}
	return -1
}

// paramFedAlloc reports whether alloc, within fn, is stored to only by
// parameter values (never by a plain function reference), and if so
// which parameter index it was last/only fed by.
func paramFedAlloc(fn *ssa.Function, alloc *ssa.Alloc) (int, bool) {
	found := -1
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			store, ok := instr.(*ssa.Store)
			if !ok || store.Addr != alloc {
				continue
			}
			if stripFuncCast(store.Val) != nil {
				return 0, false // a function value also feeds this alloc
			}
			if i := paramIndex(fn, store.Val); i >= 0 {
				found = i
			}
		}
	}
	return found, found >= 0
}
