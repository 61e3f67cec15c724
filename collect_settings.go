package main

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// collectSettings implements §4.2.2 (static) and §4.2.3 (dynamic)
// function-pointer settings. Go's SSA builder lowers every
// package-level var initialiser -- including function literals and
// composite literals with function-valued fields -- into Store
// instructions inside the package's synthetic init function, so the
// static/dynamic split becomes "is this store in init, or in some
// other function" -- grounded on CallGraphPass.cc's
// CollectStaticFunctionPointerAssignments vs
// CollectDynamicFunctionPointerAssignments split (see DESIGN.md).
// Both passes are unconditional on the store's destination: a Global,
// a FieldAddr, or a local Alloc are all recorded.
func collectSettings(ctx *Context, m *Module) {
	for _, pkg := range m.SSA {
		init := pkg.Func("init")
		for _, fn := range ssaPackageFunctions(pkg) {
			if len(fn.Blocks) == 0 {
				continue
			}
			if fn == init {
				collectStaticSettings(ctx, m, fn)
			} else {
				collectDynamicSettings(ctx, m, fn)
			}
		}
	}
}

// collectStaticSettings scans Store instructions in a package's init
// function for stores whose address is a Global, or a struct field of
// a Global, and whose value is a function reference (§4.2.2).
func collectStaticSettings(ctx *Context, m *Module, init *ssa.Function) {
	for _, b := range init.Blocks {
		for _, instr := range b.Instrs {
			store, ok := instr.(*ssa.Store)
			if !ok {
				continue
			}
			fn := stripFuncCast(store.Val)
			if fn == nil {
				continue
			}
			line := lineOf(m, store.Pos())

			switch addr := store.Addr.(type) {
			case *ssa.Global:
				ctx.AddFPSetting(FPSetting{
					Module:   m.Name,
					Setter:   "global",
					VarName:  addr.Name(),
					FuncName: qualifiedName(fn),
					Line:     line,
				})
			case *ssa.FieldAddr:
				if g, ok := addr.X.(*ssa.Global); ok {
					ctx.AddFPSetting(FPSetting{
						Module:      m.Name,
						Setter:      "global",
						VarName:     g.Name(),
						StructType:  structTypeName(addr),
						FieldOffset: addr.Field,
						FuncName:    qualifiedName(fn),
						Line:        line,
					})
				}
			}
		}
	}
}

// collectDynamicSettings scans Store instructions in every non-init
// function body for stores of a function reference (§4.2.3). Unlike
// collectStaticSettings it is unconditional on the destination: a
// store into a local Alloc, a package Global, or a struct field of
// either all count, matching CallGraphPass.cc's
// CollectDynamicFunctionPointerAssignments, which records every such
// store regardless of where it lands.
func collectDynamicSettings(ctx *Context, m *Module, fn *ssa.Function) {
	caller := qualifiedName(fn)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			store, ok := instr.(*ssa.Store)
			if !ok {
				continue
			}
			target := stripFuncCast(store.Val)
			if target == nil {
				continue
			}
			line := lineOf(m, store.Pos())

			switch addr := store.Addr.(type) {
			case *ssa.Alloc:
				ctx.AddFPSetting(FPSetting{
					Module:   m.Name,
					Setter:   caller,
					VarName:  allocDisplayName(addr),
					FuncName: qualifiedName(target),
					Line:     line,
				})
			case *ssa.Global:
				ctx.AddFPSetting(FPSetting{
					Module:   m.Name,
					Setter:   caller,
					VarName:  addr.Name(),
					FuncName: qualifiedName(target),
					Line:     line,
				})
			case *ssa.FieldAddr:
				ctx.AddFPSetting(FPSetting{
					Module:      m.Name,
					Setter:      caller,
					VarName:     fieldBaseName(addr),
					StructType:  structTypeName(addr),
					FieldOffset: addr.Field,
					FuncName:    qualifiedName(target),
					Line:        line,
				})
			}
		}
	}
}

// fieldBaseName names the value a FieldAddr indexes into, covering
// both the global-of-a-struct and local-of-a-struct cases.
func fieldBaseName(addr *ssa.FieldAddr) string {
	switch x := addr.X.(type) {
	case *ssa.Global:
		return x.Name()
	case *ssa.Alloc:
		return allocDisplayName(x)
	default:
		return x.Name()
	}
}

// stripFuncCast unwraps bit-identical reinterpretations (ChangeType,
// Convert) and zero-capture closures to find the underlying function
// reference, or returns nil if v is not, at its core, one.
func stripFuncCast(v ssa.Value) *ssa.Function {
	for {
		switch x := v.(type) {
		case *ssa.Function:
			return x
		case *ssa.ChangeType:
			v = x.X
		case *ssa.Convert:
			v = x.X
		case *ssa.MakeClosure:
			if len(x.Bindings) != 0 {
				return nil // a bound closure is not a bare function address
			}
			v = x.Fn
		default:
			return nil
		}
	}
}

// structTypeName resolves the named struct type a FieldAddr indexes
// into, falling back to "unknown" for anonymous struct types
// (spec.md §4.2.2's "or \"unknown\"" fallback).
func structTypeName(addr *ssa.FieldAddr) string {
	t := addr.X.Type()
	if ptr, ok := t.Underlying().(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return "unknown"
}

// allocDisplayName renders the textual identifier an Alloc
// corresponds to, preferring the source name Go's SSA builder attaches
// as Comment, falling back to the synthetic register name.
func allocDisplayName(alloc *ssa.Alloc) string {
	if alloc.Comment != "" {
		return alloc.Comment
	}
	return alloc.Name()
}

func lineOf(m *Module, pos token.Pos) int {
	if pos == token.NoPos {
		return 0
	}
	return m.Prog.Fset.Position(pos).Line
}
