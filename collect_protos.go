package main

import (
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ssa"
)

// collectProtos implements §4.2.1: emit a FunctionProto for every
// defined (non-declaration) function in m, grounded on the teacher's
// CollectTypes scope walk, but driven from SSA functions rather than
// go/types scopes so that it sees every function the SSA program
// actually contains (anonymous functions included).
func collectProtos(ctx *Context, m *Module) {
	for _, pkg := range m.SSA {
		for _, fn := range ssaPackageFunctions(pkg) {
			if len(fn.Blocks) == 0 {
				continue // declaration / external function: §4.2.1 skips it
			}

			sig := fn.Signature
			params := make([]string, 0, sig.Params().Len())
			for i := 0; i < sig.Params().Len(); i++ {
				params = append(params, types.TypeString(sig.Params().At(i).Type(), types.RelativeTo(pkg.Pkg)))
			}
			returnType := "()"
			if sig.Results().Len() == 1 {
				returnType = types.TypeString(sig.Results().At(0).Type(), types.RelativeTo(pkg.Pkg))
			} else if sig.Results().Len() > 1 {
				returnType = types.TypeString(sig.Results(), types.RelativeTo(pkg.Pkg))
			}

			line := 0
			if fn.Pos() != token.NoPos {
				line = m.Prog.Fset.Position(fn.Pos()).Line
			}

			ctx.Protos = append(ctx.Protos, FunctionProto{
				Module:     m.Name,
				Name:       qualifiedName(fn),
				ReturnType: returnType,
				ParamTypes: params,
				DefLine:    line,
			})
		}
	}
}

// ssaPackageFunctions returns every *ssa.Function the package
// declares, including methods reachable via named types' method sets,
// mirroring ssautil.AllFunctions scoped to a single package. pkg.Members
// is a map, so its iteration order is randomized per run; the result is
// sorted by source position (and, for positions that tie or are absent,
// by qualified name) before returning so that every downstream table
// (protos, call sites, edges) is collected in a fixed, repeatable order,
// matching the teacher's own sorted scope.Names() walk in CollectTypes.
func ssaPackageFunctions(pkg *ssa.Package) []*ssa.Function {
	var funcs []*ssa.Function
	seen := make(map[*ssa.Function]bool)
	add := func(fn *ssa.Function) {
		if fn == nil || seen[fn] {
			return
		}
		seen[fn] = true
		funcs = append(funcs, fn)
	}

	for _, mem := range pkg.Members {
		if fn, ok := mem.(*ssa.Function); ok {
			add(fn)
		}
	}

	for _, mem := range pkg.Members {
		t, ok := mem.(*ssa.Type)
		if !ok {
			continue
		}
		named, ok := t.Type().(*types.Named)
		if !ok {
			continue
		}
		for _, recv := range []types.Type{named, types.NewPointer(named)} {
			mset := pkg.Prog.MethodSets.MethodSet(recv)
			for i := 0; i < mset.Len(); i++ {
				add(pkg.Prog.MethodValue(mset.At(i)))
			}
		}
	}

	sort.Slice(funcs, func(i, j int) bool {
		pi, pj := funcs[i].Pos(), funcs[j].Pos()
		if pi != pj {
			return pi < pj
		}
		return qualifiedName(funcs[i]) < qualifiedName(funcs[j])
	})

	return funcs
}

// qualifiedName renders an *ssa.Function's fully-qualified name,
// matching the style of the teacher's buildSSAFuncName.
func qualifiedName(fn *ssa.Function) string {
	if fn.Pkg == nil {
		return fn.String()
	}
	pkgPath := fn.Pkg.Pkg.Path()
	if recv := fn.Signature.Recv(); recv != nil {
		recvType := recv.Type()
		if ptr, ok := recvType.(*types.Pointer); ok {
			recvType = ptr.Elem()
		}
		if named, ok := recvType.(*types.Named); ok {
			return pkgPath + "." + named.Obj().Name() + "." + fn.Name()
		}
	}
	return pkgPath + "." + fn.Name()
}
