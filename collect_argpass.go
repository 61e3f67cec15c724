package main

import "golang.org/x/tools/go/ssa"

// collectArgPasses implements §4.2.4: for every direct call, for
// every argument position, record a function address passed through,
// grounded on other_examples/golang-tools__static.go's
// Common().StaticCallee() idiom for identifying direct calls.
func collectArgPasses(ctx *Context, m *Module) {
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
					callee := call.Common().StaticCallee()
					if callee == nil {
						continue
					}
					line := lineOf(m, call.Pos())
					for i, arg := range call.Common().Args {
						passed := stripFuncCast(arg)
						if passed == nil {
							continue
						}
						ctx.FPArgPasses = append(ctx.FPArgPasses, FPArgPass{
							Module:     m.Name,
							Caller:     caller,
							Callee:     qualifiedName(callee),
							PassedFunc: qualifiedName(passed),
							ArgIndex:   i,
							Line:       line,
						})
					}
				}
			}
		}
	}
}
