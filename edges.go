package main

// BuildEdges implements §4.3: turn every CallSite belonging to m into
// a CallEdge, appended to ctx.Graph[m.Name] in collection order.
// Direct sites become concrete edges immediately; indirect sites keep
// Unresolved and carry their dispatch attributes for the resolver.
func BuildEdges(ctx *Context, m *Module) {
	for _, cs := range ctx.CallSites {
		if cs.Module != m.Name {
			continue
		}

		edge := &CallEdge{
			Module:     cs.Module,
			Caller:     cs.Caller,
			Line:       cs.Line,
			IsIndirect: cs.Indirect,
		}

		if !cs.Indirect {
			edge.Callee = cs.Callee
			ctx.Graph[m.Name] = append(ctx.Graph[m.Name], edge)
			continue
		}

		edge.Callee = Unresolved
		switch cs.Dispatch.Kind {
		case DispatchLocalVar, DispatchGlobalVar:
			edge.VarName = cs.Dispatch.VarName
		case DispatchStructField:
			edge.VarName = cs.Dispatch.BaseVar
			edge.StructType = cs.Dispatch.StructType
			edge.FieldOffset = cs.Dispatch.FieldOffset
			edge.HasOffset = true
		case DispatchParameter:
			edge.ArgIndex = cs.Dispatch.ArgIndex
			edge.HasArgIndex = true
		}
		ctx.Graph[m.Name] = append(ctx.Graph[m.Name], edge)
	}
}
