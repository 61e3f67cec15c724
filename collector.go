package main

// Collector runs the §4.2 fact-collection sub-passes against a single
// module, writing into a shared Context. Sub-passes are individually
// idempotent and order-independent (SPEC_FULL.md §4.2), so Collect
// simply runs them one after another.
type Collector struct{}

// NewCollector returns a ready-to-use Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Collect populates ctx's fact tables from m.
func (c *Collector) Collect(ctx *Context, m *Module) {
	debugf("collecting facts for module %s", m.Name)

	collectProtos(ctx, m)
	collectSettings(ctx, m)
	collectArgPasses(ctx, m)
	collectCallSites(ctx, m)

	debugf("module %s: %d protos, %d settings, %d arg-passes, %d call sites",
		m.Name, len(protosOf(ctx, m.Name)), len(settingsOf(ctx, m.Name)),
		len(argPassesOf(ctx, m.Name)), len(callSitesOf(ctx, m.Name)))
}

func protosOf(ctx *Context, module string) []FunctionProto {
	var out []FunctionProto
	for _, p := range ctx.Protos {
		if p.Module == module {
			out = append(out, p)
		}
	}
	return out
}

func settingsOf(ctx *Context, module string) []FPSetting {
	var out []FPSetting
	for _, s := range ctx.FPSettings {
		if s.Module == module {
			out = append(out, s)
		}
	}
	return out
}

func argPassesOf(ctx *Context, module string) []FPArgPass {
	var out []FPArgPass
	for _, p := range ctx.FPArgPasses {
		if p.Module == module {
			out = append(out, p)
		}
	}
	return out
}

func callSitesOf(ctx *Context, module string) []CallSite {
	var out []CallSite
	for _, cs := range ctx.CallSites {
		if cs.Module == module {
			out = append(out, cs)
		}
	}
	return out
}
