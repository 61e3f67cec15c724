package main

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestModule materialises a throwaway Go module under t.TempDir()
// with the given go.mod and source files, mirroring what LoadModules
// expects to find on disk.
func writeTestModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// runPipeline loads dir, runs the full collect -> build-edges -> resolve
// pipeline over it, and returns the populated Context.
func runPipeline(t *testing.T, dir string) *Context {
	t.Helper()
	modules := LoadModules([]string{dir})
	if len(modules) != 1 {
		t.Fatalf("expected exactly 1 module to load, got %d", len(modules))
	}

	ctx := NewContext(false)
	collector := NewCollector()
	for _, m := range modules {
		collector.Collect(ctx, m)
		BuildEdges(ctx, m)
	}
	Resolve(ctx)
	return ctx
}

func findIndirectEdge(t *testing.T, ctx *Context, caller string) *CallEdge {
	t.Helper()
	for _, edges := range ctx.Graph {
		for _, e := range edges {
			if e.Caller == caller && e.IsIndirect {
				return e
			}
		}
	}
	t.Fatalf("no indirect edge found for caller %s (graph: %+v)", caller, ctx.Graph)
	return nil
}

func TestCollector_GlobalFunctionPointer(t *testing.T) {
	dir := writeTestModule(t, map[string]string{
		"go.mod": "module example.com/globalfp\n\ngo 1.21\n",
		"main.go": `package main

func foo() int { return 1 }
func bar() int { return 2 }

var sfp func() int = foo

func baz() int { return 3 }

func init() {
	sfp = baz
}

func main() {
	_ = sfp()
}
`,
	})

	ctx := runPipeline(t, dir)

	module := "example.com/globalfp"
	edge := findIndirectEdge(t, ctx, module+".main")
	if edge.Callee != "example.com/globalfp.baz" && edge.Callee != "example.com/globalfp.foo" {
		t.Errorf("expected sfp() to resolve to foo or baz, got %q", edge.Callee)
	}
}

func TestCollector_DynamicLocalFunctionPointer(t *testing.T) {
	dir := writeTestModule(t, map[string]string{
		"go.mod": "module example.com/dynfp\n\ngo 1.21\n",
		"main.go": `package main

func foo() int { return 1 }
func bar() int { return 2 }

func pick(cond bool) func() int {
	var fp func() int
	if cond {
		fp = foo
	} else {
		fp = bar
	}
	return fp()
}

func main() {
	_ = pick(true)
}
`,
	})

	ctx := runPipeline(t, dir)

	module := "example.com/dynfp"
	var indirectFound bool
	for _, e := range ctx.Graph[module] {
		if e.IsIndirect && e.Caller == "example.com/dynfp.pick" {
			indirectFound = true
			if e.Callee == Unresolved {
				t.Error("expected fp() to resolve to at least one candidate")
			}
		}
	}
	if !indirectFound {
		t.Fatal("expected an indirect call site in pick")
	}
}

func TestCollector_DynamicGlobalFunctionPointer(t *testing.T) {
	// A non-init function storing a function reference into a package
	// global (not just a local Alloc) must still produce an FPSetting,
	// so a later indirect call through that global resolves.
	dir := writeTestModule(t, map[string]string{
		"go.mod": "module example.com/dynglobal\n\ngo 1.21\n",
		"main.go": `package main

func myHandler() int { return 1 }

var handler func() int

func register() {
	handler = myHandler
}

func dispatch() int {
	return handler()
}

func main() {
	register()
	_ = dispatch()
}
`,
	})

	ctx := runPipeline(t, dir)

	module := "example.com/dynglobal"
	var found bool
	for _, s := range ctx.FPSettings {
		if s.Module == module && s.VarName == "handler" && s.FuncName == module+".myHandler" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an FPSetting for the non-init store into global handler, settings: %+v", ctx.FPSettings)
	}

	edge := findIndirectEdge(t, ctx, module+".dispatch")
	if edge.Callee != module+".myHandler" {
		t.Errorf("expected handler() to resolve to myHandler, got %q", edge.Callee)
	}
}

func TestCollector_StructFieldDispatch(t *testing.T) {
	dir := writeTestModule(t, map[string]string{
		"go.mod": "module example.com/vtable\n\ngo 1.21\n",
		"main.go": `package main

type inode_operations struct {
	open  func() int
	close func() int
}

func foo() int { return 1 }
func bar() int { return 2 }

var iops = inode_operations{open: foo, close: bar}

func dispatch() int {
	return iops.close()
}

func main() {
	_ = dispatch()
}
`,
	})

	ctx := runPipeline(t, dir)

	module := "example.com/vtable"
	var found bool
	for _, e := range ctx.Graph[module] {
		if e.IsIndirect && e.Caller == "example.com/vtable.dispatch" {
			found = true
			if e.Callee != "example.com/vtable.bar" {
				t.Errorf("expected iops.close() to resolve to bar, got %q", e.Callee)
			}
		}
	}
	if !found {
		t.Fatal("expected an indirect struct-field call site in dispatch")
	}
}

func TestCollector_ParameterPassedCallback(t *testing.T) {
	dir := writeTestModule(t, map[string]string{
		"go.mod": "module example.com/paramcb\n\ngo 1.21\n",
		"main.go": `package main

func foo(x int) int { return x }

func bar(x int, cb func(int) int) int {
	return cb(x)
}

func main() {
	_ = bar(10, foo)
}
`,
	})

	ctx := runPipeline(t, dir)

	module := "example.com/paramcb"
	var found bool
	for _, e := range ctx.Graph[module] {
		if e.IsIndirect && e.Caller == "example.com/paramcb.bar" {
			found = true
			if e.Callee != "example.com/paramcb.foo" {
				t.Errorf("expected cb(x) to resolve to foo, got %q", e.Callee)
			}
		}
	}
	if !found {
		t.Fatal("expected an indirect parameter-flow call site in bar")
	}
}

func TestCollector_DeterministicOrdering(t *testing.T) {
	// pkg.Members is a map; ssaPackageFunctions must still return a
	// fixed order across independent runs so that proto/call-site/edge
	// collection -- and therefore the emitted report -- is repeatable.
	files := map[string]string{
		"go.mod": "module example.com/orderstable\n\ngo 1.21\n",
		"main.go": `package main

func zed() int   { return 1 }
func alpha() int { return 2 }
func mid() int   { return 3 }

func main() {
	_ = zed()
	_ = alpha()
	_ = mid()
}
`,
	}

	var runs [][]string
	for i := 0; i < 3; i++ {
		dir := writeTestModule(t, files)
		ctx := runPipeline(t, dir)

		var names []string
		for _, p := range ctx.Protos {
			names = append(names, p.Name)
		}
		runs = append(runs, names)
	}

	for i := 1; i < len(runs); i++ {
		if len(runs[i]) != len(runs[0]) {
			t.Fatalf("run %d collected %d protos, run 0 collected %d", i, len(runs[i]), len(runs[0]))
		}
		for j := range runs[0] {
			if runs[i][j] != runs[0][j] {
				t.Errorf("run %d proto order diverged at index %d: got %q, want %q (run 0: %v, run %d: %v)",
					i, j, runs[i][j], runs[0][j], runs[0], i, runs[i])
			}
		}
	}
}

func TestCollector_DirectCallsNeverMarkedIndirect(t *testing.T) {
	dir := writeTestModule(t, map[string]string{
		"go.mod": "module example.com/direct\n\ngo 1.21\n",
		"main.go": `package main

func helper() int { return 1 }

func main() {
	_ = helper()
}
`,
	})

	ctx := runPipeline(t, dir)

	module := "example.com/direct"
	edges := ctx.Graph[module]
	if len(edges) == 0 {
		t.Fatal("expected at least one edge")
	}
	for _, e := range edges {
		if e.IsIndirect {
			t.Errorf("direct call to helper misclassified as indirect: %+v", e)
		}
		if e.Callee != "example.com/direct.helper" {
			t.Errorf("Callee = %q, want example.com/direct.helper", e.Callee)
		}
	}
}
