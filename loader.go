package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// LoadModules resolves each of paths to a Go module, loads its
// packages, and builds SSA in naive form (§4.1, §9 "Naive SSA form").
// Individual failures are logged and the offending path skipped; the
// pipeline proceeds with the successfully loaded subset (Load error,
// §7). Loading runs concurrently across paths but results are
// returned in input order, preserving determinism (§5).
func LoadModules(paths []string) []*Module {
	type result struct {
		idx int
		mod *Module
	}

	sem := make(chan struct{}, max(1, runtime.GOMAXPROCS(0)))
	results := make(chan result, len(paths))
	var wg sync.WaitGroup

	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m, err := loadModule(p)
			if err != nil {
				log.Warnf("skipping %s: %v", p, err)
				results <- result{idx: i, mod: nil}
				return
			}
			results <- result{idx: i, mod: m}
		}(i, p)
	}

	wg.Wait()
	close(results)

	ordered := make([]*Module, len(paths))
	for r := range results {
		ordered[r.idx] = r.mod
	}

	out := make([]*Module, 0, len(paths))
	for _, m := range ordered {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// loadModule loads and builds the SSA program for a single module
// path, grounded on the teacher's detectModulePath + packages.Config
// + ssautil.AllPackages sequence.
func loadModule(path string) (*Module, error) {
	absDir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	modulePath, err := detectModulePath(absDir)
	if err != nil {
		return nil, fmt.Errorf("detect module: %w", err)
	}

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedDeps | packages.NeedTypes |
			packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedTypesSizes,
		Dir: absDir,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found")
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		log.Warnf("%s: %d package errors (continuing anyway)", modulePath, n)
	}

	// ssa.NaiveForm keeps every local's Alloc/Store/Load triad intact
	// instead of promoting it to an SSA register, which is what makes
	// the resolver's structural dispatch rules observable at all.
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.NaiveForm|ssa.InstantiateGenerics)
	built := make([]*ssa.Package, 0, len(ssaPkgs))
	for _, p := range ssaPkgs {
		if p == nil {
			continue
		}
		p.Build()
		built = append(built, p)
	}

	return &Module{
		Name: modulePath,
		Dir:  absDir,
		Prog: prog,
		Pkgs: pkgs,
		SSA:  built,
	}, nil
}

// detectModulePath reads the go.mod file in or above dir and returns
// the module directive's value.
func detectModulePath(dir string) (string, error) {
	for d := dir; ; {
		gomod := filepath.Join(d, "go.mod")
		if data, err := os.ReadFile(gomod); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "module ") {
					return strings.TrimSpace(strings.TrimPrefix(line, "module")), nil
				}
			}
			return "", fmt.Errorf("module directive not found in %s", gomod)
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		d = parent
	}
}
