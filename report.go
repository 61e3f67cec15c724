package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Emit implements §4.5.1: print the four labelled report sections to
// w in the order spec.md §6 describes.
func Emit(w io.Writer, ctx *Context, verbose bool) {
	emitModuleFunctionMap(w, ctx)
	emitFunctionPointerSettings(w, ctx)
	emitFunctionPointerCallMap(w, ctx)
	emitCallGraph(w, ctx, verbose)
}

func emitModuleFunctionMap(w io.Writer, ctx *Context) {
	fmt.Fprintln(w, "=== ModuleFunctionMap ===")
	byModule := map[string][]FunctionProto{}
	var modules []string
	for _, p := range ctx.Protos {
		if _, ok := byModule[p.Module]; !ok {
			modules = append(modules, p.Module)
		}
		byModule[p.Module] = append(byModule[p.Module], p)
	}
	sort.Strings(modules)
	for _, mod := range modules {
		fmt.Fprintf(w, "Module: %s\n", mod)
		for _, p := range byModule[mod] {
			fmt.Fprintf(w, "  %s:%s:%s:%d\n", p.Name, p.ReturnType, strings.Join(p.ParamTypes, ","), p.DefLine)
		}
	}
	fmt.Fprintln(w)
}

func emitFunctionPointerSettings(w io.Writer, ctx *Context) {
	fmt.Fprintln(w, "=== FunctionPointerSettings ===")
	type key struct {
		module string
		line   int
	}
	grouped := map[key][]FPSetting{}
	var keys []key
	for _, s := range ctx.FPSettings {
		k := key{s.Module, s.Line}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], s)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].module != keys[j].module {
			return keys[i].module < keys[j].module
		}
		return keys[i].line < keys[j].line
	})
	for _, k := range keys {
		fmt.Fprintf(w, "%s:%d\n", k.module, k.line)
		for _, s := range grouped[k] {
			fmt.Fprintf(w, "  setter=%s struct=%s func=%s line=%d offset=%d\n",
				s.Setter, s.StructType, s.FuncName, s.Line, s.FieldOffset)
		}
	}
	fmt.Fprintln(w)
}

func emitFunctionPointerCallMap(w io.Writer, ctx *Context) {
	fmt.Fprintln(w, "=== FunctionPointerCallMap ===")
	type key struct {
		module   string
		line     int
		argIndex int
	}
	grouped := map[key][]FPArgPass{}
	var keys []key
	for _, p := range ctx.FPArgPasses {
		k := key{p.Module, p.Line, p.ArgIndex}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].module != keys[j].module {
			return keys[i].module < keys[j].module
		}
		if keys[i].line != keys[j].line {
			return keys[i].line < keys[j].line
		}
		return keys[i].argIndex < keys[j].argIndex
	})
	for _, k := range keys {
		fmt.Fprintf(w, "%s:%d:%d\n", k.module, k.line, k.argIndex)
		for _, p := range grouped[k] {
			fmt.Fprintf(w, "  caller=%s callee=%s passed=%s line=%d arg=%d\n",
				p.Caller, p.Callee, p.PassedFunc, p.Line, p.ArgIndex)
		}
	}
	fmt.Fprintln(w)
}

func emitCallGraph(w io.Writer, ctx *Context, verbose bool) {
	fmt.Fprintln(w, "=== Call Graph ===")
	var modules []string
	for mod := range ctx.Graph {
		modules = append(modules, mod)
	}
	sort.Strings(modules)
	for _, mod := range modules {
		for _, e := range ctx.Graph[mod] {
			callee := e.Callee
			marker := ""
			if e.IsIndirect {
				marker = " [indirect]"
				if callee == Unresolved {
					callee = "indirect"
				}
			}
			fmt.Fprintf(w, "%s: %s -> %s [line %d]%s\n", mod, e.Caller, callee, e.Line, marker)
			if verbose && e.IsIndirect {
				fmt.Fprintf(w, "    via: var=%q struct=%q offset=%d arg=%d\n",
					e.VarName, e.StructType, e.FieldOffset, e.ArgIndex)
			}
		}
	}
}
