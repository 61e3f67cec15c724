package main

import (
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

// Unresolved is the sentinel callee of an indirect CallEdge that no
// resolver rule was able to narrow. It is a distinguished value rather
// than a bare literal so it can never collide with an identifier that
// happens to come out of go/types.
const Unresolved = "\x00indirect\x00"

// Module is one loaded Go module: a translation unit in the sense of
// spec.md's Module entity. Name is the module's declared import path
// (from go.mod), Dir its filesystem root.
type Module struct {
	Name string
	Dir  string

	Prog *ssa.Program
	Pkgs []*packages.Package
	SSA  []*ssa.Package
}

// FunctionProto is one function's signature, as collected in §4.2.1.
type FunctionProto struct {
	Module     string
	Name       string
	ReturnType string
	ParamTypes []string
	DefLine    int
}

// FPSetting records a place where a function's address is stored into
// a named location: a global initialiser, a struct field of a global,
// or a store into a local variable.
type FPSetting struct {
	Module      string
	Setter      string // enclosing function, or "global"
	VarName     string
	StructType  string // empty if not a struct field
	FieldOffset int    // field index; 0 when StructType == ""
	FuncName    string
	Line        int
}

// dedupKey is the tuple invariant 1 (§3) forbids duplicating.
type dedupKey struct {
	module      string
	funcName    string
	line        int
	fieldOffset int
	varName     string
}

func (s FPSetting) dedupKey() dedupKey {
	return dedupKey{s.Module, s.FuncName, s.Line, s.FieldOffset, s.VarName}
}

// FPArgPass records a function address passed as a call argument.
type FPArgPass struct {
	Module     string
	Caller     string
	Callee     string
	PassedFunc string
	ArgIndex   int
	Line       int
}

// DispatchKind tags the variant of a Dispatch value.
type DispatchKind int

const (
	DispatchLocalVar DispatchKind = iota
	DispatchGlobalVar
	DispatchStructField
	DispatchParameter
	DispatchUnknown
)

// Dispatch describes how an indirect call obtains its target.
type Dispatch struct {
	Kind DispatchKind

	// LocalVar / GlobalVar
	VarName string

	// StructField
	StructType  string
	FieldOffset int
	BaseVar     string

	// Parameter
	ArgIndex int
}

// CallSite is a direct or indirect call instruction.
type CallSite struct {
	Module   string
	Caller   string
	Line     int
	Indirect bool

	Callee   string // direct only
	Dispatch Dispatch
}

// CallEdge is an edge in the final call graph. Callee starts as
// Unresolved for indirect sites and is only ever narrowed afterwards
// (invariant 3).
type CallEdge struct {
	Module      string
	Caller      string
	Callee      string
	Line        int
	IsIndirect  bool
	VarName     string
	StructType  string
	FieldOffset int
	HasOffset   bool
	ArgIndex    int
	HasArgIndex bool
}

// Resolved reports whether e has been narrowed to a concrete function.
func (e CallEdge) Resolved() bool {
	return !e.IsIndirect || e.Callee != Unresolved
}

// Context threads every fact table and the call graph through the
// pipeline's stages. Nothing in this package is a package-level
// global; a Context's lifetime is one analysis run.
type Context struct {
	Verbose bool

	Protos      []FunctionProto
	FPSettings  []FPSetting
	FPArgPasses []FPArgPass
	CallSites   []CallSite

	// Graph is keyed by module name; each module's edge slice
	// preserves SSA traversal / insertion order.
	Graph map[string][]*CallEdge

	seenSettings map[dedupKey]bool
}

// NewContext returns an empty, ready-to-use Context.
func NewContext(verbose bool) *Context {
	return &Context{
		Verbose:      verbose,
		Graph:        make(map[string][]*CallEdge),
		seenSettings: make(map[dedupKey]bool),
	}
}

// AddFPSetting appends s unless its dedup key has already been
// recorded, enforcing invariant 1.
func (c *Context) AddFPSetting(s FPSetting) {
	key := s.dedupKey()
	if c.seenSettings[key] {
		return
	}
	c.seenSettings[key] = true
	c.FPSettings = append(c.FPSettings, s)
}
