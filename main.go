package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		verbose    = flag.Bool("verbose", false, "Print per-call dispatch details and debug logging")
		compare    = flag.Bool("compare", false, "Run the CHA/RTA/VTA approximate-comparison diagnostic")
		reachFrom  = flag.String("reachable-from", "", "Print every function reachable from <module>:<function>")
		neo4jURI   = flag.String("neo4j-uri", "", "Neo4j bolt URI; enables the Neo4j sink when set")
		neo4jUser  = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass  = flag.String("neo4j-pass", "", "Neo4j password")
		neo4jClean = flag.Bool("clean", false, "Clean existing call-graph data in Neo4j before loading")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: indirect-callgraph [flags] <module-dir>...")
		flag.PrintDefaults()
	}
	flag.Parse()

	initLogging(*verbose)

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if *neo4jURI != "" && *neo4jPass == "" {
		fmt.Fprintln(os.Stderr, "Error: -neo4j-pass is required when -neo4j-uri is set")
		os.Exit(1)
	}

	log.Infof("loading %d module path(s)", len(paths))
	modules := LoadModules(paths)
	if len(modules) == 0 {
		log.Fatal("no modules could be loaded")
	}

	ctx := NewContext(*verbose)
	collector := NewCollector()
	for _, m := range modules {
		collector.Collect(ctx, m)
		BuildEdges(ctx, m)
	}

	log.Info("resolving indirect call sites")
	Resolve(ctx)

	Emit(os.Stdout, ctx, *verbose)

	if *compare {
		var reports []CompareReport
		for _, m := range modules {
			log.Infof("running CHA/RTA/VTA comparison for %s", m.Name)
			reports = append(reports, RunCompare(m))
		}
		fmt.Fprintln(os.Stdout)
		EmitCompare(os.Stdout, reports)
	}

	if *reachFrom != "" {
		fmt.Fprintln(os.Stdout)
		index := BuildReachabilityIndex(ctx)
		EmitReachability(os.Stdout, index, *reachFrom)
	}

	if *neo4jURI != "" {
		if err := loadIntoNeo4j(modules, ctx, *neo4jURI, *neo4jUser, *neo4jPass, *neo4jClean); err != nil {
			log.Fatalf("neo4j sink error: %v", err)
		}
	}
}

func loadIntoNeo4j(modules []*Module, ctx *Context, uri, user, pass string, clean bool) error {
	bg := context.Background()
	sink, err := NewNeo4jSink(bg, uri, user, pass)
	if err != nil {
		return err
	}
	defer sink.Close()

	if clean {
		if err := sink.CleanGraph(); err != nil {
			return err
		}
	}
	if err := sink.CreateIndexes(); err != nil {
		return err
	}
	if err := sink.LoadModules(modules); err != nil {
		return err
	}
	if err := sink.LoadProtos(ctx.Protos); err != nil {
		return err
	}
	if err := sink.LoadCalls(ctx.Graph); err != nil {
		return err
	}
	log.Info("call graph loaded into Neo4j")
	return nil
}
