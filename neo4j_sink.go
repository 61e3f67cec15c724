package main

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	log "github.com/sirupsen/logrus"
)

// Neo4jSink persists the resolved call graph into a Neo4j database
// using batched UNWIND queries, adapted from the teacher's
// Neo4jLoader. It is purely additive output: the resolver never reads
// this database back (§4.5.2 of SPEC_FULL.md).
type Neo4jSink struct {
	driver neo4j.DriverWithContext
	ctx    context.Context
}

// NewNeo4jSink connects to Neo4j and returns a ready-to-use sink.
func NewNeo4jSink(ctx context.Context, uri, user, password string) (*Neo4jSink, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jSink{driver: driver, ctx: ctx}, nil
}

// Close releases the underlying Neo4j driver resources.
func (s *Neo4jSink) Close() {
	s.driver.Close(s.ctx)
}

func (s *Neo4jSink) runCypher(cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(s.ctx, s.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

// CleanGraph removes all previously loaded call-graph nodes and relationships.
func (s *Neo4jSink) CleanGraph() error {
	log.Info("cleaning existing call-graph data in Neo4j")
	queries := []string{
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH ()-[r:IN_MODULE]->() DELETE r",
		"MATCH (n:GoFunc) DETACH DELETE n",
		"MATCH (n:GoModule) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := s.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndexes ensures the required Neo4j indexes exist.
func (s *Neo4jSink) CreateIndexes() error {
	log.Info("creating Neo4j indexes")
	indexes := []string{
		"CREATE INDEX go_module_name IF NOT EXISTS FOR (n:GoModule) ON (n.name)",
		"CREATE INDEX go_func_key IF NOT EXISTS FOR (n:GoFunc) ON (n.key)",
	}
	for _, q := range indexes {
		if err := s.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadModules upserts GoModule nodes.
func (s *Neo4jSink) LoadModules(modules []*Module) error {
	log.Infof("loading %d modules into Neo4j", len(modules))
	batch := make([]map[string]any, 0, len(modules))
	for _, m := range modules {
		batch = append(batch, map[string]any{"name": m.Name, "dir": m.Dir})
	}
	return s.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:GoModule {name: row.name})
		 SET n.dir = row.dir`,
		map[string]any{"batch": batch},
	)
}

// LoadProtos upserts GoFunc nodes for every collected prototype and
// links them to their owning module.
func (s *Neo4jSink) LoadProtos(protos []FunctionProto) error {
	log.Infof("loading %d function prototypes into Neo4j", len(protos))
	batch := make([]map[string]any, 0, len(protos))
	for _, p := range protos {
		batch = append(batch, map[string]any{
			"key":        p.Module + ":" + p.Name,
			"module":     p.Module,
			"name":       p.Name,
			"returnType": p.ReturnType,
			"defLine":    p.DefLine,
		})
	}
	return s.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:GoFunc {key: row.key})
		 SET n.name = row.name, n.module = row.module,
		     n.return_type = row.returnType, n.def_line = row.defLine
		 WITH n, row
		 MATCH (m:GoModule {name: row.module})
		 MERGE (n)-[:IN_MODULE]->(m)`,
		map[string]any{"batch": batch},
	)
}

// LoadCalls upserts CALLS relationships between GoFunc nodes for every
// edge in the resolved call graph, keyed by (module, function name)
// pairs to stay consistent with LoadProtos's node keys.
func (s *Neo4jSink) LoadCalls(graph map[string][]*CallEdge) error {
	total := 0
	for _, edges := range graph {
		total += len(edges)
	}
	log.Infof("loading %d call edges into Neo4j", total)

	batch := make([]map[string]any, 0, total)
	for module, edges := range graph {
		for _, e := range edges {
			via := ""
			if e.IsIndirect {
				via = dispatchLabel(e)
			}
			batch = append(batch, map[string]any{
				"caller":     module + ":" + e.Caller,
				"callee":     module + ":" + e.Callee,
				"isIndirect": e.IsIndirect,
				"resolved":   e.Resolved(),
				"line":       e.Line,
				"via":        via,
			})
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return s.runCypher(
		`UNWIND $batch AS row
		 MERGE (caller:GoFunc {key: row.caller})
		 MERGE (callee:GoFunc {key: row.callee})
		 MERGE (caller)-[r:CALLS]->(callee)
		 SET r.is_indirect = row.isIndirect, r.resolved = row.resolved,
		     r.line = row.line, r.via = row.via`,
		map[string]any{"batch": batch},
	)
}

// dispatchLabel renders a short diagnostic label for an indirect
// edge's dispatch kind, used only for the Neo4j "via" property.
func dispatchLabel(e *CallEdge) string {
	switch {
	case e.HasArgIndex:
		return "parameter"
	case e.HasOffset:
		return "struct_field"
	case e.VarName != "":
		return "variable"
	default:
		return "unknown"
	}
}
