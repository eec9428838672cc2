package algebra

import (
	"context"
	"testing"

	"github.com/rdfstore/rdfstore/internal/expr"
	"github.com/rdfstore/rdfstore/internal/federation"
	"github.com/rdfstore/rdfstore/internal/kv"
	"github.com/rdfstore/rdfstore/internal/quadstore"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

func openTestTxn(t *testing.T) *quadstore.Txn {
	t.Helper()
	kvStore, err := kv.Open("", kv.WithInMemory())
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	t.Cleanup(func() { kvStore.Close() })
	store, err := quadstore.Open(kvStore)
	if err != nil {
		t.Fatalf("quadstore.Open: %v", err)
	}
	txn := store.Begin(true)
	t.Cleanup(txn.Rollback)
	return txn
}

func newTestEvaluator(t *testing.T, txn *quadstore.Txn) *Evaluator {
	t.Helper()
	return NewEvaluator(context.Background(), txn, expr.NewRegistry(), federation.NopResolver{})
}

func insertQuad(t *testing.T, txn *quadstore.Txn, s, p, o, g rdf.Term) {
	t.Helper()
	if err := txn.InsertQuad(rdf.NewQuad(s, p, o, g)); err != nil {
		t.Fatalf("InsertQuad: %v", err)
	}
}

func drain(t *testing.T, sol Solutions) []*Binding {
	t.Helper()
	var rows []*Binding
	for sol.Next() {
		rows = append(rows, sol.Binding())
	}
	if err := sol.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return rows
}

var (
	alice = rdf.NewNamedNode("http://example/alice")
	bob   = rdf.NewNamedNode("http://example/bob")
	carol = rdf.NewNamedNode("http://example/carol")
	knows = rdf.NewNamedNode("http://example/knows")
	likes = rdf.NewNamedNode("http://example/likes")
	name  = rdf.NewNamedNode("http://example/name")
	g1    = rdf.NewNamedNode("http://example/graph1")
)

func defaultGraph() rdf.Term { return rdf.NewDefaultGraph() }

func TestBGPRepeatedVariableConsistency(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, alice, defaultGraph())
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	e := newTestEvaluator(t, txn)

	p := &BGP{Triples: []TriplePattern{
		{Subject: NewVariable("x"), Predicate: knows, Object: NewVariable("x")},
	}}
	sol, err := e.Eval(p)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one self-knowing row, got %d", len(rows))
	}
	if got, _ := rows[0].Lookup("x"); !got.Equals(alice) {
		t.Errorf("?x = %v, want alice", got)
	}
}

func TestJoinMatchesCompatibleBindings(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, bob, name, rdf.NewLiteral("Bob"), defaultGraph())
	e := newTestEvaluator(t, txn)

	left := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("p")}}}
	right := &BGP{Triples: []TriplePattern{{Subject: NewVariable("p"), Predicate: name, Object: NewVariable("n")}}}
	sol, err := e.Eval(&Join{Left: left, Right: right})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 joined row, got %d", len(rows))
	}
	if n, _ := rows[0].Lookup("n"); n.(*rdf.Literal).Value != "Bob" {
		t.Errorf("?n = %v, want Bob", n)
	}
}

func TestLeftJoinKeepsUnmatchedLeftRowUnbound(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, carol, knows, bob, defaultGraph())
	insertQuad(t, txn, bob, name, rdf.NewLiteral("Bob"), defaultGraph())
	e := newTestEvaluator(t, txn)

	left := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: knows, Object: NewVariable("p")}}}
	right := &BGP{Triples: []TriplePattern{{Subject: NewVariable("p"), Predicate: likes, Object: NewVariable("n")}}}
	sol, err := e.Eval(&LeftJoin{Left: left, Right: right})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 2 {
		t.Fatalf("expected both left rows to survive unmatched, got %d", len(rows))
	}
	for _, r := range rows {
		if _, bound := r.Lookup("n"); bound {
			t.Errorf("?n should be unbound since no likes triple exists, got %+v", r.Vars)
		}
	}
}

func TestLeftJoinFilterExcludesNonMatchingRightRow(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, name, rdf.NewIntegerLiteral(30), defaultGraph())
	e := newTestEvaluator(t, txn)

	left := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: name, Object: NewVariable("age")}}}
	right := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: name, Object: NewVariable("age2")}}}
	filter := &CallExpr{Name: ">", Args: []Expr{&VarExpr{Name: "age2"}, &TermExpr{Term: rdf.NewIntegerLiteral(100)}}}
	sol, err := e.Eval(&LeftJoin{Left: left, Right: right, Filter: filter})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, bound := rows[0].Lookup("age2"); bound {
		t.Error("the false filter should make ?age2 unbound, OPTIONAL semantics")
	}
}

func TestMinusRemovesSharedRows(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, alice, knows, carol, defaultGraph())
	insertQuad(t, txn, bob, likes, carol, defaultGraph())
	e := newTestEvaluator(t, txn)

	left := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("x")}}}
	right := &BGP{Triples: []TriplePattern{{Subject: NewVariable("y"), Predicate: likes, Object: NewVariable("x")}}}
	sol, err := e.Eval(&Minus{Left: left, Right: right})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after removing the shared binding, got %d", len(rows))
	}
	if x, _ := rows[0].Lookup("x"); !x.Equals(bob) {
		t.Errorf("?x = %v, want bob", x)
	}
}

func TestMinusWithNoSharedVariablesPassesLeftThrough(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, carol, likes, bob, defaultGraph())
	e := newTestEvaluator(t, txn)

	left := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("x")}}}
	right := &BGP{Triples: []TriplePattern{{Subject: NewVariable("y"), Predicate: likes, Object: bob}}}
	sol, err := e.Eval(&Minus{Left: left, Right: right})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("no shared variables means left passes through untouched, got %d rows", len(rows))
	}
}

func TestUnionCombinesBothSides(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, alice, likes, carol, defaultGraph())
	e := newTestEvaluator(t, txn)

	left := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("x")}}}
	right := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: likes, Object: NewVariable("x")}}}
	sol, err := e.Eval(&Union{Left: left, Right: right})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 2 {
		t.Fatalf("expected 2 union rows, got %d", len(rows))
	}
}

func TestFilterDropsRowsOnFalseOrUndefined(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, name, rdf.NewIntegerLiteral(30), defaultGraph())
	insertQuad(t, txn, bob, name, rdf.NewIntegerLiteral(10), defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: name, Object: NewVariable("n")}}}
	filter := &CallExpr{Name: ">", Args: []Expr{&VarExpr{Name: "n"}, &TermExpr{Term: rdf.NewIntegerLiteral(20)}}}
	sol, err := e.Eval(&Filter{Input: input, Expr: filter})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row to survive the filter, got %d", len(rows))
	}
	if s, _ := rows[0].Lookup("s"); !s.Equals(alice) {
		t.Errorf("surviving row should be alice, got %v", s)
	}
}

func TestExtendBindsComputedColumn(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, name, rdf.NewIntegerLiteral(30), defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: name, Object: NewVariable("n")}}}
	bindExpr := &CallExpr{Name: "+", Args: []Expr{&VarExpr{Name: "n"}, &TermExpr{Term: rdf.NewIntegerLiteral(1)}}}
	sol, err := e.Eval(&Extend{Input: input, Var: "n1", Expr: bindExpr})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	v, bound := rows[0].Lookup("n1")
	if !bound || v.(*rdf.Literal).Value != "31" {
		t.Errorf("?n1 = %v bound=%v, want 31", v, bound)
	}
}

func TestExtendLeavesVariableUnboundOnUndefinedExpr(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, name, rdf.NewLiteral("alice"), defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: name, Object: NewVariable("n")}}}
	sol, err := e.Eval(&Extend{Input: input, Var: "missing", Expr: &VarExpr{Name: "doesnotexist"}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, bound := rows[0].Lookup("missing"); bound {
		t.Error("BIND of an undefined expression should leave the variable unbound, not drop the row")
	}
}

func TestValuesProducesGivenRows(t *testing.T) {
	txn := openTestTxn(t)
	e := newTestEvaluator(t, txn)

	v := &Values{Vars: []string{"x"}, Rows: [][]rdf.Term{{alice}, {bob}, {nil}}}
	sol, err := e.Eval(v)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if _, bound := rows[2].Lookup("x"); bound {
		t.Error("a nil entry in VALUES should mean UNDEF, leaving ?x unbound")
	}
}

func TestOrderByAscendingAndDescending(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, name, rdf.NewIntegerLiteral(30), defaultGraph())
	insertQuad(t, txn, bob, name, rdf.NewIntegerLiteral(10), defaultGraph())
	insertQuad(t, txn, carol, name, rdf.NewIntegerLiteral(20), defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: name, Object: NewVariable("n")}}}
	sol, err := e.Eval(&OrderBy{Input: input, Keys: []SortKey{{Expr: &VarExpr{Name: "n"}}}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	want := []int64{10, 20, 30}
	for i, r := range rows {
		n, _ := r.Lookup("n")
		if n.(*rdf.Literal).Value != rdf.NewIntegerLiteral(want[i]).Value {
			t.Errorf("row %d = %v, want %d", i, n, want[i])
		}
	}

	sol, err = e.Eval(&OrderBy{Input: input, Keys: []SortKey{{Expr: &VarExpr{Name: "n"}, Desc: true}}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows = drain(t, sol)
	n0, _ := rows[0].Lookup("n")
	if n0.(*rdf.Literal).Value != rdf.NewIntegerLiteral(30).Value {
		t.Errorf("descending first row = %v, want 30", n0)
	}
}

func TestProjectKeepsOnlyRequestedVariables(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: knows, Object: NewVariable("o")}}}
	sol, err := e.Eval(&Project{Input: input, Vars: []string{"s"}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, bound := rows[0].Lookup("o"); bound {
		t.Error("Project should drop ?o, it was not requested")
	}
	if _, bound := rows[0].Lookup("s"); !bound {
		t.Error("Project should keep ?s")
	}
}

func TestDistinctAndReducedBothDedup(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, alice, knows, carol, defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &Project{
		Input: &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("x")}}},
		Vars:  []string{},
	}
	sol, err := e.Eval(&Distinct{Input: input})
	if err != nil {
		t.Fatalf("Eval Distinct: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("Distinct over a projection to zero columns should collapse to 1 row, got %d", len(rows))
	}

	sol, err = e.Eval(&Reduced{Input: input})
	if err != nil {
		t.Fatalf("Eval Reduced: %v", err)
	}
	rows = drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("Reduced is implemented as an always-dedup, expected 1 row, got %d", len(rows))
	}
}

func TestSliceOffsetAndLimit(t *testing.T) {
	txn := openTestTxn(t)
	for i := int64(0); i < 5; i++ {
		insertQuad(t, txn, rdf.NewBlankNodeID(), name, rdf.NewIntegerLiteral(i), defaultGraph())
	}
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: name, Object: NewVariable("n")}}}
	sol, err := e.Eval(&Slice{Input: input, Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows from offset 2 limit 2, got %d", len(rows))
	}

	sol, err = e.Eval(&Slice{Input: input, Offset: 0, Limit: -1})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows = drain(t, sol)
	if len(rows) != 5 {
		t.Fatalf("limit -1 means unbounded, expected 5 rows, got %d", len(rows))
	}
}

func TestGroupAggregatesPerGroup(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, likes, rdf.NewIntegerLiteral(1), defaultGraph())
	insertQuad(t, txn, alice, likes, rdf.NewIntegerLiteral(2), defaultGraph())
	insertQuad(t, txn, bob, likes, rdf.NewIntegerLiteral(10), defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: likes, Object: NewVariable("n")}}}
	group := &Group{
		Input: input,
		Vars:  []string{"s"},
		Aggregates: []AggregateExpr{
			{Var: "total", Func: "SUM", Expr: &VarExpr{Name: "n"}},
		},
	}
	sol, err := e.Eval(group)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
	totals := map[string]string{}
	for _, r := range rows {
		s, _ := r.Lookup("s")
		total, _ := r.Lookup("total")
		totals[s.String()] = total.(*rdf.Literal).Value
	}
	if totals[alice.String()] != "3" {
		t.Errorf("alice's SUM(?n) = %v, want 3", totals[alice.String()])
	}
	if totals[bob.String()] != "10" {
		t.Errorf("bob's SUM(?n) = %v, want 10", totals[bob.String()])
	}
}

func TestGroupEmptyInputWithNoVarsYieldsOneGroup(t *testing.T) {
	txn := openTestTxn(t)
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: likes, Object: NewVariable("n")}}}
	group := &Group{
		Input:      input,
		Vars:       nil,
		Aggregates: []AggregateExpr{{Var: "c", Func: "COUNT"}},
	}
	sol, err := e.Eval(group)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("COUNT(*) over zero input rows should still yield one group, got %d", len(rows))
	}
	c, _ := rows[0].Lookup("c")
	if c.(*rdf.Literal).Value != "0" {
		t.Errorf("COUNT(*) over no rows = %v, want 0", c)
	}
}

func TestGraphRestrictsToNamedGraph(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, g1)
	insertQuad(t, txn, alice, knows, carol, defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("x")}}}
	sol, err := e.Eval(&Graph{Input: input, Name: g1})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row scoped to g1, got %d", len(rows))
	}
	if x, _ := rows[0].Lookup("x"); !x.Equals(bob) {
		t.Errorf("?x = %v, want bob", x)
	}
}

func TestGraphVariableEnumeratesNamedGraphs(t *testing.T) {
	txn := openTestTxn(t)
	if err := txn.InsertNamedGraph(g1); err != nil {
		t.Fatalf("InsertNamedGraph: %v", err)
	}
	insertQuad(t, txn, alice, knows, bob, g1)
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: alice, Predicate: knows, Object: NewVariable("x")}}}
	sol, err := e.Eval(&Graph{Input: input, Name: NewVariable("g")})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	g, bound := rows[0].Lookup("g")
	if !bound || !g.Equals(g1) {
		t.Errorf("?g = %v, want g1", g)
	}
}

func TestServiceSilentSubstitutesEmptySolutionOnMissingEndpoint(t *testing.T) {
	txn := openTestTxn(t)
	e := NewEvaluator(context.Background(), txn, expr.NewRegistry(), federation.NopResolver{})

	sol, err := e.Eval(&Service{Endpoint: rdf.NewNamedNode("http://example/sparql"), Query: "SELECT * WHERE { ?s ?p ?o }", Silent: true})
	if err != nil {
		t.Fatalf("SERVICE SILENT should never surface the resolver error: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 empty solution row, got %d", len(rows))
	}
}

func TestServiceNonSilentPropagatesResolverError(t *testing.T) {
	txn := openTestTxn(t)
	e := NewEvaluator(context.Background(), txn, expr.NewRegistry(), federation.NopResolver{})

	_, err := e.Eval(&Service{Endpoint: rdf.NewNamedNode("http://example/sparql"), Query: "SELECT * WHERE { ?s ?p ?o }"})
	if err == nil {
		t.Fatal("a non-SILENT SERVICE against NopResolver should error")
	}
}

func TestExistsFilterDetectsSolutions(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: knows, Object: NewVariable("o")}}}
	existsPattern := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: likes, Object: NewVariable("o")}}}
	sol, err := e.Eval(&Filter{Input: input, Expr: &ExistsExpr{Pattern: existsPattern, Not: true}})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("NOT EXISTS should keep the row since alice never 'likes' bob, got %d rows", len(rows))
	}
}

func TestInExprMatchesAnyListedValue(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, name, rdf.NewIntegerLiteral(10), defaultGraph())
	insertQuad(t, txn, bob, name, rdf.NewIntegerLiteral(99), defaultGraph())
	e := newTestEvaluator(t, txn)

	input := &BGP{Triples: []TriplePattern{{Subject: NewVariable("s"), Predicate: name, Object: NewVariable("n")}}}
	inExpr := &InExpr{
		Expr: &VarExpr{Name: "n"},
		Values: []Expr{
			&TermExpr{Term: rdf.NewIntegerLiteral(10)},
			&TermExpr{Term: rdf.NewIntegerLiteral(20)},
		},
	}
	sol, err := e.Eval(&Filter{Input: input, Expr: inExpr})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("expected 1 IN match, got %d", len(rows))
	}
	if s, _ := rows[0].Lookup("s"); !s.Equals(alice) {
		t.Errorf("matching row should be alice, got %v", s)
	}
}

func TestPropertyPathSequenceAndInverse(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, bob, likes, carol, defaultGraph())
	e := newTestEvaluator(t, txn)

	seq := &PathSequence{Left: &PathLink{IRI: knows}, Right: &PathLink{IRI: likes}}
	p := &BGP{Triples: []TriplePattern{{Subject: alice, Object: NewVariable("x"), Path: seq}}}
	sol, err := e.Eval(p)
	if err != nil {
		t.Fatalf("Eval sequence path: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 1 {
		t.Fatalf("alice knows/likes should reach carol exactly once, got %d rows", len(rows))
	}
	if x, _ := rows[0].Lookup("x"); !x.Equals(carol) {
		t.Errorf("?x = %v, want carol", x)
	}

	inv := &PathInverse{Path: &PathLink{IRI: knows}}
	p2 := &BGP{Triples: []TriplePattern{{Subject: bob, Object: NewVariable("y"), Path: inv}}}
	sol2, err := e.Eval(p2)
	if err != nil {
		t.Fatalf("Eval inverse path: %v", err)
	}
	rows2 := drain(t, sol2)
	if len(rows2) != 1 {
		t.Fatalf("expected 1 inverse match, got %d", len(rows2))
	}
	if y, _ := rows2[0].Lookup("y"); !y.Equals(alice) {
		t.Errorf("?y = %v, want alice", y)
	}
}

func TestPropertyPathOneOrMoreTransitiveClosure(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	insertQuad(t, txn, bob, knows, carol, defaultGraph())
	e := newTestEvaluator(t, txn)

	star := &PathOneOrMore{Path: &PathLink{IRI: knows}}
	p := &BGP{Triples: []TriplePattern{{Subject: alice, Object: NewVariable("x"), Path: star}}}
	sol, err := e.Eval(p)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	if len(rows) != 2 {
		t.Fatalf("alice knows+ should reach both bob and carol, got %d rows", len(rows))
	}
	seen := map[string]bool{}
	for _, r := range rows {
		x, _ := r.Lookup("x")
		seen[x.String()] = true
	}
	if !seen[bob.String()] || !seen[carol.String()] {
		t.Errorf("expected bob and carol reachable, got %v", seen)
	}
}

func TestPropertyPathZeroOrMoreIncludesReflexivePairs(t *testing.T) {
	txn := openTestTxn(t)
	insertQuad(t, txn, alice, knows, bob, defaultGraph())
	e := newTestEvaluator(t, txn)

	star := &PathZeroOrMore{Path: &PathLink{IRI: knows}}
	p := &BGP{Triples: []TriplePattern{{Subject: alice, Object: NewVariable("x"), Path: star}}}
	sol, err := e.Eval(p)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	rows := drain(t, sol)
	seen := map[string]bool{}
	for _, r := range rows {
		x, _ := r.Lookup("x")
		seen[x.String()] = true
	}
	if !seen[alice.String()] {
		t.Error("zero-length path should include the reflexive (alice, alice) pair")
	}
	if !seen[bob.String()] {
		t.Error("expected bob reachable via one hop")
	}
}
