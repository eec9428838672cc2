// Package update implements the SPARQL Update executor (spec C8):
// INSERT/DELETE DATA, DELETE/INSERT WHERE, and the graph-management
// shorthand operations (LOAD/CLEAR/CREATE/DROP/COPY/MOVE/ADD), all
// applied within one caller-supplied internal/quadstore transaction so
// every operation of a request commits or rolls back together.
package update

import (
	"context"
	"fmt"

	"github.com/rdfstore/rdfstore/internal/algebra"
	"github.com/rdfstore/rdfstore/internal/expr"
	"github.com/rdfstore/rdfstore/internal/federation"
	"github.com/rdfstore/rdfstore/internal/quadstore"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// QuadTemplate is one quad pattern inside an INSERT/DELETE template: its
// positions are either a constant rdf.Term or an *algebra.Variable to be
// filled in from a WHERE solution.
type QuadTemplate struct {
	Subject, Predicate, Object, Graph algebra.Term
}

// Operation is the sum type of one SPARQL Update request's operations
// (spec §4.8).
type Operation interface{ isOperation() }

// InsertData adds ground quads (no variables) directly, bypassing WHERE
// evaluation entirely.
type InsertData struct{ Quads []*rdf.Quad }

// DeleteData removes ground quads directly.
type DeleteData struct{ Quads []*rdf.Quad }

// Modify evaluates Where, then for every solution removes Delete's
// instantiated quads before inserting Insert's — the general shape
// DELETE WHERE, INSERT WHERE and DELETE/INSERT WHERE all reduce to
// (DELETE WHERE is Modify with Insert == nil, INSERT WHERE is Modify
// with Delete == nil).
type Modify struct {
	Delete []QuadTemplate
	Insert []QuadTemplate
	Where  algebra.Pattern
}

// Load reads quads from source (an already-parsed N-Quads payload
// location is an external collaborator's concern; here Quads is the
// parsed quad list handed in by the caller) into Into, or the default
// graph if Into is nil.
type Load struct {
	Quads  []*rdf.Quad
	Into   *rdf.NamedNode // nil = default graph
	Silent bool
}

// Clear empties Graph (nil = default graph), or every graph if All is
// true.
type Clear struct {
	Graph  *rdf.NamedNode
	All    bool
	Silent bool
}

// Create registers an empty named graph.
type Create struct {
	Graph  *rdf.NamedNode
	Silent bool
}

// Drop removes a named graph's quads and its registry entry, or every
// graph if All is true.
type Drop struct {
	Graph  *rdf.NamedNode
	All    bool
	Silent bool
}

// Copy replaces To's content with From's (From == nil means the default
// graph).
type Copy struct {
	From, To *rdf.NamedNode
	Silent   bool
}

// Move is Copy followed by clearing From.
type Move struct {
	From, To *rdf.NamedNode
	Silent   bool
}

// Add inserts From's quads into To without clearing To first.
type Add struct {
	From, To *rdf.NamedNode
	Silent   bool
}

func (InsertData) isOperation() {}
func (DeleteData) isOperation() {}
func (Modify) isOperation()     {}
func (Load) isOperation()       {}
func (Clear) isOperation()      {}
func (Create) isOperation()     {}
func (Drop) isOperation()       {}
func (Copy) isOperation()       {}
func (Move) isOperation()       {}
func (Add) isOperation()        {}

// Executor applies a sequence of Operations to one quadstore
// transaction, generalizing the teacher's lack of an update path (the
// teacher is read-only SPARQL query serving) from first principles,
// grounded instead in original_source/spargebra/src/algebra.rs's
// GraphUpdateOperation enum shape.
type Executor struct {
	Funcs     *expr.Registry
	Endpoints federation.Resolver
}

// Execute applies every op against tx in order. The caller commits or
// rolls back tx; Execute itself never commits (spec §4.8 "All operations
// of a single update request commit together").
func (e *Executor) Execute(ctx context.Context, ops []Operation, tx *quadstore.Txn) error {
	for _, op := range ops {
		if err := e.executeOne(ctx, op, tx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) executeOne(ctx context.Context, op Operation, tx *quadstore.Txn) error {
	switch o := op.(type) {
	case InsertData:
		return insertQuads(tx, o.Quads)
	case DeleteData:
		return deleteQuads(tx, o.Quads)
	case Modify:
		return e.executeModify(ctx, o, tx)
	case Load:
		return e.executeLoad(o, tx)
	case Clear:
		return e.executeClear(o, tx)
	case Create:
		return e.executeCreate(o, tx)
	case Drop:
		return e.executeDrop(o, tx)
	case Copy:
		return e.executeCopy(o, tx)
	case Move:
		return e.executeMove(o, tx)
	case Add:
		return e.executeAdd(o, tx)
	default:
		return fmt.Errorf("update: unsupported operation %T", op)
	}
}

func insertQuads(tx *quadstore.Txn, quads []*rdf.Quad) error {
	for _, q := range quads {
		if err := tx.InsertQuad(q); err != nil {
			return fmt.Errorf("update: insert data: %w", err)
		}
	}
	return nil
}

func deleteQuads(tx *quadstore.Txn, quads []*rdf.Quad) error {
	for _, q := range quads {
		if err := tx.RemoveQuad(q); err != nil {
			return fmt.Errorf("update: delete data: %w", err)
		}
	}
	return nil
}

// executeModify evaluates Where once, then for each solution
// instantiates Delete and removes those quads before instantiating
// Insert and adding those (spec §4.8's evaluate-then-substitute order;
// deleting before inserting matches SPARQL 1.1's Update semantics of
// evaluating DELETE against the pre-update graph and applying DELETE
// before INSERT within each solution).
func (e *Executor) executeModify(ctx context.Context, m Modify, tx *quadstore.Txn) error {
	if m.Where == nil {
		return fmt.Errorf("update: modify requires a WHERE pattern")
	}
	ev := algebra.NewEvaluator(ctx, tx, e.Funcs, e.Endpoints)
	sol, err := ev.Eval(m.Where)
	if err != nil {
		return fmt.Errorf("update: evaluate WHERE: %w", err)
	}
	defer sol.Close()

	skolem := make(map[string]rdf.Term)
	for sol.Next() {
		row := sol.Binding()
		skolemizeReset(skolem)
		for _, tmpl := range m.Delete {
			q, ok := instantiate(tmpl, row, skolem)
			if !ok {
				continue
			}
			if err := tx.RemoveQuad(q); err != nil {
				return fmt.Errorf("update: modify delete: %w", err)
			}
		}
		for _, tmpl := range m.Insert {
			q, ok := instantiate(tmpl, row, skolem)
			if !ok {
				continue
			}
			if err := tx.InsertQuad(q); err != nil {
				return fmt.Errorf("update: modify insert: %w", err)
			}
		}
	}
	return nil
}

// skolemizeReset clears the per-solution blank-node cache: a blank node
// label in a template gets a single fresh term within one solution (so
// repeated occurrences of "_:b" in the same template row refer to the
// same node) but a distinct fresh term across different solutions (spec
// §4.8 "skolemize template blank nodes per solution"), grounded in
// original_source/spargebra/src/algebra.rs's BlankNodeIdGenerator, which
// resets the same way per new solution row.
func skolemizeReset(m map[string]rdf.Term) {
	for k := range m {
		delete(m, k)
	}
}

// instantiate substitutes row's bindings and skolem's per-solution
// blank-node assignments into tmpl, returning ok=false if any variable
// position is unbound in row (an unbound template position means that
// quad contributes nothing for this solution, per SPARQL 1.1 Update).
func instantiate(tmpl QuadTemplate, row *algebra.Binding, skolem map[string]rdf.Term) (*rdf.Quad, bool) {
	s, ok := resolveTemplateTerm(tmpl.Subject, row, skolem)
	if !ok {
		return nil, false
	}
	p, ok := resolveTemplateTerm(tmpl.Predicate, row, skolem)
	if !ok {
		return nil, false
	}
	o, ok := resolveTemplateTerm(tmpl.Object, row, skolem)
	if !ok {
		return nil, false
	}
	var g rdf.Term = rdf.NewDefaultGraph()
	if tmpl.Graph != nil {
		var ok bool
		g, ok = resolveTemplateTerm(tmpl.Graph, row, skolem)
		if !ok {
			return nil, false
		}
	}
	return &rdf.Quad{Subject: s, Predicate: p, Object: o, Graph: g}, true
}

// resolveTemplateTerm resolves one template position to a concrete
// rdf.Term: a *algebra.Variable looks up row, an *rdf.BlankNode is
// skolemized (fresh per label per solution), anything else is already a
// constant term.
func resolveTemplateTerm(t algebra.Term, row *algebra.Binding, skolem map[string]rdf.Term) (rdf.Term, bool) {
	switch v := t.(type) {
	case *algebra.Variable:
		return row.Lookup(v.Name)
	case *rdf.BlankNode:
		if fresh, ok := skolem[v.ID]; ok {
			return fresh, true
		}
		fresh := rdf.NewBlankNodeID()
		skolem[v.ID] = fresh
		return fresh, true
	case rdf.Term:
		return v, true
	}
	return nil, false
}

func (e *Executor) executeLoad(o Load, tx *quadstore.Txn) error {
	into := graphTermOrDefault(o.Into)
	for _, q := range o.Quads {
		loaded := &rdf.Quad{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object, Graph: into}
		if err := tx.InsertQuad(loaded); err != nil {
			if o.Silent {
				return nil
			}
			return fmt.Errorf("update: load: %w", err)
		}
	}
	return nil
}

func (e *Executor) executeClear(o Clear, tx *quadstore.Txn) error {
	var err error
	if o.All {
		err = tx.ClearAll()
	} else {
		err = tx.ClearGraph(graphTermOrDefault(o.Graph))
	}
	if err != nil && !o.Silent {
		return fmt.Errorf("update: clear: %w", err)
	}
	return nil
}

func (e *Executor) executeCreate(o Create, tx *quadstore.Txn) error {
	if err := tx.InsertNamedGraph(o.Graph); err != nil && !o.Silent {
		return fmt.Errorf("update: create: %w", err)
	}
	return nil
}

func (e *Executor) executeDrop(o Drop, tx *quadstore.Txn) error {
	if o.All {
		if err := tx.ClearAll(); err != nil && !o.Silent {
			return fmt.Errorf("update: drop all: %w", err)
		}
		return nil
	}
	if err := tx.ClearGraph(o.Graph); err != nil && !o.Silent {
		return fmt.Errorf("update: drop: %w", err)
	}
	if err := tx.RemoveNamedGraph(o.Graph); err != nil && !o.Silent {
		return fmt.Errorf("update: drop: %w", err)
	}
	return nil
}

func (e *Executor) executeCopy(o Copy, tx *quadstore.Txn) error {
	if err := tx.ClearGraph(graphTermOrDefault(o.To)); err != nil && !o.Silent {
		return fmt.Errorf("update: copy: %w", err)
	}
	return e.copyQuads(o.From, o.To, tx, o.Silent)
}

func (e *Executor) executeMove(o Move, tx *quadstore.Txn) error {
	if err := e.executeCopy(Copy{From: o.From, To: o.To, Silent: o.Silent}, tx); err != nil {
		return err
	}
	if err := tx.ClearGraph(graphTermOrDefault(o.From)); err != nil && !o.Silent {
		return fmt.Errorf("update: move: %w", err)
	}
	return nil
}

func (e *Executor) executeAdd(o Add, tx *quadstore.Txn) error {
	if err := e.copyQuads(o.From, o.To, tx, o.Silent); err != nil {
		return err
	}
	return nil
}

// copyQuads streams every quad in graph From into graph To (no clearing
// of To — callers needing COPY's "replace" semantics clear first).
func (e *Executor) copyQuads(from, to *rdf.NamedNode, tx *quadstore.Txn, silent bool) error {
	qp := &quadstore.Pattern{
		Subject:   quadstore.NewVariable("s"),
		Predicate: quadstore.NewVariable("p"),
		Object:    quadstore.NewVariable("o"),
		Graph:     graphTermOrDefault(from),
	}
	qi, err := tx.Query(qp)
	if err != nil {
		if silent {
			return nil
		}
		return fmt.Errorf("update: copy source scan: %w", err)
	}
	defer qi.Close()
	toGraph := graphTermOrDefault(to)
	for qi.Next() {
		q, err := qi.Quad()
		if err != nil {
			if silent {
				continue
			}
			return fmt.Errorf("update: copy source decode: %w", err)
		}
		dst := &rdf.Quad{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object, Graph: toGraph}
		if err := tx.InsertQuad(dst); err != nil {
			if silent {
				continue
			}
			return fmt.Errorf("update: copy insert: %w", err)
		}
	}
	return nil
}

func graphTermOrDefault(g *rdf.NamedNode) rdf.Term {
	if g == nil {
		return rdf.NewDefaultGraph()
	}
	return g
}
