// Package store is the module's public entry point (spec §6 "External
// interfaces"): open/close a store, mutate quads and named graphs
// directly, run SPARQL queries and updates, bulk-load, and manage the
// on-disk footprint (flush/optimize/backup). It wires internal/quadstore,
// internal/algebra and internal/update together behind the single
// surface spec.md describes, generalizing the teacher's
// pkg/store.TripleStore (which only exposed Query) to the full read/
// write/update/admin surface.
package store

import (
	"context"
	"fmt"
	"io"

	"github.com/rdfstore/rdfstore/internal/algebra"
	"github.com/rdfstore/rdfstore/internal/expr"
	"github.com/rdfstore/rdfstore/internal/federation"
	"github.com/rdfstore/rdfstore/internal/kv"
	"github.com/rdfstore/rdfstore/internal/quadstore"
	"github.com/rdfstore/rdfstore/internal/update"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// Logger is the optional structured-logging seam (SPEC_FULL.md B.2),
// mirroring badger.Options.Logger generalized to the whole store. The
// zero value (nil fields) behaves as a no-op.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Options configures Open in functional-options style (SPEC_FULL.md B.3),
// following the teacher's badger.DefaultOptions(path)-plus-overrides
// pattern. It carries read-only mode and the Logger; in-memory mode is
// chosen by the constructor. The FD budget (internal/kv), the regex
// pattern-length cap (internal/expr) and the bulk-loader flush budget
// (internal/quadstore) are fixed there and are not set through Options.
type Options struct {
	readOnly bool
	inMemory bool
	logger   Logger
}

type Option func(*Options)

// WithReadOnly opens the store read-only.
func WithReadOnly() Option { return func(o *Options) { o.readOnly = true } }

// WithLogger wires a Logger; nil disables logging (the default).
func WithLogger(l Logger) Option { return func(o *Options) { o.logger = l } }

// Store is an embeddable RDF quad store with a SPARQL 1.1 query/update
// engine (spec §1).
type Store struct {
	kv     *kv.Store
	quads  *quadstore.Store
	funcs  *expr.Registry
	logger Logger
}

// OpenReadWrite opens (creating if necessary) a store at path for
// reading and writing.
func OpenReadWrite(path string, opts ...Option) (*Store, error) {
	return open(path, false, opts)
}

// OpenReadOnly opens an existing store at path for reading only.
func OpenReadOnly(path string, opts ...Option) (*Store, error) {
	return open(path, false, append(opts, WithReadOnly()))
}

// NewInMemory opens a store that never touches disk, for tests and
// ephemeral use.
func NewInMemory(opts ...Option) (*Store, error) {
	return open("", true, opts)
}

func open(path string, inMemory bool, opts []Option) (*Store, error) {
	o := &Options{logger: nopLogger{}}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = nopLogger{}
	}
	var kvOpts []kv.Option
	if inMemory {
		kvOpts = append(kvOpts, kv.WithInMemory())
	}
	if o.readOnly {
		kvOpts = append(kvOpts, kv.WithReadOnly())
	}
	kvStore, err := kv.Open(path, kvOpts...)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	qs, err := quadstore.Open(kvStore)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	reg := expr.NewRegistry()
	return &Store{kv: kvStore, quads: qs, funcs: reg, logger: o.logger}, nil
}

// Close releases the store's resources.
func (s *Store) Close() error { return s.quads.Close() }

// Functions returns the built-in/custom function registry queries and
// updates resolve calls against, so a caller can register custom scalar
// functions by IRI (spec §5 "any number of threads" registering
// concurrently — Registry.Register is itself mutex-guarded).
func (s *Store) Functions() *expr.Registry { return s.funcs }

// --- quad-level operations ----------------------------------------------

// Insert adds q to the store in its own transaction.
func (s *Store) Insert(q *rdf.Quad) error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	if err := txn.InsertQuad(q); err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return txn.Commit()
}

// Remove deletes q from the store in its own transaction.
func (s *Store) Remove(q *rdf.Quad) error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	if err := txn.RemoveQuad(q); err != nil {
		return fmt.Errorf("store: remove: %w", err)
	}
	return txn.Commit()
}

// Contains reports whether q is present.
func (s *Store) Contains(q *rdf.Quad) (bool, error) {
	txn := s.quads.Begin(false)
	defer txn.Rollback()
	qp := &quadstore.Pattern{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object, Graph: graphOrDefault(q.Graph)}
	qi, err := txn.Query(qp)
	if err != nil {
		return false, fmt.Errorf("store: contains: %w", err)
	}
	defer qi.Close()
	return qi.Next(), nil
}

// Len returns the total number of quads across every graph (including
// the default graph).
func (s *Store) Len() (int64, error) {
	var n int64
	err := s.QuadsForPattern(nil, nil, nil, nil, func(*rdf.Quad) error {
		n++
		return nil
	})
	return n, err
}

// Iter calls fn once per quad in the store; fn returning an error stops
// iteration and that error propagates.
func (s *Store) Iter(fn func(*rdf.Quad) error) error {
	return s.QuadsForPattern(nil, nil, nil, nil, fn)
}

// QuadsForPattern calls fn once per quad matching the given pattern;
// a nil position matches anything.
func (s *Store) QuadsForPattern(subj, pred, obj, graph rdf.Term, fn func(*rdf.Quad) error) error {
	txn := s.quads.Begin(false)
	defer txn.Rollback()
	qp := &quadstore.Pattern{
		Subject:   patternTerm(subj, "s"),
		Predicate: patternTerm(pred, "p"),
		Object:    patternTerm(obj, "o"),
		Graph:     patternGraphTerm(graph),
	}
	qi, err := txn.Query(qp)
	if err != nil {
		return fmt.Errorf("store: quads for pattern: %w", err)
	}
	defer qi.Close()
	for qi.Next() {
		q, err := qi.Quad()
		if err != nil {
			return fmt.Errorf("store: quads for pattern: %w", err)
		}
		if err := fn(q); err != nil {
			return err
		}
	}
	return nil
}

func patternTerm(t rdf.Term, varName string) quadstore.Term {
	if t == nil {
		return quadstore.NewVariable(varName)
	}
	return t
}

func patternGraphTerm(g rdf.Term) quadstore.Term {
	if g == nil {
		return quadstore.NewVariable("g")
	}
	if _, ok := g.(*rdf.DefaultGraph); ok {
		return nil
	}
	return g
}

func graphOrDefault(g rdf.Term) rdf.Term {
	if g == nil {
		return rdf.NewDefaultGraph()
	}
	return g
}

// --- graph-level operations ----------------------------------------------

// NamedGraphs returns every registered named graph.
func (s *Store) NamedGraphs() ([]*rdf.NamedNode, error) {
	txn := s.quads.Begin(false)
	defer txn.Rollback()
	return txn.NamedGraphs()
}

// ContainsNamedGraph reports whether g is registered.
func (s *Store) ContainsNamedGraph(g *rdf.NamedNode) (bool, error) {
	txn := s.quads.Begin(false)
	defer txn.Rollback()
	return txn.ContainsNamedGraph(g)
}

// InsertNamedGraph registers g without inserting any quad.
func (s *Store) InsertNamedGraph(g *rdf.NamedNode) error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	if err := txn.InsertNamedGraph(g); err != nil {
		return fmt.Errorf("store: insert named graph: %w", err)
	}
	return txn.Commit()
}

// ClearGraph removes every quad in g, leaving its registry entry intact.
func (s *Store) ClearGraph(g rdf.Term) error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	if err := txn.ClearGraph(g); err != nil {
		return fmt.Errorf("store: clear graph: %w", err)
	}
	return txn.Commit()
}

// RemoveNamedGraph drops g's registry entry (its quads, if any, are left
// behind; call ClearGraph first for DROP's "clear and remove" semantics).
func (s *Store) RemoveNamedGraph(g *rdf.NamedNode) error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	if err := txn.RemoveNamedGraph(g); err != nil {
		return fmt.Errorf("store: remove named graph: %w", err)
	}
	return txn.Commit()
}

// Clear removes every quad in every graph and empties the graph registry.
func (s *Store) Clear() error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	if err := txn.ClearAll(); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return txn.Commit()
}

// --- query/update ----------------------------------------------------

// DatasetSpec restricts a query's default/named graphs, per spec §4.7
// ("if the dataset spec enumerates named graphs, pre-restrict to that
// set") — an empty DatasetSpec means "use the whole store" (the default
// graph is the store's actual default graph; GRAPH ?g ranges over every
// registered name).
type DatasetSpec struct {
	Default []*rdf.NamedNode
	Named   []*rdf.NamedNode
}

// QueryResultKind discriminates QueryResults' three shapes (spec §6).
type QueryResultKind int

const (
	ResultSolutions QueryResultKind = iota
	ResultBoolean
	ResultTriples
)

// QueryResults is the abstract result of Query: exactly one of its kind's
// fields is meaningful (spec §6 "QueryResults is one of Solutions{...},
// Boolean(b), Triples{...}").
type QueryResults struct {
	Kind      QueryResultKind
	Variables []string        // ResultSolutions only
	Solutions algebra.Solutions // ResultSolutions only
	Boolean   bool             // ResultBoolean only
	Triples   []*rdf.Triple    // ResultTriples only (CONSTRUCT/DESCRIBE)
}

// Close releases any open iterator the results hold.
func (r *QueryResults) Close() error {
	if r.Solutions != nil {
		return r.Solutions.Close()
	}
	return nil
}

// QueryForm distinguishes SELECT/ASK/CONSTRUCT-DESCRIBE at the Query
// call site, since an algebra.Pattern alone doesn't say which SPARQL
// query form produced it.
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormAsk
	FormConstructOrDescribe
)

// Query evaluates p (spec §6 "query(algebra, dataset_spec, custom_fns,
// substitutions, base_iri)"). substitutions pre-binds outer variables
// before evaluation (SPARQL's "pre-bound variables" extension point);
// base_iri has no bearing on an already-parsed algebra tree, so it is
// not a parameter here (spec.md §1 places IRI-relativization inside the
// out-of-scope textual parser). variables lists the SELECT projection
// (ignored for ASK/CONSTRUCT/DESCRIBE); template is the CONSTRUCT/
// DESCRIBE quad template, nil for SELECT/ASK.
func (s *Store) Query(
	ctx context.Context,
	form QueryForm,
	p algebra.Pattern,
	variables []string,
	template []update.QuadTemplate,
	dataset DatasetSpec,
	endpoints federation.Resolver,
	substitutions map[string]rdf.Term,
) (*QueryResults, error) {
	txn := s.quads.Begin(false)
	root := applyDatasetDefault(p, dataset.Default)
	ev := algebra.NewEvaluator(ctx, txn, s.funcs, endpoints)
	if len(dataset.Named) > 0 {
		ev.RestrictNamedGraphs(dataset.Named)
	}

	outer := bindingFromSubstitutions(substitutions)
	sol, err := ev.EvalWithOuter(root, outer)
	if err != nil {
		txn.Rollback()
		return nil, fmt.Errorf("store: query: %w", err)
	}

	switch form {
	case FormAsk:
		found := sol.Next()
		if err := sol.Close(); err != nil {
			txn.Rollback()
			return nil, fmt.Errorf("store: query: %w", err)
		}
		txn.Rollback()
		return &QueryResults{Kind: ResultBoolean, Boolean: found}, nil
	case FormConstructOrDescribe:
		triples, err := materializeTemplate(sol, template)
		txn.Rollback()
		if err != nil {
			return nil, fmt.Errorf("store: query: %w", err)
		}
		return &QueryResults{Kind: ResultTriples, Triples: triples}, nil
	default:
		// Solutions must outlive this call, so the transaction is handed
		// off to QueryResults.Close rather than rolled back here.
		return &QueryResults{Kind: ResultSolutions, Variables: variables, Solutions: &closingSolutions{Solutions: sol, txn: txn}}, nil
	}
}

// closingSolutions rolls back the owning read transaction when the
// caller closes the iterator, so Query's read view stays open for
// exactly as long as the caller is pulling solutions.
type closingSolutions struct {
	algebra.Solutions
	txn *quadstore.Txn
}

func (c *closingSolutions) Close() error {
	err := c.Solutions.Close()
	c.txn.Rollback()
	return err
}

func materializeTemplate(sol algebra.Solutions, template []update.QuadTemplate) ([]*rdf.Triple, error) {
	defer sol.Close()
	var out []*rdf.Triple
	skolem := make(map[string]rdf.Term)
	for sol.Next() {
		row := sol.Binding()
		for k := range skolem {
			delete(skolem, k)
		}
		for _, tmpl := range template {
			q := update.QuadTemplate{Subject: tmpl.Subject, Predicate: tmpl.Predicate, Object: tmpl.Object}
			t, ok := instantiateTriple(q, row, skolem)
			if ok {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func bindingFromSubstitutions(subs map[string]rdf.Term) *algebra.Binding {
	if len(subs) == 0 {
		return nil
	}
	b := algebra.NewBinding()
	for k, v := range subs {
		b.Vars[k] = v
	}
	return b
}

// applyDatasetDefault rewrites p to range over the union of every graph
// in defaultGraphs instead of the store's actual default graph, the
// FROM-clause dataset restriction (spec §6 "dataset_spec"). An empty
// defaultGraphs leaves p untouched.
func applyDatasetDefault(p algebra.Pattern, defaultGraphs []*rdf.NamedNode) algebra.Pattern {
	if len(defaultGraphs) == 0 {
		return p
	}
	root := algebra.Pattern(&algebra.Graph{Input: p, Name: defaultGraphs[0]})
	for _, g := range defaultGraphs[1:] {
		root = &algebra.Union{Left: root, Right: &algebra.Graph{Input: p, Name: g}}
	}
	return root
}

// Update applies every operation in ops atomically (spec §6
// "update(update_algebra, custom_fns, base_iri)").
func (s *Store) Update(ctx context.Context, ops []update.Operation, endpoints federation.Resolver) error {
	txn := s.quads.Begin(true)
	defer txn.Rollback()
	exec := &update.Executor{Funcs: s.funcs, Endpoints: endpoints}
	if err := exec.Execute(ctx, ops, txn); err != nil {
		return fmt.Errorf("store: update: %w", err)
	}
	return txn.Commit()
}

// --- bulk load, dump/load, admin ----------------------------------------

// BulkLoader returns a loader for ingesting a large N-Quads dump without
// per-quad transaction overhead (spec §6 "bulk_loader().load(quads)").
func (s *Store) BulkLoader() *quadstore.BulkLoader {
	return quadstore.NewBulkLoader(s.quads)
}

// Dump writes every quad in the store to w in N-Quads form, the
// supplemented surface-syntax path spec.md's testable scenario S6 needs
// (SPEC_FULL.md Non-goals: only N-Quads, not a general multi-format
// surface).
func (s *Store) Dump(w io.Writer) error {
	var quads []*rdf.Quad
	if err := s.Iter(func(q *rdf.Quad) error {
		quads = append(quads, q)
		return nil
	}); err != nil {
		return fmt.Errorf("store: dump: %w", err)
	}
	return rdf.WriteNQuads(w, quads)
}

// Load reads N-Quads from r and bulk-inserts them.
func (s *Store) Load(ctx context.Context, r io.Reader) error {
	parser, err := rdf.NewParser("application/n-quads")
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	quads, err := parser.Parse(r)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	loader := s.BulkLoader()
	for _, q := range quads {
		if err := loader.Add(ctx, q); err != nil {
			return fmt.Errorf("store: load: %w", err)
		}
	}
	return loader.Flush(ctx)
}

// Flush forces pending writes to durable storage.
func (s *Store) Flush() error {
	if err := s.kv.Flush(); err != nil {
		return fmt.Errorf("store: flush: %w", err)
	}
	return nil
}

// Optimize compacts the store, reclaiming space from deleted or
// overwritten entries. kv.Store.Compact's cf argument is advisory (the
// underlying engine compacts its whole LSM tree/value log together), so
// one call covers every column family.
func (s *Store) Optimize() error {
	if err := s.kv.Compact(kv.CFSPOG); err != nil {
		return fmt.Errorf("store: optimize: %w", err)
	}
	return nil
}

// Backup writes a self-contained checkpoint to w (spec §6 "backup(dir)"
// generalized to an io.Writer, since badger's own backup primitive
// streams rather than writes a directory directly — a caller wanting a
// directory copy writes w to a file and opens a fresh store against it).
func (s *Store) Backup(w io.Writer) error {
	if err := s.kv.Checkpoint(w); err != nil {
		return fmt.Errorf("store: backup: %w", err)
	}
	return nil
}

func instantiateTriple(tmpl update.QuadTemplate, row *algebra.Binding, skolem map[string]rdf.Term) (*rdf.Triple, bool) {
	s, ok := resolveConstructTerm(tmpl.Subject, row, skolem)
	if !ok {
		return nil, false
	}
	p, ok := resolveConstructTerm(tmpl.Predicate, row, skolem)
	if !ok {
		return nil, false
	}
	o, ok := resolveConstructTerm(tmpl.Object, row, skolem)
	if !ok {
		return nil, false
	}
	return &rdf.Triple{Subject: s, Predicate: p, Object: o}, true
}

func resolveConstructTerm(t algebra.Term, row *algebra.Binding, skolem map[string]rdf.Term) (rdf.Term, bool) {
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
