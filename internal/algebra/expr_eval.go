package algebra

import (
	"fmt"

	"github.com/rdfstore/rdfstore/internal/valuespace"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// termFuncs are built-ins that inspect term *kind* rather than operating
// in the value space (spec §4.5/§4.6): these accept any term, including
// IRIs and blank nodes that internal/expr's Registry (literal-only) would
// reject, so they're dispatched here before falling through to the
// Registry for the value-space built-ins (arithmetic, string functions,
// casts, REGEX/REPLACE, ...).
var termFuncs = map[string]bool{
	"BOUND": true, "STR": true, "LANG": true, "DATATYPE": true,
	"isIRI": true, "isURI": true, "isBLANK": true, "isLITERAL": true,
	"isNUMERIC": true, "sameTerm": true, "IF": true, "COALESCE": true,
}

// evalExpr evaluates expr against row, returning "undefined" as a
// non-nil error (spec §4.5/§4.6: FILTER drops the row, BIND leaves the
// target variable unbound).
func evalExpr(e *Evaluator, expr Expr, row *Binding) (rdf.Term, error) {
	switch x := expr.(type) {
	case *VarExpr:
		t, ok := row.Lookup(x.Name)
		if !ok {
			return nil, fmt.Errorf("algebra: unbound variable ?%s", x.Name)
		}
		return t, nil
	case *TermExpr:
		return x.Term, nil
	case *AndExpr:
		return evalAndOr(e, x.Left, x.Right, row, true)
	case *OrExpr:
		return evalAndOr(e, x.Left, x.Right, row, false)
	case *ExistsExpr:
		return evalExists(e, x, row)
	case *InExpr:
		return evalIn(e, x, row)
	case *CallExpr:
		return evalCall(e, x, row)
	}
	return nil, fmt.Errorf("algebra: unsupported expression type %T", expr)
}

// evalEBV evaluates expr and coerces the result to an effective boolean
// value, per spec §4.5; false on any error (Filter "drop row on
// false/undefined").
func evalEBV(e *Evaluator, expr Expr, row *Binding) (bool, error) {
	t, err := evalExpr(e, expr, row)
	if err != nil {
		return false, err
	}
	lit, ok := isLiteral(t)
	if !ok {
		return false, fmt.Errorf("algebra: effective boolean value undefined for %T", t)
	}
	b, ok := valuespace.EffectiveBoolean(literalToValue(lit))
	if !ok {
		return false, fmt.Errorf("algebra: effective boolean value undefined")
	}
	return b, nil
}

func evalAndOr(e *Evaluator, left, right Expr, row *Binding, isAnd bool) (rdf.Term, error) {
	lv, lerr := evalEBV(e, left, row)
	if isAnd && lerr == nil && !lv {
		return rdf.NewBooleanLiteral(false), nil
	}
	if !isAnd && lerr == nil && lv {
		return rdf.NewBooleanLiteral(true), nil
	}
	rv, rerr := evalEBV(e, right, row)
	if isAnd && rerr == nil && !rv {
		return rdf.NewBooleanLiteral(false), nil
	}
	if !isAnd && rerr == nil && rv {
		return rdf.NewBooleanLiteral(true), nil
	}
	if lerr != nil || rerr != nil {
		return nil, fmt.Errorf("algebra: undefined operand")
	}
	if isAnd {
		return rdf.NewBooleanLiteral(lv && rv), nil
	}
	return rdf.NewBooleanLiteral(lv || rv), nil
}

func evalExists(e *Evaluator, x *ExistsExpr, row *Binding) (rdf.Term, error) {
	sol, err := e.eval(x.Pattern, nil, row)
	if err != nil {
		return nil, err
	}
	found := sol.Next()
	_ = sol.Close()
	if x.Not {
		found = !found
	}
	return rdf.NewBooleanLiteral(found), nil
}

func evalIn(e *Evaluator, x *InExpr, row *Binding) (rdf.Term, error) {
	left, err := evalExpr(e, x.Expr, row)
	if err != nil {
		return nil, err
	}
	found := false
	anyUndefined := false
	for _, ve := range x.Values {
		right, err := evalExpr(e, ve, row)
		if err != nil {
			anyUndefined = true
			continue
		}
		eq, ok := sparqlEquals(left, right)
		if !ok {
			anyUndefined = true
			continue
		}
		if eq {
			found = true
			break
		}
	}
	if !found && anyUndefined {
		return nil, fmt.Errorf("algebra: IN undefined")
	}
	if x.Not {
		return rdf.NewBooleanLiteral(!found), nil
	}
	return rdf.NewBooleanLiteral(found), nil
}

// sparqlEquals implements "=" over arbitrary terms: value-space
// RDFterm-equal for two literals, structural identity otherwise.
func sparqlEquals(a, b rdf.Term) (eq bool, ok bool) {
	la, aIsLit := isLiteral(a)
	lb, bIsLit := isLiteral(b)
	if aIsLit && bIsLit {
		return valuespace.Equal(literalToValue(la), literalToValue(lb))
	}
	if aIsLit != bIsLit {
		return false, true
	}
	return a.Equals(b), true
}

func evalCall(e *Evaluator, x *CallExpr, row *Binding) (rdf.Term, error) {
	if termFuncs[x.Name] {
		return evalTermFunc(e, x, row)
	}
	args := make([]valuespace.Value, len(x.Args))
	for i, a := range x.Args {
		t, err := evalExpr(e, a, row)
		if err != nil {
			return nil, err
		}
		lit, ok := isLiteral(t)
		if !ok {
			return nil, fmt.Errorf("algebra: %s expects a literal argument, got %T", x.Name, t)
		}
		args[i] = literalToValue(lit)
	}
	v, ok, err := e.funcs.Call(x.Name, args...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("algebra: %s undefined for given arguments", x.Name)
	}
	return valueToTerm(v), nil
}

func evalTermFunc(e *Evaluator, x *CallExpr, row *Binding) (rdf.Term, error) {
	switch x.Name {
	case "BOUND":
		v, ok := x.Args[0].(*VarExpr)
		if !ok {
			return nil, fmt.Errorf("algebra: BOUND expects a variable argument")
		}
		_, bound := row.Lookup(v.Name)
		return rdf.NewBooleanLiteral(bound), nil
	case "IF":
		cond, err := evalEBV(e, x.Args[0], row)
		if err != nil {
			return nil, err
		}
		if cond {
			return evalExpr(e, x.Args[1], row)
		}
		return evalExpr(e, x.Args[2], row)
	case "COALESCE":
		for _, a := range x.Args {
			if t, err := evalExpr(e, a, row); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("algebra: COALESCE has no defined argument")
	}

	t, err := evalExpr(e, x.Args[0], row)
	if err != nil {
		return nil, err
	}
	switch x.Name {
	case "STR":
		if lit, ok := isLiteral(t); ok {
			return rdf.NewLiteral(lit.Value), nil
		}
		if nn, ok := t.(*rdf.NamedNode); ok {
			return rdf.NewLiteral(nn.IRI), nil
		}
		return nil, fmt.Errorf("algebra: STR undefined for %T", t)
	case "LANG":
		if lit, ok := isLiteral(t); ok {
			return rdf.NewLiteral(lit.Language), nil
		}
		return rdf.NewLiteral(""), nil
	case "DATATYPE":
		lit, ok := isLiteral(t)
		if !ok {
			return nil, fmt.Errorf("algebra: DATATYPE undefined for %T", t)
		}
		if lit.Language != "" {
			return rdf.RDFLangString, nil
		}
		if lit.Datatype != nil {
			return lit.Datatype, nil
		}
		return rdf.XSDString, nil
	case "isIRI", "isURI":
		_, ok := t.(*rdf.NamedNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "isBLANK":
		_, ok := t.(*rdf.BlankNode)
		return rdf.NewBooleanLiteral(ok), nil
	case "isLITERAL":
		_, ok := isLiteral(t)
		return rdf.NewBooleanLiteral(ok), nil
	case "isNUMERIC":
		lit, ok := isLiteral(t)
		if !ok {
			return rdf.NewBooleanLiteral(false), nil
		}
		switch literalToValue(lit).Kind {
		case valuespace.KindInteger, valuespace.KindDecimal, valuespace.KindFloat, valuespace.KindDouble:
			return rdf.NewBooleanLiteral(true), nil
		}
		return rdf.NewBooleanLiteral(false), nil
	case "sameTerm":
		other, err := evalExpr(e, x.Args[1], row)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(termEqual(t, other)), nil
	}
	return nil, fmt.Errorf("algebra: unknown term function %q", x.Name)
}
