package expr

import (
	"strings"

	"github.com/rdfstore/rdfstore/internal/valuespace"
)

// Aggregator is an incremental accumulator for one SPARQL aggregate
// (spec §4.6: "each defines init, update(term), merge(partial),
// finish() -> term|undefined"). Update is called once per bound value in
// group order; an aggregate over an unbound expression is simply never
// called for that row. Merge combines two partial accumulators of the
// same kind, for callers that compute per-shard partials before
// combining groups (internal/algebra's Evaluator currently drives one
// shard per group and never calls Merge, but the interface carries it so
// a future parallel GROUP BY evaluator doesn't need a new accumulator
// shape).
type Aggregator interface {
	Update(v valuespace.Value)
	Merge(other Aggregator)
	Finish() (valuespace.Value, bool)
}

// NewAggregator constructs the accumulator for name ("SUM", "AVG", "MIN",
// "MAX", "COUNT", "GROUP_CONCAT", "SAMPLE"), case-insensitively. distinct
// reports whether the caller will only ever call Update with
// already-deduplicated values (the distinct filtering itself lives at
// the algebra layer, which has the binding set to hash); separator is
// GROUP_CONCAT's SEPARATOR, defaulting to a single space per spec.
func NewAggregator(name string, distinct bool, separator string) Aggregator {
	switch strings.ToUpper(name) {
	case "SUM":
		return &sumAgg{}
	case "AVG":
		return &avgAgg{}
	case "MIN":
		return &minMaxAgg{max: false}
	case "MAX":
		return &minMaxAgg{max: true}
	case "COUNT":
		return &countAgg{}
	case "GROUP_CONCAT":
		if separator == "" {
			separator = " "
		}
		return &groupConcatAgg{sep: separator}
	case "SAMPLE":
		return &sampleAgg{}
	}
	return &countAgg{}
}

// sumAgg starts at integer 0 and loses typing information through
// promotion on each add, per spec §4.6.
type sumAgg struct {
	acc   valuespace.Value
	valid bool
}

func (a *sumAgg) Update(v valuespace.Value) {
	if !a.valid {
		a.acc = integer(0)
		a.valid = true
	}
	r, ok := valuespace.Arithmetic(valuespace.OpAdd, a.acc, v)
	if ok {
		a.acc = r
	}
}

func (a *sumAgg) Merge(other Aggregator) {
	o, ok := other.(*sumAgg)
	if !ok || !o.valid {
		return
	}
	a.Update(o.acc)
}

func (a *sumAgg) Finish() (valuespace.Value, bool) {
	if !a.valid {
		return integer(0), true
	}
	return a.acc, true
}

// avgAgg carries a numeric sum plus an integer count and divides at
// finish, per spec §4.6.
type avgAgg struct {
	sum   sumAgg
	count int64
}

func (a *avgAgg) Update(v valuespace.Value) {
	a.sum.Update(v)
	a.count++
}

func (a *avgAgg) Merge(other Aggregator) {
	o, ok := other.(*avgAgg)
	if !ok {
		return
	}
	a.sum.Merge(&o.sum)
	a.count += o.count
}

func (a *avgAgg) Finish() (valuespace.Value, bool) {
	if a.count == 0 {
		return integer(0), true
	}
	sum, _ := a.sum.Finish()
	return valuespace.Arithmetic(valuespace.OpDiv, sum, integer(a.count))
}

// minMaxAgg uses the total ordering (spec §4.6), so it is always
// decidable even across mixed, otherwise-incomparable term kinds.
type minMaxAgg struct {
	max   bool
	best  valuespace.Value
	valid bool
}

func (a *minMaxAgg) Update(v valuespace.Value) {
	if !a.valid {
		a.best, a.valid = v, true
		return
	}
	c := valuespace.TotalOrder(totalOrderKey(a.best), totalOrderKey(v))
	if (a.max && c < 0) || (!a.max && c > 0) {
		a.best = v
	}
}

func (a *minMaxAgg) Merge(other Aggregator) {
	o, ok := other.(*minMaxAgg)
	if !ok || !o.valid {
		return
	}
	a.Update(o.best)
}

func (a *minMaxAgg) Finish() (valuespace.Value, bool) {
	return a.best, a.valid
}

// totalOrderKey derives the TotalOrder sort key for a literal value.
// SPARQL's MIN/MAX over plain literal aggregation never needs the
// blank-node/named-node/triple families, so Family is always
// FamilyLiteral here; the lexical form backs ties between values
// TotalOrder's numeric/datatype comparison can't otherwise separate.
func totalOrderKey(v valuespace.Value) valuespace.TotalOrderKey {
	return valuespace.TotalOrderKey{
		Family:   valuespace.FamilyLiteral,
		Lexical:  lexicalForm(v),
		Value:    v,
		Datatype: v.Datatype,
	}
}

// countAgg ignores undefined (spec §4.6): Update is only ever called
// with a bound value, so every call increments; COUNT(*) is modeled by
// the caller invoking Update with a placeholder value once per row
// instead of skipping unbound expressions.
type countAgg struct {
	n int64
}

func (a *countAgg) Update(valuespace.Value)   { a.n++ }
func (a *countAgg) Merge(other Aggregator) {
	if o, ok := other.(*countAgg); ok {
		a.n += o.n
	}
}
func (a *countAgg) Finish() (valuespace.Value, bool) { return integer(a.n), true }

// groupConcatAgg accumulates a delimited string (spec §4.6).
type groupConcatAgg struct {
	sep    string
	parts  []string
	any    bool
}

func (a *groupConcatAgg) Update(v valuespace.Value) {
	a.parts = append(a.parts, lexicalForm(v))
	a.any = true
}

func (a *groupConcatAgg) Merge(other Aggregator) {
	if o, ok := other.(*groupConcatAgg); ok {
		a.parts = append(a.parts, o.parts...)
		a.any = a.any || o.any
	}
}

func (a *groupConcatAgg) Finish() (valuespace.Value, bool) {
	return str(strings.Join(a.parts, a.sep)), true
}

// sampleAgg returns an arbitrary bound value from the group, the
// cheapest aggregate the spec defines: whichever value arrives first.
type sampleAgg struct {
	v     valuespace.Value
	valid bool
}

func (a *sampleAgg) Update(v valuespace.Value) {
	if !a.valid {
		a.v, a.valid = v, true
	}
}

func (a *sampleAgg) Merge(other Aggregator) {
	if o, ok := other.(*sampleAgg); ok && o.valid {
		a.Update(o.v)
	}
}

func (a *sampleAgg) Finish() (valuespace.Value, bool) { return a.v, a.valid }
