package algebra

import (
	"fmt"
	"strings"

	"github.com/rdfstore/rdfstore/internal/valuespace"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// literalToValue converts an rdf.Literal's lexical form into the parsed
// valuespace.Value internal/expr's built-ins operate on, following the
// same datatype-IRI dispatch internal/encoding/encoder.go uses to decide
// which literals get a native value-space representation. Literals with
// an unrecognized datatype fall back to KindOther, carrying only the
// lexical form and datatype IRI forward (undefined for arithmetic/order,
// but still usable by identity-based functions like STR and datatype()).
func literalToValue(lit *rdf.Literal) valuespace.Value {
	if lit.Language != "" {
		return valuespace.Value{Kind: valuespace.KindLangString, Str: lit.Value, Lang: lit.Language}
	}
	if lit.Datatype == nil {
		return valuespace.Value{Kind: valuespace.KindString, Str: lit.Value}
	}
	dt := lit.Datatype.IRI
	switch dt {
	case rdf.XSDString.IRI, "":
		return valuespace.Value{Kind: valuespace.KindString, Str: lit.Value, Datatype: dt}
	case rdf.XSDBoolean.IRI:
		if v, err := valuespace.ParseBoolean(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindBoolean, Bool: v, Datatype: dt}
		}
	case rdf.XSDInteger.IRI:
		if v, err := valuespace.ParseInteger(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindInteger, Int: v, Datatype: dt}
		}
	case rdf.XSDDecimal.IRI:
		if v, err := valuespace.ParseDecimal(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindDecimal, Dec: v, Datatype: dt}
		}
	case rdf.XSDDouble.IRI:
		if v, err := valuespace.ParseDouble(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindDouble, F64: v, Datatype: dt}
		}
	case rdf.XSDFloat.IRI:
		if v, err := valuespace.ParseDouble(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindFloat, F32: float32(v), Datatype: dt}
		}
	case rdf.XSDDateTime.IRI:
		if v, err := valuespace.ParseDateTime(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindDateTime, Temporal: v, Datatype: dt}
		}
	case rdf.XSDDate.IRI:
		if v, err := valuespace.ParseDate(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindDate, Temporal: v, Datatype: dt}
		}
	case rdf.XSDTime.IRI:
		if v, err := valuespace.ParseTime(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindTime, Temporal: v, Datatype: dt}
		}
	case rdf.XSDDuration.IRI:
		if v, err := valuespace.ParseDuration(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindDuration, Dur: v, Datatype: dt}
		}
	case rdf.XSDYearMonthDuration.IRI:
		if v, err := valuespace.ParseDuration(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindYearMonthDuration, Dur: v, Datatype: dt}
		}
	case rdf.XSDDayTimeDuration.IRI:
		if v, err := valuespace.ParseDuration(lit.Value); err == nil {
			return valuespace.Value{Kind: valuespace.KindDayTimeDuration, Dur: v, Datatype: dt}
		}
	}
	return valuespace.Value{Kind: valuespace.KindOther, Str: lit.Value, Datatype: dt}
}

// valueToTerm converts an evaluated Value back into an rdf.Term, the
// inverse of literalToValue, for Extend/BIND results and function
// return values.
func valueToTerm(v valuespace.Value) rdf.Term {
	switch v.Kind {
	case valuespace.KindString:
		return rdf.NewLiteral(v.Str)
	case valuespace.KindLangString:
		return rdf.NewLiteralWithLanguage(v.Str, v.Lang)
	case valuespace.KindBoolean:
		return rdf.NewBooleanLiteral(v.Bool)
	case valuespace.KindInteger:
		return rdf.NewIntegerLiteral(v.Int)
	case valuespace.KindDecimal:
		return rdf.NewLiteralWithDatatype(v.Dec.String(), rdf.XSDDecimal)
	case valuespace.KindDouble:
		return rdf.NewDoubleLiteral(v.F64)
	case valuespace.KindFloat:
		return rdf.NewLiteralWithDatatype(formatFloat32(v.F32), rdf.XSDFloat)
	case valuespace.KindDateTime:
		return rdf.NewLiteralWithDatatype(formatTemporal(v), rdf.XSDDateTime)
	case valuespace.KindDate:
		return rdf.NewLiteralWithDatatype(formatTemporal(v), rdf.XSDDate)
	case valuespace.KindTime:
		return rdf.NewLiteralWithDatatype(formatTemporal(v), rdf.XSDTime)
	case valuespace.KindDuration:
		return rdf.NewLiteralWithDatatype(v.Dur.String(), rdf.XSDDuration)
	case valuespace.KindYearMonthDuration:
		return rdf.NewLiteralWithDatatype(v.Dur.String(), rdf.XSDYearMonthDuration)
	case valuespace.KindDayTimeDuration:
		return rdf.NewLiteralWithDatatype(v.Dur.String(), rdf.XSDDayTimeDuration)
	default:
		dt := rdf.XSDString
		if v.Datatype != "" {
			dt = rdf.NewNamedNode(v.Datatype)
		}
		return rdf.NewLiteralWithDatatype(v.Str, dt)
	}
}

func formatFloat32(f float32) string {
	return formatFloatLike(float64(f))
}

func formatFloatLike(f float64) string {
	// Reuses rdf.NewDoubleLiteral's canonical-form decision rather than
	// duplicating the whole-number-vs-scientific branch inline.
	return rdf.NewDoubleLiteral(f).Value
}

func formatTemporal(v valuespace.Value) string {
	t := v.Temporal
	var b strings.Builder
	switch v.Kind {
	case valuespace.KindDateTime:
		fmt.Fprintf(&b, "%04d-%02d-%02dT%02d:%02d:%02d", t.Year, t.Month, t.Day, t.Hour, t.Min, t.Sec)
		if t.Nanos != 0 {
			fmt.Fprintf(&b, ".%09d", t.Nanos)
		}
	case valuespace.KindDate:
		fmt.Fprintf(&b, "%04d-%02d-%02d", t.Year, t.Month, t.Day)
	case valuespace.KindTime:
		fmt.Fprintf(&b, "%02d:%02d:%02d", t.Hour, t.Min, t.Sec)
		if t.Nanos != 0 {
			fmt.Fprintf(&b, ".%09d", t.Nanos)
		}
	}
	if t.HasTZ {
		if t.TZOffsetMin == 0 {
			b.WriteByte('Z')
		} else {
			sign := byte('+')
			off := t.TZOffsetMin
			if off < 0 {
				sign = '-'
				off = -off
			}
			fmt.Fprintf(&b, "%c%02d:%02d", sign, off/60, off%60)
		}
	}
	return b.String()
}

// isLiteral reports whether t is an *rdf.Literal, the only term kind
// literalToValue accepts.
func isLiteral(t rdf.Term) (*rdf.Literal, bool) {
	lit, ok := t.(*rdf.Literal)
	return lit, ok
}
