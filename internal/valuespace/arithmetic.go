package valuespace

import (
	"math"
	"time"
)

// Op identifies an arithmetic operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
)

// Arithmetic implements spec §4.5's numeric cross-product plus the
// date/time +/- duration table. ok is false when the result is undefined
// (overflow, division by zero on integer/decimal, or an operand
// combination the table doesn't define).
func Arithmetic(op Op, a, b Value) (Value, bool) {
	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		return numericArithmetic(op, a, b)
	}
	if isTemporalKind(a.Kind) && isDuration(b.Kind) && (op == OpAdd || op == OpSub) {
		return temporalPlusDuration(op, a, b)
	}
	if a.Kind == KindDateTime && b.Kind == KindDateTime && op == OpSub {
		nanos := a.Temporal.instant().Sub(b.Temporal.instant()).Nanoseconds()
		return Value{Kind: KindDayTimeDuration, Dur: Duration{Nanos: nanos}, Datatype: xsdDayTimeDuration}, true
	}
	return Value{}, false
}

func isTemporalKind(k Kind) bool {
	switch k {
	case KindDateTime, KindDate, KindTime:
		return true
	}
	return false
}

const (
	xsdInteger          = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDecimal          = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdDouble           = "http://www.w3.org/2001/XMLSchema#double"
	xsdFloat            = "http://www.w3.org/2001/XMLSchema#float"
	xsdDayTimeDuration  = "http://www.w3.org/2001/XMLSchema#dayTimeDuration"
	xsdYearMonthDuration = "http://www.w3.org/2001/XMLSchema#yearMonthDuration"
	xsdDuration         = "http://www.w3.org/2001/XMLSchema#duration"
)

func numericArithmetic(op Op, a, b Value) (Value, bool) {
	// Float/double: IEEE semantics, never undefined (inf/nan propagate).
	if a.Kind == KindDouble || b.Kind == KindDouble {
		return Value{Kind: KindDouble, F64: applyFloat(op, asDouble(a), asDouble(b)), Datatype: xsdDouble}, true
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		r := float32(applyFloat(op, asDouble(a), asDouble(b)))
		return Value{Kind: KindFloat, F32: r, Datatype: xsdFloat}, true
	}

	// Integer division always yields decimal (spec §4.5).
	if op == OpDiv {
		if a.Kind == KindInteger && b.Kind == KindInteger {
			if b.Int == 0 {
				return Value{}, false
			}
			return Value{Kind: KindDecimal, Dec: Decimal{Unscaled: a.Int, Scale: 0}.divBy(b.Int), Datatype: xsdDecimal}, true
		}
		ad, bd := asDecimal(a), asDecimal(b)
		if bd.Unscaled == 0 {
			return Value{}, false
		}
		return Value{Kind: KindDecimal, Dec: decimalDivide(ad, bd), Datatype: xsdDecimal}, true
	}

	if a.Kind == KindInteger && b.Kind == KindInteger {
		r, ok := checkedIntOp(op, a.Int, b.Int)
		if !ok {
			return Value{}, false
		}
		return Value{Kind: KindInteger, Int: r, Datatype: xsdInteger}, true
	}

	// integer <-> decimal
	ad, bd := asDecimal(a), asDecimal(b)
	av, bv, scale, ok := rescale(ad, bd)
	if !ok {
		return Value{}, false
	}
	var r int64
	switch op {
	case OpAdd:
		r = av + bv
		if (r-bv != av) || overflowedAdd(av, bv, r) {
			return Value{}, false
		}
	case OpSub:
		r = av - bv
		if overflowedSub(av, bv, r) {
			return Value{}, false
		}
	case OpMul:
		r, ok = checkedMul(av, bv)
		if !ok {
			return Value{}, false
		}
		scale *= 2
		if scale > 255 {
			scale = 255
		}
	}
	return Value{Kind: KindDecimal, Dec: Decimal{Unscaled: r, Scale: scale}, Datatype: xsdDecimal}, true
}

func applyFloat(op Op, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	}
	return math.NaN()
}

func checkedIntOp(op Op, a, b int64) (int64, bool) {
	switch op {
	case OpAdd:
		r := a + b
		return r, !overflowedAdd(a, b, r)
	case OpSub:
		r := a - b
		return r, !overflowedSub(a, b, r)
	case OpMul:
		return checkedMul(a, b)
	}
	return 0, false
}

func overflowedAdd(a, b, r int64) bool {
	return ((a ^ r) & (b ^ r)) < 0
}

func overflowedSub(a, b, r int64) bool {
	return ((a ^ b) & (a ^ r)) < 0
}

func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func (d Decimal) divBy(n int64) Decimal {
	return decimalDivide(d, Decimal{Unscaled: n, Scale: 0})
}

// decimalDivide divides to a fixed 18-digit fractional scale, matching
// "Integer division always yields decimal" (spec §4.5). Division by zero
// is checked by the caller.
func decimalDivide(a, b Decimal) Decimal {
	const targetScale = 18
	af := a.Float64()
	bf := b.Float64()
	f := af / bf
	scaled := f
	for i := 0; i < targetScale; i++ {
		scaled *= 10
	}
	return Decimal{Unscaled: int64(math.Round(scaled)), Scale: targetScale}
}

func temporalPlusDuration(op Op, a, b Value) (Value, bool) {
	months, nanos := durationOf(b)
	if op == OpSub {
		months, nanos = -months, -nanos
	}
	t := a.Temporal
	t = addMonths(t, months)
	t = addNanos(t, nanos)
	return Value{Kind: a.Kind, Temporal: t, Datatype: a.Datatype}, true
}

func addMonths(t Temporal, months int32) Temporal {
	if months == 0 {
		return t
	}
	total := int32(t.Month) - 1 + months
	year := t.Year + total/12
	m := total % 12
	if m < 0 {
		m += 12
		year--
	}
	t.Year = year
	t.Month = int8(m + 1)
	return t
}

func addNanos(t Temporal, nanos int64) Temporal {
	if nanos == 0 {
		return t
	}
	inst := t.instant().Add(time.Duration(nanos))
	t.Year = int32(inst.Year())
	t.Month = int8(inst.Month())
	t.Day = int8(inst.Day())
	t.Hour = int8(inst.Hour())
	t.Min = int8(inst.Minute())
	t.Sec = int8(inst.Second())
	t.Nanos = int32(inst.Nanosecond())
	return t
}
