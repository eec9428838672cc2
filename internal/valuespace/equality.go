package valuespace

// Equal implements RDFterm-equal (spec §4.5): same-family semantic
// equality, numeric/duration cross-family promotion, cross-family
// non-numeric pairs defined false, and unknown-datatype operands
// undefined (ok=false).
func Equal(a, b Value) (result bool, ok bool) {
	if a.Kind == KindOther || b.Kind == KindOther {
		if a.Kind == KindOther && b.Kind == KindOther {
			return a.Datatype == b.Datatype && a.Str == b.Str, true
		}
		return false, false
	}

	if isNumeric(a.Kind) && isNumeric(b.Kind) {
		return numericEqual(a, b), true
	}
	if isDuration(a.Kind) && isDuration(b.Kind) {
		am, an := durationOf(a)
		bm, bn := durationOf(b)
		return am == bm && an == bn, true
	}

	if a.Kind != b.Kind {
		// Cross-family, non-numeric, non-duration: defined false (spec:
		// "Cross-family comparisons... are defined to be false").
		return false, true
	}

	switch a.Kind {
	case KindString:
		return a.Str == b.Str, true
	case KindLangString:
		return a.Str == b.Str && a.Lang == b.Lang, true
	case KindBoolean:
		return a.Bool == b.Bool, true
	case KindDateTime, KindDate, KindTime, KindGYearMonth, KindGYear, KindGMonthDay, KindGMonth, KindGDay:
		return a.Temporal.instant().Equal(b.Temporal.instant()) && a.Temporal.HasTZ == b.Temporal.HasTZ, true
	}
	return false, true
}

func isNumeric(k Kind) bool {
	switch k {
	case KindInteger, KindDecimal, KindFloat, KindDouble:
		return true
	}
	return false
}

func isDuration(k Kind) bool {
	switch k {
	case KindDuration, KindYearMonthDuration, KindDayTimeDuration:
		return true
	}
	return false
}

func durationOf(v Value) (months int32, nanos int64) {
	switch v.Kind {
	case KindYearMonthDuration:
		return v.Dur.Months, 0
	case KindDayTimeDuration:
		return 0, v.Dur.Nanos
	default:
		return v.Dur.Months, v.Dur.Nanos
	}
}

// numericEqual promotes across the integer/decimal/float/double
// cross-product: float < double; integer <-> decimal; integer <-> float
// by exact conversion (spec §4.5).
func numericEqual(a, b Value) bool {
	// If either side is double, compare as double (widest).
	if a.Kind == KindDouble || b.Kind == KindDouble {
		return asDouble(a) == asDouble(b)
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return float32(asDouble(a)) == float32(asDouble(b))
	}
	// integer <-> decimal: compare as decimal.
	ad, bd := asDecimal(a), asDecimal(b)
	av, bv, _, ok := rescale(ad, bd)
	if !ok {
		return asDouble(a) == asDouble(b)
	}
	return av == bv
}

func asDouble(v Value) float64 {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int)
	case KindDecimal:
		return v.Dec.Float64()
	case KindFloat:
		return float64(v.F32)
	case KindDouble:
		return v.F64
	}
	return 0
}

func asDecimal(v Value) Decimal {
	switch v.Kind {
	case KindInteger:
		return Decimal{Unscaled: v.Int, Scale: 0}
	case KindDecimal:
		return v.Dec
	}
	return Decimal{}
}
