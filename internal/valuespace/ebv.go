package valuespace

import "math"

// EffectiveBoolean implements SPARQL's Effective Boolean Value coercion
// (spec §4.5): booleans by identity, numerics false iff zero or NaN,
// strings false iff empty, every other term undefined.
func EffectiveBoolean(v Value) (result bool, ok bool) {
	switch v.Kind {
	case KindBoolean:
		return v.Bool, true
	case KindInteger:
		return v.Int != 0, true
	case KindDecimal:
		return v.Dec.Unscaled != 0, true
	case KindFloat:
		return v.F32 != 0 && !math.IsNaN(float64(v.F32)), true
	case KindDouble:
		return v.F64 != 0 && !math.IsNaN(v.F64), true
	case KindString:
		return v.Str != "", true
	}
	return false, false
}
