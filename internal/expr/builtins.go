package expr

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rdfstore/rdfstore/internal/valuespace"
)

// maxRegexPatternLength bounds REGEX/REPLACE pattern length before
// compilation. Go's regexp package compiles to RE2, whose automaton size
// is linear in pattern length and which never backtracks (no catastrophic
// blowup the way a backtracking engine can suffer) — so the "memory
// budget" spec §4.6 asks for is enforced here by capping input size
// rather than by a runtime memory ceiling, unlike the Rust original
// (lib/oxigraph/src/sparql/datafusion/function/mod.rs), which must guard
// against its backtracking regex crate explicitly. This substitution is
// recorded in DESIGN.md.
const maxRegexPatternLength = 4096

func registerBuiltins(r *Registry) {
	registerOperators(r)
	registerStringFuncs(r)
	registerNumericFuncs(r)
	registerCasts(r)
}

func str(s string) valuespace.Value { return valuespace.Value{Kind: valuespace.KindString, Str: s} }
func boolean(b bool) valuespace.Value {
	return valuespace.Value{Kind: valuespace.KindBoolean, Bool: b}
}
func integer(n int64) valuespace.Value { return valuespace.Value{Kind: valuespace.KindInteger, Int: n} }
func double(f float64) valuespace.Value {
	return valuespace.Value{Kind: valuespace.KindDouble, F64: f}
}

func registerOperators(r *Registry) {
	r.Register("+", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		return valuespace.Arithmetic(valuespace.OpAdd, a[0], a[1])
	})
	r.Register("-", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		return valuespace.Arithmetic(valuespace.OpSub, a[0], a[1])
	})
	r.Register("*", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		return valuespace.Arithmetic(valuespace.OpMul, a[0], a[1])
	})
	r.Register("/", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		return valuespace.Arithmetic(valuespace.OpDiv, a[0], a[1])
	})
	r.Register("=", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		eq, ok := valuespace.Equal(a[0], a[1])
		return boolean(eq), ok
	})
	r.Register("!=", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		eq, ok := valuespace.Equal(a[0], a[1])
		return boolean(!eq), ok
	})
	r.Register("<", cmpOp(func(c int) bool { return c < 0 }))
	r.Register("<=", cmpOp(func(c int) bool { return c <= 0 }))
	r.Register(">", cmpOp(func(c int) bool { return c > 0 }))
	r.Register(">=", cmpOp(func(c int) bool { return c >= 0 }))
	r.Register("!", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 {
			return valuespace.Value{}, false
		}
		b, ok := valuespace.EffectiveBoolean(a[0])
		if !ok {
			return valuespace.Value{}, false
		}
		return boolean(!b), true
	})
	// && and || are ordinarily short-circuited at the algebra layer (so
	// that e.g. one undefined operand doesn't poison a provably-false
	// conjunction); these entries exist for callers that have already
	// evaluated both sides, per SPARQL's three-valued-logic truth table.
	r.Register("&&", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		return threeValuedAnd(a[0], a[1])
	})
	r.Register("||", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		return threeValuedOr(a[0], a[1])
	})
}

func cmpOp(pred func(int) bool) Func {
	return func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 {
			return valuespace.Value{}, false
		}
		c, ok := valuespace.Compare(a[0], a[1])
		if !ok {
			return valuespace.Value{}, false
		}
		return boolean(pred(c)), true
	}
}

// threeValuedAnd implements SPARQL's logical-AND truth table: a false
// operand forces false even if the other operand is undefined.
func threeValuedAnd(a, b valuespace.Value) (valuespace.Value, bool) {
	av, aok := valuespace.EffectiveBoolean(a)
	bv, bok := valuespace.EffectiveBoolean(b)
	if aok && !av {
		return boolean(false), true
	}
	if bok && !bv {
		return boolean(false), true
	}
	if !aok || !bok {
		return valuespace.Value{}, false
	}
	return boolean(av && bv), true
}

func threeValuedOr(a, b valuespace.Value) (valuespace.Value, bool) {
	av, aok := valuespace.EffectiveBoolean(a)
	bv, bok := valuespace.EffectiveBoolean(b)
	if aok && av {
		return boolean(true), true
	}
	if bok && bv {
		return boolean(true), true
	}
	if !aok || !bok {
		return valuespace.Value{}, false
	}
	return boolean(av || bv), true
}

func registerStringFuncs(r *Registry) {
	r.Register("STRLEN", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 || !isStringy(a[0]) {
			return valuespace.Value{}, false
		}
		return integer(int64(len([]rune(a[0].Str)))), true
	})
	r.Register("UCASE", stringTransform(strings.ToUpper))
	r.Register("LCASE", stringTransform(strings.ToLower))
	r.Register("CONTAINS", stringPredicate(strings.Contains))
	r.Register("STRSTARTS", stringPredicate(strings.HasPrefix))
	r.Register("STRENDS", stringPredicate(strings.HasSuffix))
	r.Register("STRBEFORE", stringSplit(func(s, sep string) string {
		i := strings.Index(s, sep)
		if i < 0 {
			return ""
		}
		return s[:i]
	}))
	r.Register("STRAFTER", stringSplit(func(s, sep string) string {
		i := strings.Index(s, sep)
		if i < 0 {
			return ""
		}
		return s[i+len(sep):]
	}))
	r.Register("CONCAT", func(a ...valuespace.Value) (valuespace.Value, bool) {
		var b strings.Builder
		for _, v := range a {
			if !isStringy(v) {
				return valuespace.Value{}, false
			}
			b.WriteString(v.Str)
		}
		return str(b.String()), true
	})
	r.Register("SUBSTR", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) < 2 || len(a) > 3 || !isStringy(a[0]) {
			return valuespace.Value{}, false
		}
		runes := []rune(a[0].Str)
		start, ok := substrIndex(a[1])
		if !ok {
			return valuespace.Value{}, false
		}
		from := start - 1
		to := int64(len(runes))
		if len(a) == 3 {
			length, ok := substrIndex(a[2])
			if !ok {
				return valuespace.Value{}, false
			}
			to = from + length
		}
		if from < 0 {
			from = 0
		}
		if to > int64(len(runes)) {
			to = int64(len(runes))
		}
		if from >= to {
			return str(""), true
		}
		return str(string(runes[from:to])), true
	})
	r.Register("REGEX", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) < 2 || len(a) > 3 || !isStringy(a[0]) || !isStringy(a[1]) {
			return valuespace.Value{}, false
		}
		flags := ""
		if len(a) == 3 {
			if !isStringy(a[2]) {
				return valuespace.Value{}, false
			}
			flags = a[2].Str
		}
		re, ok := compileRegex(a[1].Str, flags)
		if !ok {
			return valuespace.Value{}, false
		}
		return boolean(re.MatchString(a[0].Str)), true
	})
	r.Register("REPLACE", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) < 3 || len(a) > 4 || !isStringy(a[0]) || !isStringy(a[1]) || !isStringy(a[2]) {
			return valuespace.Value{}, false
		}
		flags := ""
		if len(a) == 4 {
			if !isStringy(a[3]) {
				return valuespace.Value{}, false
			}
			flags = a[3].Str
		}
		re, ok := compileRegex(a[1].Str, flags)
		if !ok {
			return valuespace.Value{}, false
		}
		replacement := goReplacement(a[2].Str)
		return str(re.ReplaceAllString(a[0].Str, replacement)), true
	})
	r.Register("LANG", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 {
			return valuespace.Value{}, false
		}
		if a[0].Kind == valuespace.KindLangString {
			return str(a[0].Lang), true
		}
		return str(""), true
	})
	r.Register("LANGMATCHES", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 || !isStringy(a[0]) || !isStringy(a[1]) {
			return valuespace.Value{}, false
		}
		return boolean(langMatches(a[0].Str, a[1].Str)), true
	})
	r.Register("STR", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 {
			return valuespace.Value{}, false
		}
		switch a[0].Kind {
		case valuespace.KindString, valuespace.KindLangString:
			return str(a[0].Str), true
		default:
			return str(lexicalForm(a[0])), true
		}
	})
}

func isStringy(v valuespace.Value) bool {
	return v.Kind == valuespace.KindString || v.Kind == valuespace.KindLangString
}

func stringTransform(f func(string) string) Func {
	return func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 || !isStringy(a[0]) {
			return valuespace.Value{}, false
		}
		out := a[0]
		out.Str = f(out.Str)
		return out, true
	}
}

func stringPredicate(f func(s, substr string) bool) Func {
	return func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 || !isStringy(a[0]) || !isStringy(a[1]) {
			return valuespace.Value{}, false
		}
		return boolean(f(a[0].Str, a[1].Str)), true
	}
}

func stringSplit(f func(s, sep string) string) Func {
	return func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 2 || !isStringy(a[0]) || !isStringy(a[1]) {
			return valuespace.Value{}, false
		}
		out := a[0]
		out.Str = f(a[0].Str, a[1].Str)
		return out, true
	}
}

func substrIndex(v valuespace.Value) (int64, bool) {
	switch v.Kind {
	case valuespace.KindInteger:
		return v.Int, true
	case valuespace.KindDouble:
		return int64(math.Round(v.F64)), true
	case valuespace.KindFloat:
		return int64(math.Round(float64(v.F32))), true
	case valuespace.KindDecimal:
		return int64(math.Round(v.Dec.Float64())), true
	}
	return 0, false
}

func compileRegex(pattern, flags string) (*regexp.Regexp, bool) {
	if len(pattern) > maxRegexPatternLength {
		return nil, false
	}
	goPattern := pattern
	var inlineFlags []byte
	for _, f := range flags {
		switch f {
		case 'i':
			inlineFlags = append(inlineFlags, 'i')
		case 's':
			inlineFlags = append(inlineFlags, 's')
		case 'm':
			inlineFlags = append(inlineFlags, 'm')
		case 'x':
			// Extended whitespace mode has no RE2 equivalent; strip
			// unescaped whitespace and # comments before compiling.
			goPattern = stripExtendedWhitespace(goPattern)
		}
	}
	if len(inlineFlags) > 0 {
		goPattern = "(?" + string(inlineFlags) + ")" + goPattern
	}
	re, err := regexp.Compile(goPattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

func stripExtendedWhitespace(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			b.WriteByte(c)
			i++
			b.WriteByte(pattern[i])
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == ']':
			inClass = false
			b.WriteByte(c)
		case !inClass && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			// skip
		case !inClass && c == '#':
			for i < len(pattern) && pattern[i] != '\n' {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// goReplacement rewrites XPath/SPARQL-style $1 backreferences to Go's
// regexp ${1} form.
func goReplacement(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] == '$' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			j := i + 1
			for j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			b.WriteString("${" + repl[i+1:j] + "}")
			i = j - 1
			continue
		}
		b.WriteByte(repl[i])
	}
	return b.String()
}

// langMatches implements RFC 4647 basic filtering, lower-cased, with the
// SPARQL "*" wildcard meaning "has any language tag".
func langMatches(tag, rng string) bool {
	tag = strings.ToLower(tag)
	rng = strings.ToLower(rng)
	if rng == "*" {
		return tag != ""
	}
	if tag == rng {
		return true
	}
	return strings.HasPrefix(tag, rng+"-")
}

func lexicalForm(v valuespace.Value) string {
	switch v.Kind {
	case valuespace.KindBoolean:
		return strconv.FormatBool(v.Bool)
	case valuespace.KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case valuespace.KindDecimal:
		return v.Dec.String()
	case valuespace.KindDouble:
		return formatDouble(v.F64)
	case valuespace.KindFloat:
		return formatDouble(float64(v.F32))
	case valuespace.KindDuration, valuespace.KindYearMonthDuration, valuespace.KindDayTimeDuration:
		return v.Dur.String()
	default:
		return v.Str
	}
}

func formatDouble(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func registerNumericFuncs(r *Registry) {
	r.Register("ABS", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) == 1 && a[0].Kind == valuespace.KindInteger && a[0].Int < 0 {
			if a[0].Int == math.MinInt64 {
				return valuespace.Value{}, false
			}
			return integer(-a[0].Int), true
		}
		return numericUnary(math.Abs)(a...)
	})
	r.Register("CEIL", numericUnary(math.Ceil))
	r.Register("FLOOR", numericUnary(math.Floor))
	r.Register("ROUND", numericUnary(func(f float64) float64 { return math.Round(f) }))
}

func numericUnary(f func(float64) float64) Func {
	return func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 {
			return valuespace.Value{}, false
		}
		v := a[0]
		switch v.Kind {
		case valuespace.KindInteger:
			return v, true
		case valuespace.KindDecimal:
			return valuespace.Value{Kind: valuespace.KindDecimal, Dec: decimalFromFloat(f(v.Dec.Float64()))}, true
		case valuespace.KindFloat:
			return valuespace.Value{Kind: valuespace.KindFloat, F32: float32(f(float64(v.F32)))}, true
		case valuespace.KindDouble:
			return double(f(v.F64)), true
		}
		return valuespace.Value{}, false
	}
}

func decimalFromFloat(f float64) valuespace.Decimal {
	d, err := valuespace.ParseDecimal(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return valuespace.Decimal{Unscaled: int64(f)}
	}
	return d
}

func registerCasts(r *Registry) {
	r.Register("xsd:integer", castFunc(func(s string) (valuespace.Value, error) {
		n, err := valuespace.ParseInteger(s)
		return integer(n), err
	}))
	r.Register("xsd:double", castFunc(func(s string) (valuespace.Value, error) {
		f, err := valuespace.ParseDouble(s)
		return double(f), err
	}))
	r.Register("xsd:decimal", castFunc(func(s string) (valuespace.Value, error) {
		d, err := valuespace.ParseDecimal(s)
		return valuespace.Value{Kind: valuespace.KindDecimal, Dec: d}, err
	}))
	r.Register("xsd:boolean", castFunc(func(s string) (valuespace.Value, error) {
		b, err := valuespace.ParseBoolean(s)
		return boolean(b), err
	}))
	r.Register("xsd:string", func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 {
			return valuespace.Value{}, false
		}
		return str(lexicalForm(a[0])), true
	})
}

func castFunc(parse func(string) (valuespace.Value, error)) Func {
	return func(a ...valuespace.Value) (valuespace.Value, bool) {
		if len(a) != 1 {
			return valuespace.Value{}, false
		}
		lex := a[0].Str
		if !isStringy(a[0]) {
			lex = lexicalForm(a[0])
		}
		v, err := parse(lex)
		if err != nil {
			return valuespace.Value{}, false
		}
		return v, true
	}
}
