package encoding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rdfstore/rdfstore/internal/dictionary"
	"github.com/rdfstore/rdfstore/internal/valuespace"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// Encoder converts rdf.Term values into the fixed-width EncodedTerm used
// throughout internal/quadstore. It owns the "dictionary write hook" spec
// §4.4 requires the quad store to call at insert time: every Big/fingerprint
// variant it produces is paired with a call to dict.Insert.
type Encoder struct {
	Arena *Arena
}

func NewEncoder() *Encoder {
	return &Encoder{Arena: NewArena()}
}

// Encode maps an rdf.Term to its EncodedTerm, inserting any referenced
// string into dict (spec §4.2, §4.4's dictionary write policy).
func (e *Encoder) Encode(term rdf.Term, dict dictionary.Writer) (EncodedTerm, error) {
	switch t := term.(type) {
	case *rdf.DefaultGraph:
		return EncodedTerm{Tag: TagDefaultGraph}, nil
	case *rdf.NamedNode:
		fp := dictionary.Hash(t.IRI)
		if err := dict.Insert(fp, t.IRI); err != nil {
			return EncodedTerm{}, err
		}
		return EncodedTerm{Tag: TagNamedNode, Slot0: fingerprintSlot(fp)}, nil
	case *rdf.BlankNode:
		return e.encodeBlankNode(t, dict)
	case *rdf.Literal:
		return e.encodeLiteral(t, dict)
	case *rdf.QuotedTriple:
		return e.encodeQuotedTriple(t, dict)
	default:
		return EncodedTerm{}, fmt.Errorf("encoding: unsupported term type %T", term)
	}
}

func (e *Encoder) encodeBlankNode(b *rdf.BlankNode, dict dictionary.Writer) (EncodedTerm, error) {
	if id, ok := b.NumericID(); ok {
		var et EncodedTerm
		et.Tag = TagBlankNodeNumerical
		copy(et.Slot0[:], id[:])
		return et, nil
	}
	if slot, ok := inlineString(b.ID); ok {
		return EncodedTerm{Tag: TagBlankNodeSmall, Slot0: slot}, nil
	}
	fp := dictionary.Hash(b.ID)
	if err := dict.Insert(fp, b.ID); err != nil {
		return EncodedTerm{}, err
	}
	return EncodedTerm{Tag: TagBlankNodeBig, Slot0: fingerprintSlot(fp)}, nil
}

func (e *Encoder) encodeLiteral(lit *rdf.Literal, dict dictionary.Writer) (EncodedTerm, error) {
	if lit.Datatype != nil && lit.Datatype.IRI != rdf.XSDString.IRI {
		if et, ok, err := e.encodeNative(lit, dict); ok || err != nil {
			return et, err
		}
		return e.encodeTypedLiteral(lit, dict)
	}
	if lit.Language != "" {
		return e.encodeLangLiteral(lit, dict)
	}
	return e.encodeStringLiteral(lit.Value, dict, TagStringLiteralSmall, TagStringLiteralBig)
}

func (e *Encoder) encodeStringLiteral(value string, dict dictionary.Writer, small, big Tag) (EncodedTerm, error) {
	if slot, ok := inlineString(value); ok {
		return EncodedTerm{Tag: small, Slot0: slot}, nil
	}
	fp := dictionary.Hash(value)
	if err := dict.Insert(fp, value); err != nil {
		return EncodedTerm{}, err
	}
	return EncodedTerm{Tag: big, Slot0: fingerprintSlot(fp)}, nil
}

func (e *Encoder) encodeLangLiteral(lit *rdf.Literal, dict dictionary.Writer) (EncodedTerm, error) {
	lang := lowerASCII(lit.Language)
	valueSlot, valueSmall, err := e.encodeSlot(lit.Value, dict)
	if err != nil {
		return EncodedTerm{}, err
	}
	langSlot, langSmall, err := e.encodeSlot(lang, dict)
	if err != nil {
		return EncodedTerm{}, err
	}

	if lit.Direction == "" {
		tag := dirLangTag(false, valueSmall, langSmall, false)
		return EncodedTerm{Tag: tag, Slot0: valueSlot, Slot1: langSlot}, nil
	}
	rtl := lit.Direction == "rtl"
	tag := dirLangTag(true, valueSmall, langSmall, rtl)
	return EncodedTerm{Tag: tag, Slot0: valueSlot, Slot1: langSlot}, nil
}

// encodeSlot inlines s if it fits, else fingerprints and inserts it.
func (e *Encoder) encodeSlot(s string, dict dictionary.Writer) (slot [slotSize]byte, small bool, err error) {
	if sl, ok := inlineString(s); ok {
		return sl, true, nil
	}
	fp := dictionary.Hash(s)
	if err := dict.Insert(fp, s); err != nil {
		return slot, false, err
	}
	return fingerprintSlot(fp), false, nil
}

func dirLangTag(hasDir, valueSmall, langSmall, rtl bool) Tag {
	if !hasDir {
		switch {
		case valueSmall && langSmall:
			return TagLangStringSmallSmall
		case valueSmall && !langSmall:
			return TagLangStringSmallBig
		case !valueSmall && langSmall:
			return TagLangStringBigSmall
		default:
			return TagLangStringBigBig
		}
	}
	if !rtl {
		switch {
		case valueSmall && langSmall:
			return TagDirLangStringSmallSmallLTR
		case valueSmall && !langSmall:
			return TagDirLangStringSmallBigLTR
		case !valueSmall && langSmall:
			return TagDirLangStringBigSmallLTR
		default:
			return TagDirLangStringBigBigLTR
		}
	}
	switch {
	case valueSmall && langSmall:
		return TagDirLangStringSmallSmallRTL
	case valueSmall && !langSmall:
		return TagDirLangStringSmallBigRTL
	case !valueSmall && langSmall:
		return TagDirLangStringBigSmallRTL
	default:
		return TagDirLangStringBigBigRTL
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (e *Encoder) encodeTypedLiteral(lit *rdf.Literal, dict dictionary.Writer) (EncodedTerm, error) {
	dtFP := dictionary.Hash(lit.Datatype.IRI)
	if err := dict.Insert(dtFP, lit.Datatype.IRI); err != nil {
		return EncodedTerm{}, err
	}
	valueSlot, valueSmall, err := e.encodeSlot(lit.Value, dict)
	if err != nil {
		return EncodedTerm{}, err
	}
	tag := TagTypedLiteralBig
	if valueSmall {
		tag = TagTypedLiteralSmall
	}
	return EncodedTerm{Tag: tag, Slot0: valueSlot, Slot1: fingerprintSlot(dtFP)}, nil
}

// encodeNative attempts the native lexical-to-value parse for a datatype
// with native value-space support (spec §4.2). ok is false when the
// datatype isn't one of the native types at all (caller falls back to
// encodeTypedLiteral); err is non-nil only for an I/O failure while
// writing to the dictionary, never for a parse failure (a parse failure
// also falls back to encodeTypedLiteral, per spec: "on failure fall back
// to Small/BigTypedLiteral").
func (e *Encoder) encodeNative(lit *rdf.Literal, dict dictionary.Writer) (EncodedTerm, bool, error) {
	switch lit.Datatype.IRI {
	case rdf.XSDBoolean.IRI:
		if v, err := valuespace.ParseBoolean(lit.Value); err == nil {
			var et EncodedTerm
			et.Tag = TagBoolean
			if v {
				et.Slot0[0] = 1
			}
			return et, true, nil
		}
	case rdf.XSDInteger.IRI:
		if v, err := valuespace.ParseInteger(lit.Value); err == nil {
			var et EncodedTerm
			et.Tag = TagInteger
			copy(et.Slot0[:8], rdf.EncodeInt64BigEndian(v))
			return et, true, nil
		}
	case rdf.XSDDecimal.IRI:
		if v, err := valuespace.ParseDecimal(lit.Value); err == nil {
			var et EncodedTerm
			et.Tag = TagDecimal
			binary.BigEndian.PutUint64(et.Slot0[:8], uint64(v.Unscaled))
			et.Slot0[8] = v.Scale
			return et, true, nil
		}
	case rdf.XSDFloat.IRI:
		if v, err := valuespace.ParseDouble(lit.Value); err == nil {
			var et EncodedTerm
			et.Tag = TagFloat
			binary.BigEndian.PutUint32(et.Slot0[:4], math.Float32bits(float32(v)))
			return et, true, nil
		}
	case rdf.XSDDouble.IRI:
		if v, err := valuespace.ParseDouble(lit.Value); err == nil {
			var et EncodedTerm
			et.Tag = TagDouble
			copy(et.Slot0[:8], rdf.EncodeFloat64BigEndian(v))
			return et, true, nil
		}
	case rdf.XSDDateTime.IRI:
		if v, err := valuespace.ParseDateTime(lit.Value); err == nil {
			return encodeTemporal(TagDateTime, v), true, nil
		}
	case rdf.XSDDate.IRI:
		if v, err := valuespace.ParseDate(lit.Value); err == nil {
			return encodeTemporal(TagDate, v), true, nil
		}
	case rdf.XSDTime.IRI:
		if v, err := valuespace.ParseTime(lit.Value); err == nil {
			return encodeTemporal(TagTime, v), true, nil
		}
	case rdf.XSDGYearMonth.IRI:
		if v, err := valuespace.ParseGYearMonth(lit.Value); err == nil {
			return encodeTemporal(TagGYearMonth, v), true, nil
		}
	case rdf.XSDGYear.IRI:
		if v, err := valuespace.ParseGYear(lit.Value); err == nil {
			return encodeTemporal(TagGYear, v), true, nil
		}
	case rdf.XSDGMonthDay.IRI:
		if v, err := valuespace.ParseGMonthDay(lit.Value); err == nil {
			return encodeTemporal(TagGMonthDay, v), true, nil
		}
	case rdf.XSDGMonth.IRI:
		if v, err := valuespace.ParseGMonth(lit.Value); err == nil {
			return encodeTemporal(TagGMonth, v), true, nil
		}
	case rdf.XSDGDay.IRI:
		if v, err := valuespace.ParseGDay(lit.Value); err == nil {
			return encodeTemporal(TagGDay, v), true, nil
		}
	case rdf.XSDDuration.IRI:
		if v, err := valuespace.ParseDuration(lit.Value); err == nil {
			return encodeDuration(TagDuration, v), true, nil
		}
	case rdf.XSDYearMonthDuration.IRI:
		if v, err := valuespace.ParseDuration(lit.Value); err == nil {
			return encodeDuration(TagYearMonthDuration, v), true, nil
		}
	case rdf.XSDDayTimeDuration.IRI:
		if v, err := valuespace.ParseDuration(lit.Value); err == nil {
			return encodeDuration(TagDayTimeDuration, v), true, nil
		}
	default:
		return EncodedTerm{}, false, nil
	}
	// Recognized native datatype but the lexical form didn't parse: fall
	// back to typed-literal encoding.
	return EncodedTerm{}, false, nil
}

func encodeTemporal(tag Tag, t valuespace.Temporal) EncodedTerm {
	var et EncodedTerm
	et.Tag = tag
	et.Slot0[0] = byte(t.Month)
	et.Slot0[1] = byte(t.Day)
	et.Slot0[2] = byte(t.Hour)
	et.Slot0[3] = byte(t.Min)
	et.Slot0[4] = byte(t.Sec)
	binary.BigEndian.PutUint32(et.Slot0[5:9], uint32(t.Nanos))
	binary.BigEndian.PutUint32(et.Slot0[9:13], uint32(t.Year))
	if t.HasTZ {
		et.Slot0[13] = 1
	}
	binary.BigEndian.PutUint16(et.Slot0[14:16], uint16(t.TZOffsetMin))
	return et
}

func encodeDuration(tag Tag, d valuespace.Duration) EncodedTerm {
	var et EncodedTerm
	et.Tag = tag
	binary.BigEndian.PutUint32(et.Slot0[0:4], uint32(d.Months))
	binary.BigEndian.PutUint64(et.Slot0[4:12], uint64(d.Nanos))
	return et
}

func (e *Encoder) encodeQuotedTriple(qt *rdf.QuotedTriple, dict dictionary.Writer) (EncodedTerm, error) {
	s, err := e.Encode(qt.Subject, dict)
	if err != nil {
		return EncodedTerm{}, err
	}
	p, err := e.Encode(qt.Predicate, dict)
	if err != nil {
		return EncodedTerm{}, err
	}
	o, err := e.Encode(qt.Object, dict)
	if err != nil {
		return EncodedTerm{}, err
	}
	serialized := qt.String()
	fp := dictionary.Hash(serialized)
	if err := dict.Insert(fp, serialized); err != nil {
		return EncodedTerm{}, err
	}
	e.Arena.Put(fp, qt, s, p, o)
	return EncodedTerm{Tag: TagTriple, Slot0: fingerprintSlot(fp)}, nil
}
