// Package encoding implements the term encoder (spec C2): the mapping
// between rdf.Term and the compact, comparison-preserving binary
// EncodedTerm used as the payload of every index key (internal/quadstore).
package encoding

import (
	"github.com/rdfstore/rdfstore/internal/dictionary"
)

// Tag identifies an EncodedTerm variant. Values are stable on-disk
// constants — never renumber an existing tag.
type Tag byte

const (
	TagDefaultGraph Tag = iota + 1
	TagNamedNode
	TagBlankNodeNumerical
	TagBlankNodeSmall
	TagBlankNodeBig
	TagStringLiteralSmall
	TagStringLiteralBig
	// Language-tagged literal 2x2 matrix: value small/big x language small/big.
	TagLangStringSmallSmall
	TagLangStringSmallBig
	TagLangStringBigSmall
	TagLangStringBigBig
	// Direction-and-language literal (RDF 1.2, optional feature), same
	// matrix, doubled for ltr/rtl.
	TagDirLangStringSmallSmallLTR
	TagDirLangStringSmallBigLTR
	TagDirLangStringBigSmallLTR
	TagDirLangStringBigBigLTR
	TagDirLangStringSmallSmallRTL
	TagDirLangStringSmallBigRTL
	TagDirLangStringBigSmallRTL
	TagDirLangStringBigBigRTL
	// Typed literal fallback (non-native datatype).
	TagTypedLiteralSmall
	TagTypedLiteralBig
	// Native XSD types.
	TagBoolean
	TagFloat
	TagDouble
	TagInteger
	TagDecimal
	TagDateTime
	TagTime
	TagDate
	TagGYearMonth
	TagGYear
	TagGMonthDay
	TagGMonth
	TagGDay
	TagDuration
	TagYearMonthDuration
	TagDayTimeDuration
	// Quoted triple (RDF 1.2 triple term).
	TagTriple
)

// slotSize is the width of each of the two fixed payload slots. A tag byte
// plus two slots gives the "one byte plus two 128-bit hashes" maximum
// width spec §3 describes.
const slotSize = 16

// EncodedTerm is the fixed-size, comparison-preserving binary form of an
// RDF term (spec §3 "Encoded term"). Byte-equality on EncodedTerm is
// exactly RDF term identity (invariant ii): two terms encode to the same
// bytes iff they are the same RDF term, and distinct native values (e.g.
// two FloatLiteral bit patterns) are compared bit-for-bit, never
// value-normalized (NaN payload included).
type EncodedTerm struct {
	Tag  Tag
	Slot0 [slotSize]byte
	Slot1 [slotSize]byte
}

// Size is the fixed on-disk width of an EncodedTerm.
const Size = 1 + slotSize + slotSize

// Bytes serializes the term into its fixed-width key representation.
func (e EncodedTerm) Bytes() [Size]byte {
	var out [Size]byte
	out[0] = byte(e.Tag)
	copy(out[1:1+slotSize], e.Slot0[:])
	copy(out[1+slotSize:], e.Slot1[:])
	return out
}

// FromBytes parses a fixed-width key representation back into an
// EncodedTerm. It never fails on well-formed input of the right length;
// an unrecognized tag is only an error once the caller tries to Decode it
// (spec's "unknown tag" corruption case is a decode-time, not parse-time,
// failure).
func FromBytes(b []byte) (EncodedTerm, int, error) {
	if len(b) < Size {
		return EncodedTerm{}, 0, errShortKey
	}
	var e EncodedTerm
	e.Tag = Tag(b[0])
	copy(e.Slot0[:], b[1:1+slotSize])
	copy(e.Slot1[:], b[1+slotSize:Size])
	return e, Size, nil
}

var errShortKey = shortKeyError{}

type shortKeyError struct{}

func (shortKeyError) Error() string { return "encoding: truncated encoded-term key" }

// inlineString returns (bytes, true) when s fits inline in a slot, using
// the first byte of the slot as a length prefix so the zero string and a
// string of zero bytes remain distinguishable from an all-zero fingerprint
// slot (a valid xxh3 output of all zero bytes is permitted by this scheme
// only when explicitly length-prefixed, never mistaken for "no string").
func inlineString(s string) (slot [slotSize]byte, ok bool) {
	if len(s) > slotSize-1 {
		return slot, false
	}
	slot[0] = byte(len(s))
	copy(slot[1:], s)
	return slot, true
}

func readInlineString(slot [slotSize]byte) string {
	n := int(slot[0])
	if n > slotSize-1 {
		n = slotSize - 1
	}
	return string(slot[1 : 1+n])
}

func fingerprintSlot(fp dictionary.Fingerprint) [slotSize]byte {
	var slot [slotSize]byte
	copy(slot[:], fp[:])
	return slot
}

func slotFingerprint(slot [slotSize]byte) dictionary.Fingerprint {
	var fp dictionary.Fingerprint
	copy(fp[:], slot[:])
	return fp
}
