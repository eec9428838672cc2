package dictionary

import "testing"

func TestHashIsDeterministic(t *testing.T) {
	a := Hash("http://example/alice")
	b := Hash("http://example/alice")
	if a != b {
		t.Fatalf("Hash should be deterministic, got %v != %v", a, b)
	}
}

func TestHashDistinguishesDistinctStrings(t *testing.T) {
	a := Hash("http://example/alice")
	b := Hash("http://example/bob")
	if a == b {
		t.Fatal("distinct strings should (overwhelmingly) hash to distinct fingerprints")
	}
}

func TestHashEmptyString(t *testing.T) {
	a := Hash("")
	b := Hash("")
	if a != b {
		t.Fatal("hashing the empty string should still be deterministic")
	}
}

func TestFingerprintStringIsHex(t *testing.T) {
	fp := Hash("http://example/alice")
	s := fp.String()
	if len(s) != 32 {
		t.Fatalf("a 16-byte fingerprint should render as 32 hex chars, got %d: %q", len(s), s)
	}
	for _, r := range s {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHex {
			t.Fatalf("non-hex character %q in fingerprint string %q", r, s)
		}
	}
}

type fakeDict struct {
	entries map[Fingerprint]string
}

func newFakeDict() *fakeDict { return &fakeDict{entries: make(map[Fingerprint]string)} }

func (d *fakeDict) Get(fp Fingerprint) (string, bool, error) {
	s, ok := d.entries[fp]
	return s, ok, nil
}

func (d *fakeDict) Insert(fp Fingerprint, s string) error {
	d.entries[fp] = s
	return nil
}

func TestWriteBootstrapInsertsWellKnownIRIs(t *testing.T) {
	d := newFakeDict()
	if err := WriteBootstrap(d); err != nil {
		t.Fatalf("WriteBootstrap: %v", err)
	}
	for _, s := range []string{
		"",
		"http://www.w3.org/2001/XMLSchema#integer",
		"http://www.w3.org/2001/XMLSchema#dateTime",
		"http://www.w3.org/1999/02/22-rdf-syntax-ns#langString",
	} {
		got, ok, err := d.Get(Hash(s))
		if err != nil || !ok {
			t.Fatalf("expected bootstrap entry %q present, ok=%v err=%v", s, ok, err)
		}
		if got != s {
			t.Errorf("bootstrap entry for hash of %q returned %q", s, got)
		}
	}
}

func TestWriteBootstrapIsIdempotent(t *testing.T) {
	d := newFakeDict()
	if err := WriteBootstrap(d); err != nil {
		t.Fatalf("first WriteBootstrap: %v", err)
	}
	if err := WriteBootstrap(d); err != nil {
		t.Fatalf("second WriteBootstrap should be a safe no-op-equivalent: %v", err)
	}
}

func TestGetMissingFingerprintReportsNotOK(t *testing.T) {
	d := newFakeDict()
	_, ok, err := d.Get(Hash("never inserted"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("looking up a never-inserted fingerprint should report ok=false")
	}
}
