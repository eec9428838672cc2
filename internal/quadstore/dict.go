package quadstore

import (
	"github.com/rdfstore/rdfstore/internal/dictionary"
	"github.com/rdfstore/rdfstore/internal/kv"
)

// txnDict implements dictionary.ReadWriter against the ID2Str column
// family of a single kv.Txn (spec §3/§4.1's eighth column family:
// "128-bit fingerprint -> its string").
type txnDict struct {
	txn *kv.Txn
}

func (d txnDict) Get(fp dictionary.Fingerprint) (string, bool, error) {
	v, err := d.txn.Get(kv.CFID2Str, fp[:])
	if err == kv.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(v), true, nil
}

func (d txnDict) Insert(fp dictionary.Fingerprint, s string) error {
	ok, err := d.txn.Contains(kv.CFID2Str, fp[:])
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return d.txn.Set(kv.CFID2Str, fp[:], []byte(s))
}
