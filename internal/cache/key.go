package cache

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Query is a request whose response may be cached. CacheKey must return a
// value CBOR can encode, and equal keys must mean equal responses.
type Query interface {
	CacheKey() any
}

type taggedKey struct {
	Tag string `cbor:"tag"`
	Key any    `cbor:"key"`
}

var keyMode cbor.EncMode

func init() { //nolint:gochecknoinits // encoder options are static
	var err error
	keyMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Key returns the fingerprint of q: the deterministic CBOR encoding of the
// query's type name and its key. Two query types never share a key, even
// when their CacheKey values are equal.
func Key(q Query) ([]byte, error) {
	b, err := keyMode.Marshal(taggedKey{Tag: typeName(q), Key: q.CacheKey()})
	if err != nil {
		return nil, wrap(ErrSerialize, err)
	}
	return b, nil
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
