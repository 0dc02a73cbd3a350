package trust

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// fingerprinter turns raw client fingerprints into keyed digests so the audit log never stores device identifiers.
// Digests are stable for a given key, which is all the session checker needs.
type fingerprinter struct {
	key []byte
}

func newFingerprinter(key string) fingerprinter {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	return fingerprinter{key: k}
}

func (fp fingerprinter) digest(raw string) string {
	if raw == "" {
		return ""
	}
	h, err := blake2b.New256(fp.key)
	if err != nil { // only on keys > 64 bytes, which newFingerprinter rules out
		panic(err)
	}
	_, _ = h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
