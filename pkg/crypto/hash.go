package crypto

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hash generates a BLAKE2b-256 digest. Used for local integrity checks
// (storage checksums); wire-format digests use GimliHash.
func Hash(data []byte) ([]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// HashString generates a BLAKE2b-256 digest and returns it hex encoded.
func HashString(data []byte) (string, error) {
	h, err := Hash(data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}

// VerifyHash reports whether the digest of data matches expectedHash.
func VerifyHash(data []byte, expectedHash []byte) (bool, error) {
	actual, err := Hash(data)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(actual, expectedHash) == 1, nil
}
