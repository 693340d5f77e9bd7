package bbb

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// Checksum algorithms accepted by the server
const (
	ChecksumSHA1   = "sha1"
	ChecksumSHA256 = "sha256"
)

func newHash(algorithm string) (func() hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "", ChecksumSHA1:
		return sha1.New, nil
	case ChecksumSHA256:
		return sha256.New, nil
	default:
		return nil, ErrUnknownChecksum
	}
}

// sign computes H(call + query + secret) as lowercase hex
func sign(h func() hash.Hash, call, query, secret string) string {
	d := h()
	d.Write([]byte(call))
	d.Write([]byte(query))
	d.Write([]byte(secret))
	return hex.EncodeToString(d.Sum(nil))
}
