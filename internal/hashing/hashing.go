package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Algorithm names a content hash function.
type Algorithm string

const (
	// XXH64 is the default: 64-bit xxHash rendered as 16 hex chars.
	XXH64 Algorithm = "xxh64"
	// SHA256 is a cryptographic digest rendered as 64 hex chars.
	SHA256 Algorithm = "sha256"
	// BLAKE2b is BLAKE2b-256 rendered as 64 hex chars.
	BLAKE2b Algorithm = "blake2b"
)

// Default is used when no algorithm is configured.
const Default = XXH64

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{XXH64, SHA256, BLAKE2b}

// Parse resolves a configured algorithm name. An empty name yields Default.
func Parse(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return Default, nil
	case XXH64, SHA256, BLAKE2b:
		return a, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (supported: xxh64, sha256, blake2b)", name)
	}
}

// HexLen is the length of the digest string the algorithm produces.
func (a Algorithm) HexLen() int {
	switch a {
	case SHA256, BLAKE2b:
		return 64
	default:
		return 16
	}
}

func (a Algorithm) String() string { return string(a) }

// New returns a streaming hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case BLAKE2b:
		// Only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	default:
		return xxhash.New()
	}
}

// Sum returns the lowercase hex digest of data.
func (a Algorithm) Sum(data []byte) string {
	switch a {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	case BLAKE2b:
		sum := blake2b.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		return fmt.Sprintf("%016x", xxhash.Sum64(data))
	}
}

// File streams the file at path through the algorithm.
func (a Algorithm) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	return a.Reader(f)
}

// Reader hashes everything read from r.
func (a Algorithm) Reader(r io.Reader) (string, error) {
	h := a.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
