package docex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashLen is the number of hex characters kept from the SHA-256 digest.
const hashLen = 16

// hashChunkSize bounds memory use while hashing large files.
const hashChunkSize = 64 << 10

// HashFile returns the content hash of the file at path: the first 16 hex
// characters of the SHA-256 digest of its bytes, computed in one pass over
// fixed-size chunks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("docex: hash %s: %w", path, err)
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader is HashFile over an arbitrary stream.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("docex: hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLen], nil
}

// Identify computes the identity of the file at path.
func Identify(path string) (PDFIdentity, error) {
	hash, err := HashFile(path)
	if err != nil {
		return PDFIdentity{}, err
	}
	return PDFIdentity{
		Filename:    baseName(path),
		Filepath:    path,
		ContentHash: hash,
	}, nil
}
