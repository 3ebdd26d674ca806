// Package hasher streams files through SHA-256 (the engine's canonical
// strong hash) or MD5 (the hash the Cloud provider's service exposes) and
// returns lowercase hex digests, per spec.md §4.2.
package hasher

import (
	"bufio"
	"crypto/md5" //nolint:gosec // required to match the Cloud provider's advertised checksum, not for security
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// bufferSize matches spec.md §4.2: "8 KiB at a time".
const bufferSize = 8 * 1024

// SHA256File streams fsPath through a buffered reader into a SHA-256
// accumulator and returns the lowercase hex digest.
func SHA256File(fsPath string) (string, error) {
	return hashFile(fsPath, sha256.New())
}

// MD5File streams fsPath through a buffered reader into an MD5
// accumulator. Used only for verifying the Cloud provider's integrity
// hash, which is MD5 because that is what the service stores.
func MD5File(fsPath string) (string, error) {
	return hashFile(fsPath, md5.New()) //nolint:gosec
}

func hashFile(fsPath string, h hash.Hash) (string, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return "", fmt.Errorf("hasher: opening %s: %w", fsPath, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, bufferSize)
	if _, err := io.CopyBuffer(h, r, make([]byte, bufferSize)); err != nil {
		return "", fmt.Errorf("hasher: reading %s: %w", fsPath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Bytes hashes an in-memory buffer. Only tests call it; the
// providers hash files through SHA256File.
func SHA256Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyFileHash reports whether fsPath's SHA-256 digest matches expected.
// Comparison is case-insensitive per spec.md §3 invariant 5.
func VerifyFileHash(fsPath, expected string) (bool, error) {
	actual, err := SHA256File(fsPath)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(actual, expected), nil
}

// VerifyFileMD5 reports whether fsPath's MD5 digest matches expected,
// case-insensitively. Used after a Cloud download, per spec.md §4.1.
func VerifyFileMD5(fsPath, expected string) (bool, error) {
	actual, err := MD5File(fsPath)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(actual, expected), nil
}
