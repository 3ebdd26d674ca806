package provider

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePath converts an OS path fragment into the relative,
// forward-slash, NFC-normalized form every FileMetadata.path uses
// (spec.md §3 invariant 3, testable property 7). macOS's HFS+ and the
// Cloud provider's service can each hand back a different Unicode
// normalization of the same filename; comparing raw bytes would read
// that as a spurious change on every sync, so every path is folded to
// NFC before it is ever compared or persisted.
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, "/")
	p = norm.NFC.String(p)

	if p == "" {
		return "", fmt.Errorf("normalize: empty path")
	}

	clean := path.Clean(p)
	if clean == "." {
		return "", fmt.Errorf("normalize: empty path after clean")
	}

	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", fmt.Errorf("normalize: %q escapes provider root", p)
		}
	}

	return clean, nil
}
