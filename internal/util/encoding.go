package util

import (
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCredential trims surrounding whitespace and applies NFKC so that
// visually identical input typed on different keyboards compares equal.
func NormalizeCredential(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimSpace(s))
}
