package main

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// parseHex parses bytes written as hex. Tokens may be separated by spaces,
// commas or colons and may carry a 0x prefix; a single-digit token is one
// byte. Unseparated runs such as "1070a6" are split into pairs.
func parseHex(s string) ([]byte, error) {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ':' || r == '\t' || r == '\n' || r == '\r'
	})

	var out []byte
	for _, tok := range tokens {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		if len(tok) == 1 {
			tok = "0" + tok
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q: %w", tok, err)
		}
		out = append(out, b...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bytes given")
	}
	return out, nil
}

// formatHex renders bytes as space-separated lowercase hex.
func formatHex(b []byte) string {
	return fmt.Sprintf("% x", b)
}
