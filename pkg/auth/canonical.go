// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"bytes"
	"encoding/json"
)

// Canonicalize converts a request body into the exact text that gets signed.
//
// Text bodies (string, []byte, json.RawMessage) are used as-is and a nil body
// becomes the empty string. Any other value is serialized as compact JSON
// without HTML escaping, so maps come out with sorted keys and structs in
// field order. U+2028 and U+2029 are written raw, as JSON.stringify does.
// Signer and verifier must agree on this byte for byte.
func Canonicalize(body any) (string, error) {
	switch b := body.(type) {
	case nil:
		return "", nil
	case string:
		return b, nil
	case []byte:
		return string(b), nil
	case json.RawMessage:
		return string(b), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return "", encodingError(err)
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators turns the encoder's \u2028 and \u2029 escapes back
// into the raw characters. Escaped backslashes are skipped as a pair so that
// literal "\\u2028" text in a string is left alone.
func unescapeLineSeparators(encoded []byte) string {
	if !bytes.Contains(encoded, []byte(`\u202`)) {
		return string(encoded)
	}

	out := make([]byte, 0, len(encoded))
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c != '\\' || i+1 >= len(encoded) {
			out = append(out, c)
			continue
		}
		if rest := encoded[i+1:]; bytes.HasPrefix(rest, []byte("u2028")) || bytes.HasPrefix(rest, []byte("u2029")) {
			if rest[4] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, c, encoded[i+1])
		i++
	}
	return string(out)
}
