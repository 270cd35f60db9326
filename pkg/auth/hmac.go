// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ComputeHMAC returns the standard base64 encoding of HMAC-SHA256(message, key).
func ComputeHMAC(message, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	// hash.Hash writes never fail.
	_, _ = mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// BodyDigest canonicalizes body and signs it on its own. It is the inner
// layer of the two-layer signature.
func BodyDigest(body any, key string) (string, error) {
	canonical, err := Canonicalize(body)
	if err != nil {
		return "", err
	}
	return ComputeHMAC(canonical, key), nil
}

// envelopeSignature signs bucket ++ path ++ bodyDigest with no separators.
func envelopeSignature(bucket Bucket, path, bodyDigest, key string) string {
	return ComputeHMAC(bucket.String()+path+bodyDigest, key)
}

// equalSignatures compares two encoded signatures in constant time.
func equalSignatures(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
