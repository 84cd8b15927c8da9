/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hash

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
)

// SHA256 returns the SHA-256 digest of raw
func SHA256(raw []byte) ([]byte, error) {
	hash := sha256.New()
	n, err := hash.Write(raw)
	if n != len(raw) {
		return nil, errors.Errorf("hash failure")
	}
	if err != nil {
		return nil, err
	}
	return hash.Sum(nil), nil
}

// SHA256Hex returns the hex encoded SHA-256 digest of raw
func SHA256Hex(raw []byte) (string, error) {
	digest, err := SHA256(raw)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(digest), nil
}

// Hashable prints as the base64 SHA-256 digest of its content, for logging payloads without dumping them
type Hashable []byte

func (h Hashable) String() string {
	if len(h) == 0 {
		return ""
	}
	digest := sha256.Sum256(h)
	return base64.StdEncoding.EncodeToString(digest[:])
}
