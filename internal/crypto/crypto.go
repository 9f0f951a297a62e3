// Package crypto seals clipboard payloads before they leave the machine.
//
// A 32-byte symmetric key is derived from the shared passphrase with
// HKDF-SHA256, and each payload is encrypted with NaCl secretbox under a
// random nonce:
//
//	[ "CLSN1" ][ 24-byte nonce ][ ciphertext ]
//
// The magic prefix lets a reader tell sealed payloads from plain gzip
// envelopes uploaded by hosts without a passphrase.
package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	magic    = []byte("CLSN1")
	hkdfInfo = []byte("clipson-payload-v1")
)

var (
	// ErrDecrypt is returned when a payload does not open with the key.
	ErrDecrypt = errors.New("crypto: decryption failed (wrong passphrase?)")
	// ErrNotSealed is returned by Open for payloads without the sealed prefix.
	ErrNotSealed = errors.New("crypto: payload is not sealed")
)

// Key is a derived secretbox key.
type Key [keySize]byte

// DeriveKey derives the payload key from a passphrase. Every host sharing a
// remote folder must use the same passphrase.
func DeriveKey(passphrase string) (*Key, error) {
	if passphrase == "" {
		return nil, errors.New("crypto: empty passphrase")
	}
	h := hkdf.New(sha256.New, []byte(passphrase), nil, hkdfInfo)
	var key Key
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// IsSealed reports whether data carries the sealed prefix.
func IsSealed(data []byte) bool { return bytes.HasPrefix(data, magic) }

// Seal encrypts plaintext and returns magic+nonce+ciphertext.
func Seal(plaintext []byte, key *Key) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	out := make([]byte, 0, len(magic)+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, magic...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, (*[keySize]byte)(key)), nil
}

// Open reverses Seal.
func Open(sealed []byte, key *Key) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	body := sealed[len(magic):]
	if len(body) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("crypto: ciphertext too short (%d bytes)", len(body))
	}
	var nonce [nonceSize]byte
	copy(nonce[:], body[:nonceSize])
	plain, ok := secretbox.Open(nil, body[nonceSize:], &nonce, (*[keySize]byte)(key))
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}
