package utils

import (
	"crypto/cipher"
	"crypto/des" //nolint:gosec // interop with the product's legacy at-rest format
	"encoding/base64"
	"fmt"
)

// EncodeText encrypts text with Triple DES in ECB mode using key as the
// encryption salt and returns the result base64-encoded. This is the
// reversible at-rest format shared with the server components; it is not
// meant to protect against offline attacks, only to keep credentials out
// of plain-text configuration.
//
// The key must be 16 or 24 characters long (the product generates
// 24-character salts).
func EncodeText(text, key string) (string, error) {
	block, err := tripleDESCipher(key)
	if err != nil {
		return "", err
	}

	plain := pkcs5Pad([]byte(text), block.BlockSize())
	encrypted := make([]byte, len(plain))
	for i := 0; i < len(plain); i += block.BlockSize() {
		block.Encrypt(encrypted[i:], plain[i:])
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecodeText reverses EncodeText, returning the plain text for a
// base64-encoded Triple DES payload encrypted with the same key.
func DecodeText(encoded, key string) (string, error) {
	block, err := tripleDESCipher(key)
	if err != nil {
		return "", err
	}

	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed base64 payload: %w", err)
	}
	if len(encrypted) == 0 || len(encrypted)%block.BlockSize() != 0 {
		return "", fmt.Errorf("payload length %d is not a multiple of the cipher block size", len(encrypted))
	}

	plain := make([]byte, len(encrypted))
	for i := 0; i < len(encrypted); i += block.BlockSize() {
		block.Decrypt(plain[i:], encrypted[i:])
	}

	unpadded, err := pkcs5Unpad(plain, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// tripleDESCipher builds a Triple DES block cipher from a 16 or 24
// character salt. A 16-character salt reuses its first 8 characters as
// the third subkey (two-key Triple DES), matching the legacy behavior.
func tripleDESCipher(key string) (cipher.Block, error) {
	k := []byte(key)
	switch len(k) {
	case 24:
	case 16:
		k = append(k, k[:8]...)
	default:
		return nil, fmt.Errorf("encryption key must be 16 or 24 characters, got %d", len(key))
	}
	return des.NewTripleDESCipher(k)
}

func pkcs5Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs5Unpad(data []byte, blockSize int) ([]byte, error) {
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
