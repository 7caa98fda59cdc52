package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Config tunes the Argon2id parameters used for backup code hashing.
type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var argonParams = Argon2Config{
	Memory:      64 * 1024,
	Iterations:  1,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// ConfigureArgon2 overrides the package-wide hashing parameters. Zero-valued
// fields keep their defaults.
func ConfigureArgon2(cfg Argon2Config) error {
	if cfg.Memory > 0 {
		argonParams.Memory = cfg.Memory
	}
	if cfg.Iterations > 0 {
		argonParams.Iterations = cfg.Iterations
	}
	if cfg.Parallelism > 0 {
		argonParams.Parallelism = cfg.Parallelism
	}
	if cfg.SaltLength > 0 {
		if cfg.SaltLength < 8 {
			return fmt.Errorf("salt length %d is below the minimum of 8", cfg.SaltLength)
		}
		argonParams.SaltLength = cfg.SaltLength
	}
	if cfg.KeyLength > 0 {
		if cfg.KeyLength < 16 {
			return fmt.Errorf("key length %d is below the minimum of 16", cfg.KeyLength)
		}
		argonParams.KeyLength = cfg.KeyLength
	}
	return nil
}

// GenerateBackupCodes returns count fresh recovery codes, each byteLen random
// bytes rendered as lowercase hex.
func GenerateBackupCodes(count, byteLen int) ([]string, error) {
	if count <= 0 || byteLen <= 0 {
		return nil, fmt.Errorf("count and byte length must be positive")
	}

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, byteLen)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		codes = append(codes, hex.EncodeToString(buf))
	}

	return codes, nil
}

// HashBackupCode generates an Argon2id hash for the provided code.
// The resulting string is encoded as "salt:hash" with both components base64-encoded.
func HashBackupCode(code string) (string, error) {
	salt := make([]byte, argonParams.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(code), salt, argonParams.Iterations, argonParams.Memory, argonParams.Parallelism, argonParams.KeyLength)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)
	encodedHash := base64.StdEncoding.EncodeToString(hash)

	return fmt.Sprintf("%s:%s", encodedSalt, encodedHash), nil
}

// VerifyBackupCode compares the provided code against a stored Argon2id hash.
// Malformed stored hashes verify as false rather than erroring so a corrupt
// row cannot be used as an oracle.
func VerifyBackupCode(code, encoded string) bool {
	if code == "" || encoded == "" {
		return false
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	storedHash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(code), salt, argonParams.Iterations, argonParams.Memory, argonParams.Parallelism, uint32(len(storedHash)))

	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}
