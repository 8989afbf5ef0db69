// Package password hashes and verifies user passwords with scrypt.
//
// Stored hashes have the form hex(salt):hex(key). The hex text of the salt,
// not its raw bytes, is fed to the KDF; hashes written by earlier
// deployments of the course platform use the same convention and keep
// verifying.
//
// This package never stores, logs or returns plaintext passwords.
package password

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/coursesms/courses/internal/common"
	"golang.org/x/crypto/scrypt"
)

const separator = ":"

// dummySalt is used by DummyVerify so a lookup miss costs one derivation.
const dummySalt = "00000000000000000000000000000000"

// Config holds the scrypt cost parameters.
type Config struct {
	N       int
	R       int
	P       int
	KeyLen  int
	SaltLen int
}

// DefaultConfig returns N=16384, r=8, p=1 with a 64-byte key and a
// 16-byte salt.
func DefaultConfig() Config {
	return Config{N: 16384, R: 8, P: 1, KeyLen: 64, SaltLen: 16}
}

// Hasher is safe for concurrent use.
type Hasher struct {
	cfg Config
}

func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.N <= 1 || cfg.N&(cfg.N-1) != 0 {
		return nil, errors.New("scrypt N must be a power of two greater than 1")
	}
	if cfg.R <= 0 || cfg.P <= 0 {
		return nil, errors.New("scrypt r and p must be positive")
	}
	if cfg.KeyLen < 16 {
		return nil, errors.New("key length must be >= 16")
	}
	if cfg.SaltLen < 16 {
		return nil, errors.New("salt length must be >= 16")
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash derives a key from password under a fresh random salt and returns
// "saltHex:keyHex". It fails only if the random source fails.
func (h *Hasher) Hash(password string) (string, error) {
	salt, err := common.MakeRandHexString(h.cfg.SaltLen)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key, err := h.derive(password, salt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	return salt + separator + hex.EncodeToString(key), nil
}

// Verify reports whether password matches stored. Malformed stored values
// yield false.
func (h *Hasher) Verify(password, stored string) bool {
	salt, keyHex, ok := strings.Cut(stored, separator)
	if !ok || salt == "" || keyHex == "" {
		return false
	}

	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != h.cfg.KeyLen {
		return false
	}

	got, err := h.derive(password, salt)
	if err != nil {
		return false
	}
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1
}

// DummyVerify runs one derivation and discards the result.
func (h *Hasher) DummyVerify(password string) {
	key, err := h.derive(password, dummySalt)
	if err == nil {
		common.WipeByteArray(key)
	}
}

func (h *Hasher) derive(password, salt string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), h.cfg.N, h.cfg.R, h.cfg.P, h.cfg.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}
