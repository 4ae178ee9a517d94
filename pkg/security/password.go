// Package security hashes dashboard operator passwords with Argon2id.
//
// Hashes use the PHC string layout so parameters travel with each hash:
//
//	$argon2id$v=19$m=<memoryKB>,t=<passes>,p=<threads>$<salt>$<key>
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
)

// ErrInvalidHash is returned for strings that are not Argon2id PHC hashes.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// Params are the Argon2id cost settings embedded into a hash.
type Params struct {
	MemoryKB uint32
	Passes   uint32
	Threads  uint8
	SaltLen  uint32
	KeyLen   uint32
}

// ParamsFromConfig clamps the configured costs into a range argon2 accepts.
func ParamsFromConfig(cfg config.PasswordConfig) Params {
	return Params{
		MemoryKB: uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
		Passes:   uint32(bounded(cfg.ArgonTime, 1, 10)),
		Threads:  uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:  uint32(bounded(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:   uint32(bounded(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (p Params) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Passes, p.MemoryKB, p.Threads, p.KeyLen)
}

// HashPassword derives a fresh salted hash for password.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := ParamsFromConfig(cfg)
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKB, p.Passes, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(p.derive(password, salt)),
	), nil
}

// VerifyPassword reports whether password produces the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, p.derive(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the
// configured ones. Login uses it to upgrade stored hashes after a config change.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	p, _, _, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want := ParamsFromConfig(cfg)
	return p.MemoryKB != want.MemoryKB ||
		p.Passes != want.Passes ||
		p.Threads != want.Threads ||
		p.KeyLen != want.KeyLen
}

func parseHash(encoded string) (Params, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var p Params
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Passes, &p.Threads); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if p.MemoryKB == 0 || p.Passes == 0 || p.Threads == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
