package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/arklim/account-service/internal/core/port"
)

const argon2Prefix = "argon2id$v=19$"

var (
	errMalformedHash = errors.New("argon2: malformed encoded hash")
	errWeakParams    = errors.New("argon2: parameters below minimum")
)

var b64 = base64.RawStdEncoding

// encodedHash is the parsed form of argon2id$v=19$m=..,t=..,p=..$salt$key.
type encodedHash struct {
	params port.Argon2Params
	salt   []byte
	key    []byte
}

func (e encodedHash) String() string {
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		e.params.Memory, e.params.Iterations, e.params.Parallelism,
		b64.EncodeToString(e.salt), b64.EncodeToString(e.key),
	)
}

func parseEncodedHash(s string) (encodedHash, error) {
	rest, ok := strings.CutPrefix(s, argon2Prefix)
	if !ok {
		return encodedHash{}, fmt.Errorf("%w: expected %q prefix", errMalformedHash, argon2Prefix)
	}

	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return encodedHash{}, errMalformedHash
	}

	var h encodedHash
	var trailing string
	n, _ := fmt.Sscanf(fields[0], "m=%d,t=%d,p=%d%s", &h.params.Memory, &h.params.Iterations, &h.params.Parallelism, &trailing)
	if n != 3 {
		return encodedHash{}, fmt.Errorf("%w: bad parameter segment %q", errMalformedHash, fields[0])
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[1]); err != nil {
		return encodedHash{}, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}
	if h.key, err = b64.DecodeString(fields[2]); err != nil {
		return encodedHash{}, fmt.Errorf("%w: key: %w", errMalformedHash, err)
	}
	h.params.SaltLength = uint32(len(h.salt))
	h.params.KeyLength = uint32(len(h.key))

	if err := checkParams(h.params); err != nil {
		return encodedHash{}, err
	}
	return h, nil
}

func checkParams(p port.Argon2Params) error {
	switch {
	case p.Memory < 8*1024:
		return fmt.Errorf("%w: memory %d KiB < 8192", errWeakParams, p.Memory)
	case p.Iterations < 1:
		return fmt.Errorf("%w: zero iterations", errWeakParams)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: zero parallelism", errWeakParams)
	case p.SaltLength < 8:
		return fmt.Errorf("%w: salt %d bytes < 8", errWeakParams, p.SaltLength)
	case p.KeyLength < 16:
		return fmt.Errorf("%w: key %d bytes < 16", errWeakParams, p.KeyLength)
	}
	return nil
}

// Argon2Hasher implements port.PasswordHasher with Argon2id. Hashes carry
// their own parameters so Verify keeps working after the settings change.
type Argon2Hasher struct {
	params port.Argon2Params
}

func NewArgon2Hasher(params port.Argon2Params) (*Argon2Hasher, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}
	return &Argon2Hasher{params: params}, nil
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: read salt: %w", err)
	}

	return encodedHash{
		params: h.params,
		salt:   salt,
		key:    derive(password, salt, h.params),
	}.String(), nil
}

// Verify reports whether password matches encoded. Empty inputs never match.
func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	stored, err := parseEncodedHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := derive(password, stored.salt, stored.params)
	return subtle.ConstantTimeCompare(candidate, stored.key) == 1, nil
}

func derive(password string, salt []byte, p port.Argon2Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

var _ port.PasswordHasher = (*Argon2Hasher)(nil)
