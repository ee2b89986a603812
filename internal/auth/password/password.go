// Package password hashes user credentials with Argon2id. The parameters
// are embedded in the encoded hash, so they can be raised later without
// invalidating stored credentials.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

// Hash returns the encoded Argon2id hash stored for a user credential.
func Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks a password against an encoded hash in constant time. Any
// malformed hash verifies as false rather than erroring.
func Verify(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	params, ok := parseParams(parts[3])
	if !ok {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	check := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}

// parseParams decodes the "m=...,t=...,p=..." segment of an encoded hash.
func parseParams(segment string) (hashParams, bool) {
	fields := strings.Split(segment, ",")
	if len(fields) != 3 {
		return hashParams{}, false
	}
	m, okM := strings.CutPrefix(fields[0], "m=")
	t, okT := strings.CutPrefix(fields[1], "t=")
	p, okP := strings.CutPrefix(fields[2], "p=")
	if !okM || !okT || !okP {
		return hashParams{}, false
	}

	memory, errM := strconv.ParseUint(m, 10, 32)
	timeCost, errT := strconv.ParseUint(t, 10, 32)
	threads, errP := strconv.ParseUint(p, 10, 8)
	if errM != nil || errT != nil || errP != nil {
		return hashParams{}, false
	}
	return hashParams{
		memory:  uint32(memory),
		time:    uint32(timeCost),
		threads: uint8(threads),
	}, true
}
