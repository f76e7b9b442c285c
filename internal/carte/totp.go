package carte

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// TOTP parameters matching the provisioned cards: 30 second steps,
// 6 digit codes, HMAC-SHA1 over a base32 seed.
const (
	totpStep   = 30 * time.Second
	totpDigits = 6
	// Cards drift; accept the previous and next step.
	totpSkewSteps = 1
)

// GenerateCode computes the RFC 6238 code for the seed at time t.
func GenerateCode(seed string, t time.Time) (string, error) {
	key, err := decodeSeed(seed)
	if err != nil {
		return "", err
	}
	counter := uint64(t.Unix()) / uint64(totpStep.Seconds())
	return hotp(key, counter), nil
}

// VerifyCode checks a submitted code against the seed, tolerating clock
// skew of one step in either direction.
func VerifyCode(seed, code string, t time.Time) bool {
	key, err := decodeSeed(seed)
	if err != nil {
		return false
	}
	code = strings.TrimSpace(code)
	counter := int64(uint64(t.Unix()) / uint64(totpStep.Seconds()))
	for offset := int64(-totpSkewSteps); offset <= totpSkewSteps; offset++ {
		c := counter + offset
		if c < 0 {
			continue
		}
		expected := hotp(key, uint64(c))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func decodeSeed(seed string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(seed, " ", ""))
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(normalized, "="))
	if err != nil {
		return nil, fmt.Errorf("decode totp seed: %w", err)
	}
	return key, nil
}

func hotp(key []byte, counter uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, value%mod)
}
