package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// EpochSeconds is the token rotation unit. A new bearer token becomes valid
// every EpochSeconds seconds and the previous one stays valid for one more
// window to tolerate clock skew across the boundary.
const EpochSeconds = 15

// Codec derives the currently valid bearer tokens from a SeedStore.
type Codec struct {
	Store *SeedStore

	// Clock is overridable for tests; nil means time.Now.
	Clock func() time.Time
}

// NewCodec wraps the given store with the real clock.
func NewCodec(store *SeedStore) *Codec {
	return &Codec{Store: store}
}

func (c *Codec) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Epoch returns the rotation epoch for the given instant.
func Epoch(t time.Time) int64 {
	return t.Unix() / EpochSeconds
}

// Token computes the bearer token for one epoch: the six 6-digit codes
// concatenated and base64-encoded.
func (c *Codec) Token(epoch int64) (string, error) {
	var codes strings.Builder
	for i := 0; i < SeedCount; i++ {
		seed, err := c.Store.Seed(i)
		if err != nil {
			return "", err
		}
		codes.WriteString(code(seed, epoch))
	}
	return base64.StdEncoding.EncodeToString([]byte(codes.String())), nil
}

// ValidTokens returns the two acceptable bearer tokens at the given instant:
// the token for the current epoch and for the immediately preceding one.
func (c *Codec) ValidTokens(now time.Time) (prev, curr string, err error) {
	e := Epoch(now)
	if prev, err = c.Token(e - 1); err != nil {
		return "", "", err
	}
	if curr, err = c.Token(e); err != nil {
		return "", "", err
	}
	return prev, curr, nil
}

// Matches reports whether the presented token equals either currently valid
// token. Any store failure fails closed.
func (c *Codec) Matches(presented string) bool {
	prev, curr, err := c.ValidTokens(c.now())
	if err != nil {
		return false
	}
	return presented == prev || presented == curr
}

// code derives one 6-digit decimal code from a seed and an epoch:
// HMAC-SHA256(seed, bigendian(epoch)), first four digest bytes as a
// big-endian unsigned integer, mod 1e6, zero-padded.
func code(seed []byte, epoch int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(epoch))

	mac := hmac.New(sha256.New, seed)
	mac.Write(msg[:])
	digest := mac.Sum(nil)

	n := binary.BigEndian.Uint32(digest[:4]) % 1_000_000
	return fmt.Sprintf("%06d", n)
}
