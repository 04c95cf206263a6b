package vote

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const nonceBytes = 16

// NewNonce returns 16 random bytes, hex encoded.
func NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ComputeHash derives the vote hash from the voter, project, cast time
// (nanosecond precision) and nonce.
func ComputeHash(voterID, projectID string, castAt time.Time, nonce string) string {
	h := sha256.New()
	for _, part := range []string{voterID, projectID, strconv.FormatInt(castAt.UnixNano(), 10), nonce} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether the stored hash matches the vote's inputs.
func Verify(v *Vote) bool {
	return v.VoteHash == ComputeHash(v.VoterID, v.ProjectID, v.CastAt, v.Nonce)
}
