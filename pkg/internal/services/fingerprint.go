package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/spf13/viper"
)

const (
	DefaultDigestLength = 16
	minDigestLength     = 8
	maxDigestLength     = sha256.Size * 2
)

// DigestFingerprint turns a voter fingerprint into the value stored in the
// ballot ledger. It is a salted HMAC-SHA256 truncated to
// security.fingerprint_digest_length hex characters; the default 16 keeps 64
// bits, so two distinct voters on one poll only collide with meaningful odds
// once the poll sees billions of voters. A colliding voter is told they already voted.
func DigestFingerprint(fingerprint string) string {
	length := viper.GetInt("security.fingerprint_digest_length")
	if length <= 0 {
		length = DefaultDigestLength
	}
	length = min(max(length, minDigestLength), maxDigestLength)

	h := hmac.New(sha256.New, []byte(viper.GetString("security.fingerprint_salt")))
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))[:length]
}
