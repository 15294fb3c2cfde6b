package leaderboard

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/yanizio/gtmskills/internal/apperr"
	"github.com/yanizio/gtmskills/internal/requestinfo"
)

// FingerprintHeader carries a client-computed voter fingerprint.
const FingerprintHeader = "X-Fingerprint"

// maxFingerprint matches the prompt_votes.voter_fingerprint column.
const maxFingerprint = 128

// Fingerprint identifies an anonymous voter.  A client-supplied header wins;
// otherwise the value is derived from request signals.  It is an anti-spam
// heuristic: distinct users with identical browsers collide, and one user
// changes identity by switching browsers.
func Fingerprint(r *http.Request) (string, error) {
	if fp := strings.TrimSpace(r.Header.Get(FingerprintHeader)); fp != "" {
		if len(fp) > maxFingerprint {
			return "", &apperr.ValidationError{
				Summary: "X-Fingerprint is too long",
				Fields:  []apperr.Field{{Name: FingerprintHeader, Message: "must be at most 128 characters"}},
			}
		}
		return fp, nil
	}

	info := requestinfo.FromContext(r.Context())
	if info == nil {
		info = requestinfo.Parse(r)
	}
	return DeriveFingerprint(info), nil
}

// DeriveFingerprint folds the normalised user agent, primary language,
// screen geometry, and timezone offset into a short "fp-" token.  Only the
// browser major version enters the hash, so routine patch updates keep the
// same identity.
func DeriveFingerprint(info *requestinfo.RequestInfo) string {
	parts := []string{
		info.UA.Family(),
		info.PrimaryLang,
		info.Hints.Screen,
		info.Hints.TimezoneOffset,
	}
	return "fp-" + strconv.FormatUint(uint64(foldHash(strings.Join(parts, "|"))), 36)
}

// foldHash is the 31-multiplier string hash reduced to a non-negative
// 32-bit value.
func foldHash(s string) uint32 {
	var h int32
	for _, c := range s {
		h = h*31 + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}
