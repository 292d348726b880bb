// Package privacy derives the salted identifiers used in logs and
// rate-limit keys. Raw email addresses and IPs never leave the request
// handler; everything downstream sees a hash.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefixLen = 12

// Hash returns the lowercase hex SHA-256 of value mixed with salt.
func Hash(value, salt string) string {
	sum := sha256.Sum256([]byte(value + ":" + salt))
	return hex.EncodeToString(sum[:])
}

// HashPrefix returns a short hash suitable for log correlation without
// making the full digest greppable across systems.
func HashPrefix(value, salt string) string {
	return Hash(value, salt)[:prefixLen]
}

// ClientKey derives a rate-limit key for a request. The client IP is
// preferred; when the IP is unavailable a truncated user agent stands in so
// the limiter still has something to count against.
func ClientKey(ip, userAgent, salt string) string {
	if strings.TrimSpace(ip) != "" {
		return "ip:" + Hash(ip, salt)
	}
	ua := strings.TrimSpace(userAgent)
	if len(ua) > 64 {
		ua = ua[:64]
	}
	if ua == "" {
		ua = "unknown"
	}
	return "ua:" + Hash(ua, salt)
}
