package auth

import (
	"crypto/md5"
	"encoding/hex"
)

// passwordDigest returns the lowercase MD5 hex digest the portal expects.
func passwordDigest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
