package utils

import (
	"encoding/base64"
	"strings"
)

const artifactPrefix = "homework_"

// EncodeTitle turns a homework title into a file-name safe token. Titles
// carry CJK text and punctuation, so they are base64url encoded.
func EncodeTitle(title string) string {
	return base64.URLEncoding.EncodeToString([]byte(title))
}

// ArtifactName is the cache file name of one artifact of a homework item,
// e.g. homework_<b64>_text.txt.
func ArtifactName(title, suffix string) string {
	var builder strings.Builder
	builder.Grow(len(artifactPrefix) + base64.URLEncoding.EncodedLen(len(title)) + 1 + len(suffix))
	builder.WriteString(artifactPrefix)
	builder.WriteString(EncodeTitle(title))
	builder.WriteByte('_')
	builder.WriteString(suffix)
	return builder.String()
}
