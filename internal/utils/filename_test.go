package utils

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		title  string
		suffix string
		want   string
	}{
		{"Unit 1", "text.txt", "homework_VW5pdCAx_text.txt"},
		{"", "audio.mp3", "homework__audio.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := ArtifactName(tt.title, tt.suffix); got != tt.want {
				t.Errorf("ArtifactName(%q, %q) = %q, want %q", tt.title, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestEncodeTitleIsPathSafe(t *testing.T) {
	title := "第一单元 / 听力?"
	got := EncodeTitle(title)
	if strings.ContainsAny(got, `/\?`) {
		t.Fatalf("EncodeTitle(%q) = %q contains path separators", title, got)
	}
	decoded, err := base64.URLEncoding.DecodeString(got)
	if err != nil || string(decoded) != title {
		t.Fatalf("round trip failed: %q, %v", decoded, err)
	}
}
