package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVideo(t *testing.T) {
	cases := map[string]string{
		"h264":           "h264",
		"H264":           "h264",
		"H.264":          "h264",
		"H.264 (High)":   "h264",
		"x264":           "h264",
		"AVC":            "h264",
		"avc1":           "h264",
		"hevc":           "hevc",
		"HEVC (Main 10)": "hevc",
		"h265":           "hevc",
		"x.265":          "hevc",
		"VP9":            "vp9",
		"vp09":           "vp9",
		"AV1":            "av1",
		"av01":           "av1",
		"XviD":           "mpeg4",
		"DivX":           "mpeg4",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeVideo(raw), "raw=%q", raw)
	}
}

func TestNormalizeVideoUnknownPassesThroughLowercased(t *testing.T) {
	assert.Equal(t, "prores", NormalizeVideo("ProRes"))
	assert.Equal(t, "vc1", NormalizeVideo("VC1"))
}

func TestNormalizeVideoEmpty(t *testing.T) {
	assert.Equal(t, "", NormalizeVideo(""))
	assert.Equal(t, "", NormalizeVideo("   "))
}

func TestNormalizeAudio(t *testing.T) {
	cases := map[string]string{
		"aac":           "aac",
		"AAC 5.1":       "aac",
		"AAC Stereo":    "aac",
		"HE-AAC":        "aac",
		"AAC-LC":        "aac",
		"AC3":           "ac3",
		"ac-3":          "ac3",
		"Dolby Digital": "ac3",
		"DTS":           "dts",
		"DTS-HD":        "dts-hd",
		"DTS-HD MA 7.1": "dts-hd",
		"DTS-X":         "dts-hd",
		"TrueHD":        "truehd",
		"MLP":           "truehd",
		"mp3":           "mp3",
		"Opus":          "opus",
		"Vorbis":        "vorbis",
		"FLAC":          "flac",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeAudio(raw), "raw=%q", raw)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, raw := range []string{"H.264 (High)", "x264", "HEVC (Main 10)", "AAC 5.1", "DTS-HD MA 7.1"} {
		once := NormalizeVideo(raw)
		assert.Equal(t, once, NormalizeVideo(once), "video raw=%q", raw)
		onceA := NormalizeAudio(raw)
		assert.Equal(t, onceA, NormalizeAudio(onceA), "audio raw=%q", raw)
	}
}

func TestNormalizeVariantsAgree(t *testing.T) {
	// Every alias of a family maps to the same tag regardless of case or
	// annotation placement.
	assert.Equal(t, NormalizeVideo("x264"), NormalizeVideo("H.264"))
	assert.Equal(t, NormalizeVideo("H.264 (High)"), NormalizeVideo("h264"))
	assert.Equal(t, NormalizeAudio("aac"), NormalizeAudio("AAC 5.1"))
}
