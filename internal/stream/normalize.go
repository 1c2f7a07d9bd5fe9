package stream

import (
	"regexp"
	"strings"
)

// ──────────────────── Codec Normalization ────────────────────

// Probe tools surface codec names as free text ("H.264 (High)", "AAC 5.1",
// "DTS-HD MA"). Normalization collapses those into stable family tags so
// the classifier can compare against fixed compatibility sets.

var channelSuffix = regexp.MustCompile(`\s+(\d\.\d|mono|stereo|surround)$`)

// videoFamilies maps squashed codec keys (lower-cased, separators removed)
// to canonical video families.
var videoFamilies = map[string]string{
	"h264": "h264", "x264": "h264", "avc": "h264", "avc1": "h264",
	"hevc": "hevc", "h265": "hevc", "x265": "hevc",
	"vp8": "vp8",
	"vp9": "vp9", "vp09": "vp9",
	"av1": "av1", "av01": "av1",
	"mpeg4": "mpeg4", "xvid": "mpeg4", "divx": "mpeg4",
}

// audioFamilies maps squashed codec keys to canonical audio families.
// HE-AAC folds into aac here; the distinction only matters when building
// codec strings, where the display label is still available.
var audioFamilies = map[string]string{
	"aac": "aac", "aaclc": "aac", "heaac": "aac",
	"ac3": "ac3", "dolbydigital": "ac3",
	"dts":    "dts",
	"dtshd":  "dts-hd", "dtshdma": "dts-hd", "dtsx": "dts-hd",
	"truehd": "truehd", "mlp": "truehd",
	"mp3":    "mp3",
	"opus":   "opus",
	"vorbis": "vorbis",
	"flac":   "flac",
}

// NormalizeVideo canonicalizes a raw video codec name into its family tag.
// Unknown names pass through lower-cased so the classifier can report them.
// Empty input stays empty.
func NormalizeVideo(raw string) string {
	return normalize(raw, videoFamilies)
}

// NormalizeAudio canonicalizes a raw audio codec name into its family tag.
func NormalizeAudio(raw string) string {
	return normalize(raw, audioFamilies)
}

func normalize(raw string, families map[string]string) string {
	stripped := stripAnnotations(raw)
	if stripped == "" {
		return ""
	}
	if family, ok := families[squash(stripped)]; ok {
		return family
	}
	return stripped
}

// stripAnnotations lower-cases and removes the parenthetical profile
// annotation and trailing channel-layout suffix, e.g.
// "H.264 (High)" → "h.264", "AAC 5.1" → "aac".
func stripAnnotations(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for {
		trimmed := channelSuffix.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return s
}

// squash reduces a codec name to a lookup key by dropping separators, so
// "h.264", "h-264" and "h264" all hit the same table entry.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', '_', ' ':
			return -1
		}
		return r
	}, s)
}
