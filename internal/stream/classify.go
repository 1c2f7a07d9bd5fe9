package stream

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mydia/mydia/internal/models"
)

// ──────────────────── Compatibility Classification ────────────────────

// Compatibility is the delivery decision for a file given its technical
// profile: serve bytes untouched, repackage the container, or re-encode.
type Compatibility string

const (
	DirectPlay     Compatibility = "direct_play"
	NeedsRemux     Compatibility = "needs_remux"
	NeedsTranscode Compatibility = "needs_transcode"
)

// Decision is a compatibility verdict plus the human-readable cause. Every
// needs_remux/needs_transcode decision carries a reason so downgrades are
// never silent.
type Decision struct {
	Compatibility Compatibility `json:"compatibility"`
	Reason        string        `json:"reason,omitempty"`
}

// Video codecs browsers decode natively via MSE.
var browserVideoCodecs = map[string]bool{
	"h264": true, "vp9": true, "av1": true, "vp8": true,
}

// Audio codecs browsers decode natively.
var browserAudioCodecs = map[string]bool{
	"aac": true, "mp3": true, "opus": true, "vorbis": true, "flac": true,
}

// Containers browsers play without repackaging.
var directPlayContainers = map[string]bool{
	"mp4": true, "webm": true,
}

// Containers whose streams can be copied into fMP4 without re-encoding.
var remuxableContainers = map[string]bool{
	"mkv": true, "avi": true, "mov": true, "ts": true, "flv": true,
}

// Classify decides how a file must be delivered. Video codec issues take
// precedence over audio, audio over container. Anything unknown or
// unmapped resolves to the conservative needs_transcode so playback never
// silently fails.
func Classify(profile *models.TechnicalProfile, relPath string) Decision {
	video := NormalizeVideo(profile.VideoCodecName())
	if video == "" || !browserVideoCodecs[video] {
		// Reasons carry the raw display label, which is what operators see
		// in probe output.
		name := profile.VideoCodecName()
		if name == "" {
			name = "unknown"
		}
		return Decision{NeedsTranscode, fmt.Sprintf("Incompatible video codec (%s)", name)}
	}

	// Video-only files are direct-playable; only a present audio stream
	// can block playback.
	if profile.AudioCodec != nil {
		audio := NormalizeAudio(profile.AudioCodecName())
		if !browserAudioCodecs[audio] {
			name := profile.AudioCodecName()
			if name == "" {
				name = "unknown"
			}
			return Decision{NeedsTranscode, fmt.Sprintf("Incompatible audio codec (%s)", name)}
		}
	}

	container := ResolveContainer(profile, relPath)
	switch {
	case container == "":
		return Decision{NeedsTranscode, "Container could not be determined"}
	case directPlayContainers[container]:
		return Decision{DirectPlay, ""}
	case remuxableContainers[container]:
		return Decision{NeedsRemux, fmt.Sprintf("Container (%s) requires remuxing to fMP4", container)}
	default:
		return Decision{NeedsTranscode, fmt.Sprintf("Incompatible container (%s)", container)}
	}
}

// ResolveContainer determines the container for a file, in order: the
// explicit container field, the first token of the probe's comma-separated
// format_name (ffprobe reports "mov,mp4,m4a,3gp,3g2,mj2" for MP4 files),
// then the file extension.
func ResolveContainer(profile *models.TechnicalProfile, relPath string) string {
	if profile.Container != nil && *profile.Container != "" {
		return strings.ToLower(*profile.Container)
	}
	if profile.FormatName != nil && *profile.FormatName != "" {
		first, _, _ := strings.Cut(*profile.FormatName, ",")
		if first != "" {
			return strings.ToLower(strings.TrimSpace(first))
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(relPath)), ".")
	return ext
}
