package stream

import (
	"fmt"
	"strings"

	"github.com/mydia/mydia/internal/models"
)

// ──────────────────── Codec Strings (RFC 6381) ────────────────────

// Clients negotiate format support through MediaSource.isTypeSupported,
// which wants exact codec parameter strings. The builders below take the
// display codec label from the probe ("H.264 (High)", "HEVC (Main 10)")
// plus the raw profile metadata and emit the matching string. An empty
// result means the codec cannot be represented for web delivery and the
// caller must fall back to transcoding.

// H.264 profile_idc values inferred from the display label when the raw
// metadata is missing.
const (
	h264ProfileBaseline = 0x42
	h264ProfileMain     = 0x4d
	h264ProfileHigh     = 0x64
)

// VideoCodecString builds the codec parameter string for a video stream.
func VideoCodecString(label string, p *models.TechnicalProfile) string {
	switch NormalizeVideo(label) {
	case "h264":
		return h264CodecString(label, p)
	case "hevc":
		return hevcCodecString(label, p, "hvc1")
	case "vp9":
		return vp9CodecString(p)
	case "vp8":
		return "vp8"
	case "av1":
		return av1CodecString(p)
	default:
		return ""
	}
}

// VideoCodecVariants returns acceptable alternate strings for the same
// stream, most specific first. HEVC yields both hvc1 and hev1 forms plus
// bare fallbacks, maximizing acceptance when the exact profile/level is
// uncertain.
func VideoCodecVariants(label string, p *models.TechnicalProfile) []string {
	switch NormalizeVideo(label) {
	case "hevc":
		var variants []string
		if s := hevcCodecString(label, p, "hvc1"); s != "hvc1" {
			variants = append(variants, s, hevcCodecString(label, p, "hev1"))
		}
		return append(variants, "hvc1", "hev1")
	default:
		if s := VideoCodecString(label, p); s != "" {
			return []string{s}
		}
		return nil
	}
}

// AudioCodecString builds the codec parameter string for an audio stream.
// DTS and TrueHD families return "" — they are not web-deliverable and
// force the transcode strategy upstream.
func AudioCodecString(label string, p *models.TechnicalProfile) string {
	lower := strings.ToLower(label)
	switch NormalizeAudio(label) {
	case "aac":
		if strings.Contains(lower, "he-aac") || strings.Contains(lower, "heaac") {
			return "mp4a.40.5"
		}
		return "mp4a.40.2"
	case "mp3":
		return "mp4a.40.34"
	case "ac3":
		return "ac-3"
	case "eac3", "e-ac-3":
		return "ec-3"
	case "opus", "vorbis", "flac":
		return NormalizeAudio(label)
	case "dts", "dts-hd", "truehd":
		return ""
	default:
		if strings.Contains(lower, "dd+") || strings.Contains(lower, "eac3") {
			return "ec-3"
		}
		return ""
	}
}

// BuildMime assembles the full MIME type with codecs clause. The clause is
// omitted entirely when no codec string is known, and halved when only one
// side is present.
func BuildMime(container, videoCodec, audioCodec string) string {
	mimeType := containerMimeType(container)
	switch {
	case videoCodec != "" && audioCodec != "":
		return fmt.Sprintf("%s; codecs=\"%s, %s\"", mimeType, videoCodec, audioCodec)
	case videoCodec != "":
		return fmt.Sprintf("%s; codecs=\"%s\"", mimeType, videoCodec)
	case audioCodec != "":
		return fmt.Sprintf("%s; codecs=\"%s\"", mimeType, audioCodec)
	default:
		return mimeType
	}
}

func containerMimeType(container string) string {
	switch strings.ToLower(container) {
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mkv":
		return "video/x-matroska"
	case "ts", "mpegts":
		return "video/mp2t"
	default:
		return "video/" + strings.ToLower(container)
	}
}

// ──────────────────── Per-family builders ────────────────────

// h264CodecString emits avc1.PPCCLL — profile, constraint-set and level
// bytes as lower-case hex. Level defaults track the inferred profile when
// the probe gave no level_idc: High → 4.0, everything else → 3.1.
func h264CodecString(label string, p *models.TechnicalProfile) string {
	profile := h264ProfileFromLabel(label)
	if p.VideoProfileIdc != nil && *p.VideoProfileIdc > 0 {
		profile = *p.VideoProfileIdc
	}

	constraint := 0
	if p.VideoConstraintSet != nil {
		constraint = *p.VideoConstraintSet
	}

	level := 31
	if profile == h264ProfileHigh {
		level = 40
	}
	if p.VideoLevelIdc != nil && *p.VideoLevelIdc > 0 {
		level = *p.VideoLevelIdc
	}

	return fmt.Sprintf("avc1.%02x%02x%02x", profile, constraint, level)
}

func h264ProfileFromLabel(label string) int {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "high"):
		return h264ProfileHigh
	case strings.Contains(lower, "baseline"):
		return h264ProfileBaseline
	default:
		return h264ProfileMain
	}
}

// hevcCodecString emits <prefix>.<profile>.4.<tier><level>.B0. The
// compatibility mask is fixed at 4 (profile space 0, the only value the
// contract pins down) and the trailing constraint byte at B0. Without a
// level_idc there is no defensible byte encoding, so the bare prefix is
// returned instead.
func hevcCodecString(label string, p *models.TechnicalProfile, prefix string) string {
	profile := 1
	if strings.Contains(strings.ToLower(label), "main 10") {
		profile = 2
	}
	if p.HevcProfileIdc != nil && *p.HevcProfileIdc > 0 {
		profile = *p.HevcProfileIdc
	}

	if p.HevcLevelIdc == nil || *p.HevcLevelIdc <= 0 {
		return prefix
	}

	tier := "L"
	if p.HevcTierFlag != nil && *p.HevcTierFlag == 1 {
		tier = "H"
	}

	return fmt.Sprintf("%s.%d.4.%s%d.B0", prefix, profile, tier, *p.HevcLevelIdc)
}

// vp9CodecString emits vp09.PP.LL.DD with the webm baseline
// (profile 0, level 1.0, 8-bit) as defaults.
func vp9CodecString(p *models.TechnicalProfile) string {
	profile := 0
	if p.Vp9Profile != nil {
		profile = *p.Vp9Profile
	}
	level := 10
	if p.Vp9Level != nil && *p.Vp9Level > 0 {
		level = *p.Vp9Level
	}
	return fmt.Sprintf("vp09.%02d.%02d.%02d", profile, level, bitDepth(p))
}

// av1CodecString emits av01.P.LLT.DD where T is the tier letter.
func av1CodecString(p *models.TechnicalProfile) string {
	profile := 0
	if p.Av1Profile != nil {
		profile = *p.Av1Profile
	}
	level := 8
	if p.Av1Level != nil && *p.Av1Level > 0 {
		level = *p.Av1Level
	}
	tier := "M"
	if p.Av1Tier != nil && *p.Av1Tier == 1 {
		tier = "H"
	}
	return fmt.Sprintf("av01.%d.%02d%s.%02d", profile, level, tier, bitDepth(p))
}

func bitDepth(p *models.TechnicalProfile) int {
	if p.BitDepth != nil && *p.BitDepth > 8 {
		return *p.BitDepth
	}
	return 8
}
