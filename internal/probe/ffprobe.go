package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mydia/mydia/internal/models"
)

// ──────────────────── FFprobe ────────────────────

// FFprobe wraps the external probing tool. Its structured JSON output is
// the only upstream data contract the delivery core depends on.
type FFprobe struct{ Path string }

func New(path string) *FFprobe { return &FFprobe{Path: path} }

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType        string         `json:"codec_type"`
	CodecName        string         `json:"codec_name"`
	Profile          string         `json:"profile"`
	Level            int            `json:"level"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	PixFmt           string         `json:"pix_fmt"`
	BitsPerRawSample string         `json:"bits_per_raw_sample"`
	ColorTransfer    string         `json:"color_transfer"`
	ChannelLayout    string         `json:"channel_layout"`
	SideDataList     []sideDataItem `json:"side_data_list"`
}

type sideDataItem struct {
	SideDataType string `json:"side_data_type"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

// Probe runs ffprobe against a file and maps its output onto a technical
// profile. The first video and first audio stream win, matching what the
// player will pick by default.
func (f *FFprobe) Probe(ctx context.Context, filePath string) (*models.TechnicalProfile, error) {
	cmd := exec.CommandContext(ctx, f.Path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}
	return ParseOutput(out)
}

// ParseOutput maps raw ffprobe JSON onto a TechnicalProfile.
func ParseOutput(raw []byte) (*models.TechnicalProfile, error) {
	var data probeOutput
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	profile := &models.TechnicalProfile{}

	if data.Format.FormatName != "" {
		profile.FormatName = strPtr(data.Format.FormatName)
	}
	if data.Format.Duration != "" {
		if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
			profile.Duration = &d
		}
	}
	if data.Format.BitRate != "" {
		if b, err := strconv.Atoi(data.Format.BitRate); err == nil {
			profile.Bitrate = &b
		}
	}

	var haveVideo, haveAudio bool
	for _, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if haveVideo {
				continue
			}
			haveVideo = true
			mapVideoStream(profile, s)
		case "audio":
			if haveAudio {
				continue
			}
			haveAudio = true
			profile.AudioCodec = strPtr(displayName(s.CodecName, s.Profile, s.ChannelLayout))
		}
	}

	return profile, nil
}

func mapVideoStream(profile *models.TechnicalProfile, s probeStream) {
	profile.VideoCodec = strPtr(displayName(s.CodecName, s.Profile, ""))
	if s.Width > 0 {
		profile.Width = &s.Width
	}
	if s.Height > 0 {
		profile.Height = &s.Height
	}
	if label := resolutionLabel(s.Width, s.Height); label != "" {
		profile.Resolution = &label
	}
	if depth := bitDepth(s); depth > 0 {
		profile.BitDepth = &depth
	}
	if hdr := hdrFormat(s); hdr != "" {
		profile.HDRFormat = &hdr
	}

	switch strings.ToLower(s.CodecName) {
	case "h264":
		if idc := h264ProfileIdc(s.Profile); idc > 0 {
			profile.VideoProfileIdc = &idc
		}
		if s.Level > 0 {
			level := s.Level
			profile.VideoLevelIdc = &level
		}
	case "hevc", "h265":
		idc := 1
		if strings.Contains(strings.ToLower(s.Profile), "main 10") {
			idc = 2
		}
		profile.HevcProfileIdc = &idc
		if s.Level > 0 {
			level := s.Level
			profile.HevcLevelIdc = &level
		}
		tier := 0
		profile.HevcTierFlag = &tier
	case "vp9":
		if idc := trailingDigit(s.Profile); idc >= 0 {
			profile.Vp9Profile = &idc
		}
		if s.Level > 0 {
			level := s.Level
			profile.Vp9Level = &level
		}
	case "av1":
		if idc := av1ProfileIdc(s.Profile); idc >= 0 {
			profile.Av1Profile = &idc
		}
		if s.Level > 0 {
			level := s.Level
			profile.Av1Level = &level
		}
	}
}

// displayName composes the codec label the way the probing collaborator
// surfaces it: canonical name plus parenthetical profile, e.g.
// "H.264 (High)", "HEVC (Main 10)", "DTS-HD MA".
func displayName(codecName, profile, channelLayout string) string {
	name := codecName
	switch strings.ToLower(codecName) {
	case "h264":
		name = "H.264"
	case "hevc", "h265":
		name = "HEVC"
	case "vp9":
		name = "VP9"
	case "vp8":
		name = "VP8"
	case "av1":
		name = "AV1"
	case "aac":
		name = "AAC"
	case "ac3":
		name = "AC3"
	case "eac3":
		name = "EAC3"
	case "truehd":
		name = "TrueHD"
	case "dts":
		if p := strings.ToLower(profile); strings.Contains(p, "ma") {
			return "DTS-HD MA"
		} else if strings.Contains(p, "dts:x") || strings.Contains(p, "dts-x") {
			return "DTS-X"
		}
		return "DTS"
	}
	if profile != "" && isVideoProfileLabel(profile) {
		return fmt.Sprintf("%s (%s)", name, profile)
	}
	return name
}

// isVideoProfileLabel filters out ffprobe audio "profiles" like "LC" that
// should not be rendered parenthetically — except HE-AAC, which the codec
// string builder needs to see.
func isVideoProfileLabel(profile string) bool {
	switch strings.ToLower(profile) {
	case "lc", "unknown", "":
		return false
	default:
		return true
	}
}

func h264ProfileIdc(profile string) int {
	switch strings.ToLower(profile) {
	case "baseline", "constrained baseline":
		return 66
	case "main":
		return 77
	case "high":
		return 100
	case "high 10":
		return 110
	default:
		return 0
	}
}

func av1ProfileIdc(profile string) int {
	switch strings.ToLower(profile) {
	case "main":
		return 0
	case "high":
		return 1
	case "professional":
		return 2
	default:
		return -1
	}
}

// trailingDigit extracts N from labels like "Profile 2"; -1 when absent.
func trailingDigit(profile string) int {
	fields := strings.Fields(profile)
	if len(fields) == 0 {
		return -1
	}
	if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
		return n
	}
	return -1
}

func bitDepth(s probeStream) int {
	if s.BitsPerRawSample != "" {
		if d, err := strconv.Atoi(s.BitsPerRawSample); err == nil {
			return d
		}
	}
	if strings.Contains(s.PixFmt, "10le") || strings.Contains(s.PixFmt, "10be") {
		return 10
	}
	if s.PixFmt != "" {
		return 8
	}
	return 0
}

func hdrFormat(s probeStream) string {
	for _, sd := range s.SideDataList {
		if strings.Contains(strings.ToLower(sd.SideDataType), "dovi") {
			return "Dolby Vision"
		}
	}
	switch s.ColorTransfer {
	case "smpte2084":
		return "HDR10"
	case "arib-std-b67":
		return "HLG"
	}
	return ""
}

// resolutionLabel classifies dimensions with letterbox tolerance; slightly
// cropped content (1920x1036) still counts as 1080p.
func resolutionLabel(width, height int) string {
	switch {
	case height >= 2160 || width >= 3840:
		return "4K"
	case height >= 900 || width >= 1800:
		return "1080p"
	case height >= 600 || width >= 1200:
		return "720p"
	case height >= 400:
		return "480p"
	case height > 0:
		return "SD"
	default:
		return ""
	}
}

func strPtr(s string) *string { return &s }
