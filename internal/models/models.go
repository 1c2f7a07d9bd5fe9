package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Media File ────────────────────

// MediaFile is a stored file in a library plus the technical facts the
// probing tool extracted from it. Probe fields are nil until the file
// has been probed.
type MediaFile struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Path      string     `json:"path" db:"path"`
	SizeBytes *int64     `json:"size_bytes,omitempty" db:"size_bytes"`
	ProbedAt  *time.Time `json:"probed_at,omitempty" db:"probed_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`

	Technical TechnicalProfile `json:"technical"`
}

// ──────────────────── Technical Profile ────────────────────

// TechnicalProfile holds the container/codec/resolution facts extracted
// from a file by ffprobe. It is created once per probe and never mutated;
// the delivery core reads it to decide how the file can be played.
type TechnicalProfile struct {
	Container  *string `json:"container,omitempty" db:"container"`
	FormatName *string `json:"format_name,omitempty" db:"format_name"`

	// Display codec names as surfaced by the probe, e.g. "H.264 (High)".
	VideoCodec *string `json:"video_codec,omitempty" db:"video_codec"`
	AudioCodec *string `json:"audio_codec,omitempty" db:"audio_codec"`

	// Raw profile/level metadata used for codec-string generation.
	VideoProfileIdc    *int `json:"video_profile_idc,omitempty" db:"video_profile_idc"`
	VideoLevelIdc      *int `json:"video_level_idc,omitempty" db:"video_level_idc"`
	VideoConstraintSet *int `json:"video_constraint_set,omitempty" db:"video_constraint_set"`
	HevcProfileIdc     *int `json:"hevc_profile_idc,omitempty" db:"hevc_profile_idc"`
	HevcLevelIdc       *int `json:"hevc_level_idc,omitempty" db:"hevc_level_idc"`
	HevcTierFlag       *int `json:"hevc_tier_flag,omitempty" db:"hevc_tier_flag"`
	Vp9Profile         *int `json:"vp9_profile,omitempty" db:"vp9_profile"`
	Vp9Level           *int `json:"vp9_level,omitempty" db:"vp9_level"`
	Av1Profile         *int `json:"av1_profile,omitempty" db:"av1_profile"`
	Av1Level           *int `json:"av1_level,omitempty" db:"av1_level"`
	Av1Tier            *int `json:"av1_tier,omitempty" db:"av1_tier"`
	BitDepth           *int `json:"bit_depth,omitempty" db:"bit_depth"`

	Duration   *float64 `json:"duration,omitempty" db:"duration"`
	Width      *int     `json:"width,omitempty" db:"width"`
	Height     *int     `json:"height,omitempty" db:"height"`
	Bitrate    *int     `json:"bitrate,omitempty" db:"bitrate"`
	Resolution *string  `json:"resolution,omitempty" db:"resolution"`
	HDRFormat  *string  `json:"hdr_format,omitempty" db:"hdr_format"`
}

// VideoCodecName returns the display video codec or "" when absent.
func (p *TechnicalProfile) VideoCodecName() string {
	if p.VideoCodec == nil {
		return ""
	}
	return *p.VideoCodec
}

// AudioCodecName returns the display audio codec or "" when absent.
func (p *TechnicalProfile) AudioCodecName() string {
	if p.AudioCodec == nil {
		return ""
	}
	return *p.AudioCodec
}
