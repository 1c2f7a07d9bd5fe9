package stream

import (
	"fmt"
	"net/url"

	"github.com/mydia/mydia/internal/models"
)

// ──────────────────── Strategies ────────────────────

// Strategy is the delivery strategy vocabulary shared between server and
// client. Wire strings are canonical; unknown values must be rejected at
// parse time, never defaulted.
type Strategy string

const (
	StrategyDirectPlay Strategy = "DIRECT_PLAY"
	StrategyRemux      Strategy = "REMUX"
	StrategyHLSCopy    Strategy = "HLS_COPY"
	StrategyTranscode  Strategy = "TRANSCODE"
)

// strategyOrder is the fixed candidate preference, best first.
var strategyOrder = []Strategy{StrategyDirectPlay, StrategyRemux, StrategyHLSCopy, StrategyTranscode}

// ParseStrategy validates a wire string against the shared vocabulary.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyDirectPlay, StrategyRemux, StrategyHLSCopy, StrategyTranscode:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// ──────────────────── Candidates ────────────────────

// Candidate is one playable rendition offer: a strategy plus the exact
// MIME/codec strings a client pipeline needs to accept the stream.
// Candidates are produced, never mutated; a new list is computed per
// request.
type Candidate struct {
	Strategy   Strategy `json:"strategy"`
	Mime       string   `json:"mime"`
	Container  string   `json:"container"`
	VideoCodec string   `json:"video_codec"`
	AudioCodec *string  `json:"audio_codec"`
}

// Metadata is the read-only projection of the technical profile surfaced
// to clients alongside candidates.
type Metadata struct {
	Duration           *float64 `json:"duration"`
	Width              *int     `json:"width"`
	Height             *int     `json:"height"`
	Bitrate            *int     `json:"bitrate"`
	Resolution         *string  `json:"resolution"`
	HDRFormat          *string  `json:"hdr_format"`
	OriginalCodec      *string  `json:"original_codec"`
	OriginalAudioCodec *string  `json:"original_audio_codec"`
	Container          *string  `json:"container"`
}

// StreamingDecision is the client-observable outcome of negotiation:
// either a chosen strategy+candidate or an error, never both.
type StreamingDecision struct {
	Success   bool       `json:"success"`
	Strategy  Strategy   `json:"strategy,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
	Metadata  *Metadata  `json:"metadata,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Transcode output is always browser-baseline H.264 High 4.0 + AAC-LC in
// fragmented MP4, so a TRANSCODE candidate carries fixed codec strings.
const (
	transcodeVideoCodec = "avc1.640028"
	transcodeAudioCodec = "mp4a.40.2"
)

// BuildCandidates computes the ordered candidate list for a file. The
// classifier's decision bounds what is offered: a direct-playable file
// also gets HLS_COPY, a remuxable one starts at REMUX, and TRANSCODE is
// always present as the universal fallback.
func BuildCandidates(profile *models.TechnicalProfile, relPath string) []Candidate {
	decision := Classify(profile, relPath)

	videoLabel := profile.VideoCodecName()
	audioLabel := profile.AudioCodecName()
	videoCodec := VideoCodecString(videoLabel, profile)
	audioCodec := ""
	if profile.AudioCodec != nil {
		audioCodec = AudioCodecString(audioLabel, profile)
	}

	var candidates []Candidate
	switch decision.Compatibility {
	// HLS_COPY stream-copies into MPEG-TS, so its candidate advertises the
	// TS container even when the source is direct-playable.
	case DirectPlay:
		container := ResolveContainer(profile, relPath)
		candidates = append(candidates,
			newCandidate(StrategyDirectPlay, container, videoCodec, audioCodec, profile.AudioCodec != nil),
			newCandidate(StrategyHLSCopy, "ts", videoCodec, audioCodec, profile.AudioCodec != nil),
		)
	case NeedsRemux:
		candidates = append(candidates,
			newCandidate(StrategyRemux, "mp4", videoCodec, audioCodec, profile.AudioCodec != nil),
			newCandidate(StrategyHLSCopy, "ts", videoCodec, audioCodec, profile.AudioCodec != nil),
		)
	}

	return append(candidates, newCandidate(StrategyTranscode, "mp4", transcodeVideoCodec, transcodeAudioCodec, true))
}

func newCandidate(strategy Strategy, container, videoCodec, audioCodec string, hasAudio bool) Candidate {
	c := Candidate{
		Strategy:   strategy,
		Container:  container,
		VideoCodec: videoCodec,
	}
	if hasAudio && audioCodec != "" {
		c.AudioCodec = &audioCodec
	}
	c.Mime = BuildMime(container, videoCodec, audioCodecOrEmpty(c.AudioCodec))
	return c
}

func audioCodecOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// BuildMetadata projects the descriptive technical facts for a file.
func BuildMetadata(profile *models.TechnicalProfile, relPath string) Metadata {
	container := ResolveContainer(profile, relPath)
	meta := Metadata{
		Duration:           profile.Duration,
		Width:              profile.Width,
		Height:             profile.Height,
		Bitrate:            profile.Bitrate,
		Resolution:         profile.Resolution,
		HDRFormat:          profile.HDRFormat,
		OriginalCodec:      profile.VideoCodec,
		OriginalAudioCodec: profile.AudioCodec,
	}
	if container != "" {
		meta.Container = &container
	}
	return meta
}

// ──────────────────── Selection ────────────────────

// SupportFunc reports whether the consuming client can play a candidate.
type SupportFunc func(Candidate) bool

// SelectBest returns the first candidate, in preference order, that the
// client supports, or nil when none does. TRANSCODE is defined to always
// satisfy support — the transcode pipeline emits a browser-baseline
// format — so any list containing it yields a selection.
func SelectBest(candidates []Candidate, isSupported SupportFunc) *Candidate {
	for _, strategy := range strategyOrder {
		for i := range candidates {
			c := &candidates[i]
			if c.Strategy != strategy {
				continue
			}
			if c.Strategy == StrategyTranscode || (isSupported != nil && isSupported(*c)) {
				return c
			}
		}
	}
	return nil
}

// Decide runs selection over freshly built candidates and wraps the
// outcome in a client-observable decision.
func Decide(profile *models.TechnicalProfile, relPath string, isSupported SupportFunc) StreamingDecision {
	candidates := BuildCandidates(profile, relPath)
	meta := BuildMetadata(profile, relPath)
	chosen := SelectBest(candidates, isSupported)
	if chosen == nil {
		return StreamingDecision{Success: false, Error: "No supported format"}
	}
	return StreamingDecision{
		Success:   true,
		Strategy:  chosen.Strategy,
		Candidate: chosen,
		Metadata:  &meta,
	}
}

// ──────────────────── Stream URLs ────────────────────

// StreamURL builds the playback URL a client fetches for a chosen
// strategy. A scoped media token, when supplied, rides along as a query
// parameter since video elements cannot set headers.
func StreamURL(serverURL, fileID string, strategy Strategy, mediaToken string) string {
	u := fmt.Sprintf("%s/api/v1/stream/file/%s?strategy=%s", serverURL, fileID, strategy)
	if mediaToken != "" {
		u += "&media_token=" + url.QueryEscape(mediaToken)
	}
	return u
}
