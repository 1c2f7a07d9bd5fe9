package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydia/mydia/internal/models"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"DIRECT_PLAY", "REMUX", "HLS_COPY", "TRANSCODE"} {
		got, err := ParseStrategy(s)
		require.NoError(t, err)
		assert.Equal(t, Strategy(s), got)
	}

	for _, s := range []string{"", "hls", "direct_play", "REMUX ", "DASH"} {
		_, err := ParseStrategy(s)
		assert.Error(t, err, "input=%q", s)
	}
}

func strategies(candidates []Candidate) []Strategy {
	out := make([]Strategy, len(candidates))
	for i, c := range candidates {
		out[i] = c.Strategy
	}
	return out
}

func TestBuildCandidatesDirectPlayable(t *testing.T) {
	candidates := BuildCandidates(profileWith("H.264 (High)", "aac", "mp4"), "movie.mp4")
	assert.Equal(t, []Strategy{StrategyDirectPlay, StrategyHLSCopy, StrategyTranscode}, strategies(candidates))

	direct := candidates[0]
	assert.Equal(t, "mp4", direct.Container)
	assert.Equal(t, "avc1.640028", direct.VideoCodec)
	require.NotNil(t, direct.AudioCodec)
	assert.Equal(t, "mp4a.40.2", *direct.AudioCodec)
	assert.Equal(t, `video/mp4; codecs="avc1.640028, mp4a.40.2"`, direct.Mime)
}

func TestBuildCandidatesRemuxable(t *testing.T) {
	candidates := BuildCandidates(profileWith("h264", "aac", "mkv"), "movie.mkv")
	assert.Equal(t, []Strategy{StrategyRemux, StrategyHLSCopy, StrategyTranscode}, strategies(candidates))

	// Remux repackages into fMP4, so the offered container is mp4 even
	// though the source is mkv.
	assert.Equal(t, "mp4", candidates[0].Container)
}

func TestBuildCandidatesTranscodeOnly(t *testing.T) {
	candidates := BuildCandidates(profileWith("hevc", "dts", "mkv"), "movie.mkv")
	require.Len(t, candidates, 1)

	transcode := candidates[0]
	assert.Equal(t, StrategyTranscode, transcode.Strategy)
	assert.Equal(t, "avc1.640028", transcode.VideoCodec)
	require.NotNil(t, transcode.AudioCodec)
	assert.Equal(t, "mp4a.40.2", *transcode.AudioCodec)
	assert.Equal(t, `video/mp4; codecs="avc1.640028, mp4a.40.2"`, transcode.Mime)
}

func TestBuildCandidatesHLSCopyAdvertisesTransportStream(t *testing.T) {
	// The HLS_COPY pipeline emits MPEG-TS, so the candidate must advertise
	// TS bytes, not the source or remux container.
	for _, profile := range []*models.TechnicalProfile{
		profileWith("H.264 (High)", "aac", "mp4"),
		profileWith("H.264 (High)", "aac", "mkv"),
	} {
		candidates := BuildCandidates(profile, "movie.bin")
		var hls *Candidate
		for i := range candidates {
			if candidates[i].Strategy == StrategyHLSCopy {
				hls = &candidates[i]
			}
		}
		require.NotNil(t, hls)
		assert.Equal(t, "ts", hls.Container)
		assert.Equal(t, `video/mp2t; codecs="avc1.640028, mp4a.40.2"`, hls.Mime)
	}
}

func TestBuildCandidatesVideoOnly(t *testing.T) {
	candidates := BuildCandidates(profileWith("H.264 (High)", "", "mp4"), "clip.mp4")
	direct := candidates[0]
	assert.Nil(t, direct.AudioCodec)
	assert.Equal(t, `video/mp4; codecs="avc1.640028"`, direct.Mime)
}

func TestSelectBestPrefersEarlierStrategy(t *testing.T) {
	candidates := BuildCandidates(profileWith("h264", "aac", "mp4"), "movie.mp4")

	chosen := SelectBest(candidates, func(Candidate) bool { return true })
	require.NotNil(t, chosen)
	assert.Equal(t, StrategyDirectPlay, chosen.Strategy)
}

func TestSelectBestFallsBackToTranscode(t *testing.T) {
	candidates := BuildCandidates(profileWith("h264", "aac", "mkv"), "movie.mkv")

	// Client rejects everything; TRANSCODE is still selected because its
	// output is browser-baseline by construction.
	chosen := SelectBest(candidates, func(Candidate) bool { return false })
	require.NotNil(t, chosen)
	assert.Equal(t, StrategyTranscode, chosen.Strategy)

	// Nil support func behaves the same.
	chosen = SelectBest(candidates, nil)
	require.NotNil(t, chosen)
	assert.Equal(t, StrategyTranscode, chosen.Strategy)
}

func TestSelectBestEmptyList(t *testing.T) {
	assert.Nil(t, SelectBest(nil, func(Candidate) bool { return true }))
	assert.Nil(t, SelectBest([]Candidate{}, nil))
}

func TestSelectBestWithoutTranscodeCandidate(t *testing.T) {
	candidates := []Candidate{
		{Strategy: StrategyDirectPlay},
		{Strategy: StrategyRemux},
	}
	assert.Nil(t, SelectBest(candidates, func(Candidate) bool { return false }))

	chosen := SelectBest(candidates, func(c Candidate) bool { return c.Strategy == StrategyRemux })
	require.NotNil(t, chosen)
	assert.Equal(t, StrategyRemux, chosen.Strategy)
}

func TestDecide(t *testing.T) {
	profile := profileWith("h264", "aac", "mkv")
	profile.Duration = f64Ptr(7200)
	profile.Width = intPtr(1920)
	profile.Height = intPtr(1080)

	decision := Decide(profile, "movie.mkv", func(c Candidate) bool {
		return c.Strategy == StrategyRemux
	})
	require.True(t, decision.Success)
	assert.Equal(t, StrategyRemux, decision.Strategy)
	require.NotNil(t, decision.Candidate)
	assert.Equal(t, StrategyRemux, decision.Candidate.Strategy)
	require.NotNil(t, decision.Metadata)
	assert.Equal(t, 7200.0, *decision.Metadata.Duration)
	assert.Empty(t, decision.Error)
}

func TestCandidatesConsistentWithClassification(t *testing.T) {
	// A non-transcode candidate only exists when the classifier agreed the
	// source codecs are playable, so its codec strings are never empty.
	profiles := []*models.TechnicalProfile{
		profileWith("H.264 (High)", "aac", "mp4"),
		profileWith("H.264 (High)", "aac", "mkv"),
		profileWith("VP9", "Opus", "webm"),
		profileWith("hevc", "dts", "mkv"),
	}
	for _, p := range profiles {
		decision := Classify(p, "movie.bin")
		for _, c := range BuildCandidates(p, "movie.bin") {
			switch c.Strategy {
			case StrategyDirectPlay:
				assert.Equal(t, DirectPlay, decision.Compatibility)
				assert.NotEmpty(t, c.VideoCodec)
			case StrategyRemux:
				assert.Equal(t, NeedsRemux, decision.Compatibility)
				assert.NotEmpty(t, c.VideoCodec)
			case StrategyHLSCopy:
				assert.NotEqual(t, NeedsTranscode, decision.Compatibility)
			}
		}
	}
}

func TestBuildMetadata(t *testing.T) {
	profile := profileWith("HEVC (Main 10)", "TrueHD 7.1", "")
	profile.FormatName = strPtr("matroska,webm")
	profile.Resolution = strPtr("4K")
	profile.HDRFormat = strPtr("HDR10")
	profile.Bitrate = intPtr(25000000)

	meta := BuildMetadata(profile, "movie.mkv")
	require.NotNil(t, meta.Container)
	assert.Equal(t, "matroska", *meta.Container)
	assert.Equal(t, "HEVC (Main 10)", *meta.OriginalCodec)
	assert.Equal(t, "TrueHD 7.1", *meta.OriginalAudioCodec)
	assert.Equal(t, "4K", *meta.Resolution)
	assert.Equal(t, "HDR10", *meta.HDRFormat)
	assert.Nil(t, meta.Duration)
}

func TestStreamURL(t *testing.T) {
	u := StreamURL("http://localhost:8080", "abc-123", StrategyRemux, "")
	assert.Equal(t, "http://localhost:8080/api/v1/stream/file/abc-123?strategy=REMUX", u)

	u = StreamURL("http://localhost:8080", "abc-123", StrategyTranscode, "tok+en")
	assert.Equal(t, "http://localhost:8080/api/v1/stream/file/abc-123?strategy=TRANSCODE&media_token=tok%2Ben", u)
}
