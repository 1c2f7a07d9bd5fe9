package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mydia/mydia/internal/models"
)

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func f64Ptr(f float64) *float64 { return &f }

// profileWith builds a minimal technical profile from display labels.
func profileWith(video, audio, container string) *models.TechnicalProfile {
	p := &models.TechnicalProfile{}
	if video != "" {
		p.VideoCodec = &video
	}
	if audio != "" {
		p.AudioCodec = &audio
	}
	if container != "" {
		p.Container = &container
	}
	return p
}

func TestClassifyDirectPlay(t *testing.T) {
	d := Classify(profileWith("h264", "aac", "mp4"), "movie.mp4")
	assert.Equal(t, DirectPlay, d.Compatibility)
	assert.Empty(t, d.Reason)
}

func TestClassifyRemuxableContainer(t *testing.T) {
	d := Classify(profileWith("h264", "aac", "mkv"), "movie.mkv")
	assert.Equal(t, NeedsRemux, d.Compatibility)
	assert.Contains(t, d.Reason, "mkv")
}

func TestClassifyIncompatibleVideoCodec(t *testing.T) {
	d := Classify(profileWith("HEVC (Main 10)", "aac", "mp4"), "movie.mp4")
	assert.Equal(t, NeedsTranscode, d.Compatibility)
	// The reason carries the raw display label, not the normalized family.
	assert.Equal(t, "Incompatible video codec (HEVC (Main 10))", d.Reason)
}

func TestClassifyIncompatibleAudioCodec(t *testing.T) {
	d := Classify(profileWith("h264", "DTS-HD MA 7.1", "mp4"), "movie.mp4")
	assert.Equal(t, NeedsTranscode, d.Compatibility)
	assert.Equal(t, "Incompatible audio codec (DTS-HD MA 7.1)", d.Reason)
}

func TestClassifyVideoPrecedesAudioPrecedesContainer(t *testing.T) {
	// All three are incompatible; the video reason must win.
	d := Classify(profileWith("hevc", "dts", "wmv"), "movie.wmv")
	assert.Equal(t, NeedsTranscode, d.Compatibility)
	assert.Contains(t, d.Reason, "video codec")

	// Compatible video, bad audio and container; audio wins.
	d = Classify(profileWith("h264", "truehd", "wmv"), "movie.wmv")
	assert.Contains(t, d.Reason, "audio codec")
}

func TestClassifyMissingVideoCodec(t *testing.T) {
	d := Classify(profileWith("", "aac", "mp4"), "movie.mp4")
	assert.Equal(t, NeedsTranscode, d.Compatibility)
	assert.Equal(t, "Incompatible video codec (unknown)", d.Reason)
}

func TestClassifyVideoOnlyFile(t *testing.T) {
	// No audio stream at all; only video and container gate the decision.
	d := Classify(profileWith("vp9", "", "webm"), "clip.webm")
	assert.Equal(t, DirectPlay, d.Compatibility)
}

func TestClassifyUndeterminedContainer(t *testing.T) {
	d := Classify(profileWith("h264", "aac", ""), "noext")
	assert.Equal(t, NeedsTranscode, d.Compatibility)
	assert.Equal(t, "Container could not be determined", d.Reason)
}

func TestClassifyIncompatibleContainer(t *testing.T) {
	d := Classify(profileWith("h264", "aac", "wmv"), "movie.wmv")
	assert.Equal(t, NeedsTranscode, d.Compatibility)
	assert.Equal(t, "Incompatible container (wmv)", d.Reason)
}

func TestResolveContainerPrecedence(t *testing.T) {
	// Explicit container field wins over everything.
	p := profileWith("h264", "aac", "MKV")
	p.FormatName = strPtr("matroska,webm")
	assert.Equal(t, "mkv", ResolveContainer(p, "movie.mp4"))

	// Without the field, the first format_name token is used.
	p = profileWith("h264", "aac", "")
	p.FormatName = strPtr("mov,mp4,m4a,3gp,3g2,mj2")
	assert.Equal(t, "mov", ResolveContainer(p, "movie.mkv"))

	// Extension is the last resort.
	p = profileWith("h264", "aac", "")
	assert.Equal(t, "avi", ResolveContainer(p, "dir/movie.AVI"))

	// Nothing available at all.
	assert.Equal(t, "", ResolveContainer(profileWith("h264", "aac", ""), "noext"))
}
