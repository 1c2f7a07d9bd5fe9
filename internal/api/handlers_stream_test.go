package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydia/mydia/internal/auth"
	"github.com/mydia/mydia/internal/config"
	"github.com/mydia/mydia/internal/models"
	"github.com/mydia/mydia/internal/repository"
	"github.com/mydia/mydia/internal/stream"
)

type fakeFileStore struct {
	files map[uuid.UUID]*models.MediaFile
}

func (f *fakeFileStore) GetByID(id uuid.UUID) (*models.MediaFile, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return file, nil
}

func testStrPtr(s string) *string { return &s }

// probedFile builds a media file whose profile is already persisted, so
// handlers never reach for ffprobe.
func probedFile(path, video, audio, container string) *models.MediaFile {
	now := time.Now()
	file := &models.MediaFile{
		ID:       uuid.New(),
		Path:     path,
		ProbedAt: &now,
	}
	if video != "" {
		file.Technical.VideoCodec = testStrPtr(video)
	}
	if audio != "" {
		file.Technical.AudioCodec = testStrPtr(audio)
	}
	if container != "" {
		file.Technical.Container = testStrPtr(container)
	}
	return file
}

func newTestServer(t *testing.T, files ...*models.MediaFile) (*Server, *fakeFileStore) {
	t.Helper()
	store := &fakeFileStore{files: make(map[uuid.UUID]*models.MediaFile)}
	for _, f := range files {
		store.files[f.ID] = f
	}

	cfg := &config.Config{
		ServerURL:     "http://localhost:8080",
		MaxSessions:   4,
		MediaTokenTTL: time.Hour,
	}
	manager := stream.NewManager(stream.NewFFmpegSupervisor("ffmpeg"), cfg.MaxSessions)
	authService := auth.New("test-secret", cfg.MediaTokenTTL)

	return NewServer(cfg, store, manager, authService, nil, nil, nil), store
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestHandleStreamCandidates(t *testing.T) {
	file := probedFile("/media/movie.mkv", "H.264 (High)", "AAC 5.1", "mkv")
	srv, _ := newTestServer(t, file)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/candidates?file_id="+file.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Candidates []stream.Candidate `json:"candidates"`
		Metadata   stream.Metadata    `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Candidates, 3)
	assert.Equal(t, stream.StrategyRemux, resp.Candidates[0].Strategy)
	assert.Equal(t, stream.StrategyHLSCopy, resp.Candidates[1].Strategy)
	assert.Equal(t, stream.StrategyTranscode, resp.Candidates[2].Strategy)
	assert.Equal(t, "avc1.640028", resp.Candidates[0].VideoCodec)

	require.NotNil(t, resp.Metadata.Container)
	assert.Equal(t, "mkv", *resp.Metadata.Container)
	require.NotNil(t, resp.Metadata.OriginalCodec)
	assert.Equal(t, "H.264 (High)", *resp.Metadata.OriginalCodec)
}

func TestHandleStreamCandidatesInvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/candidates?file_id=not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStreamCandidatesUnknownFile(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/candidates?file_id="+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStreamFileUnknownStrategy(t *testing.T) {
	file := probedFile("/media/movie.mkv", "H.264 (High)", "aac", "mkv")
	srv, _ := newTestServer(t, file)

	// Rejected before any subprocess is spawned.
	for _, strat := range []string{"", "hls", "remux", "DASH"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/file/"+file.ID.String()+"?strategy="+strat, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "strategy=%q", strat)
	}
	assert.Equal(t, 0, srv.manager.ActiveCount())
}

func TestHandleStreamFileBadToken(t *testing.T) {
	file := probedFile("/media/movie.mkv", "H.264 (High)", "aac", "mkv")
	srv, _ := newTestServer(t, file)

	// Token minted for a different file must not unlock this one.
	otherToken, err := srv.auth.IssueMediaToken(uuid.New())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/stream/file/"+file.ID.String()+"?strategy=REMUX&media_token="+otherToken, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleStreamFileDirectPlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4-bytes"), 0o644))

	file := probedFile(path, "H.264 (High)", "aac", "mp4")
	srv, _ := newTestServer(t, file)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/stream/file/"+file.ID.String()+"?strategy=DIRECT_PLAY", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mp4-bytes", w.Body.String())
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
}

func TestHandleIssueMediaToken(t *testing.T) {
	file := probedFile("/media/movie.mkv", "H.264 (High)", "aac", "mkv")
	srv, _ := newTestServer(t, file)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/stream/"+file.ID.String()+"/token", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		MediaToken string            `json:"media_token"`
		StreamURLs map[string]string `json:"stream_urls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.MediaToken)
	require.Len(t, resp.StreamURLs, 4)
	assert.Contains(t, resp.StreamURLs["REMUX"], "strategy=REMUX")
	assert.Contains(t, resp.StreamURLs["REMUX"], "media_token=")

	// The minted token must validate against the same file.
	assert.NoError(t, srv.auth.ValidateMediaToken(resp.MediaToken, file.ID))
}

func TestHandleIssueMediaTokenRateLimited(t *testing.T) {
	file := probedFile("/media/movie.mkv", "H.264 (High)", "aac", "mkv")
	srv, _ := newTestServer(t, file)

	limited := false
	for i := 0; i < 12; i++ {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/stream/"+file.ID.String()+"/token", nil))
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst of token requests was never rate limited")
}

func TestHandleStopSessionUnknown(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/stream/sessions/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleEnqueueProbeWithoutQueue(t *testing.T) {
	file := probedFile("/media/movie.mkv", "H.264 (High)", "aac", "mkv")
	srv, _ := newTestServer(t, file)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/files/"+file.ID.String()+"/probe", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	r.Header.Set("Origin", "http://player.local")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://player.local", w.Header().Get("Access-Control-Allow-Origin"))
}
