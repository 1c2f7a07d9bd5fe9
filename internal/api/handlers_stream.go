package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mydia/mydia/internal/httputil"
	"github.com/mydia/mydia/internal/models"
	"github.com/mydia/mydia/internal/repository"
	"github.com/mydia/mydia/internal/stream"
)

// ──────────────────── Stream Handlers ────────────────────

type candidatesResponse struct {
	Candidates []stream.Candidate `json:"candidates"`
	Metadata   stream.Metadata    `json:"metadata"`
}

// handleStreamCandidates returns the ordered strategy candidates and the
// descriptive metadata for a file.
func (s *Server) handleStreamCandidates(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.URL.Query().Get("file_id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid file_id")
		return
	}

	file, err := s.files.GetByID(fileID)
	if err != nil {
		s.respondFileError(w, err)
		return
	}

	profile, err := s.resolveProfile(r.Context(), file)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "probe failed: "+err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, candidatesResponse{
		Candidates: stream.BuildCandidates(profile, file.Path),
		Metadata:   stream.BuildMetadata(profile, file.Path),
	})
}

// handleStreamFile delivers media bytes for one strategy. An unknown
// strategy is a client error rejected before any subprocess is spawned.
func (s *Server) handleStreamFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	strategy, err := stream.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if token := r.URL.Query().Get("media_token"); token != "" {
		if err := s.auth.ValidateMediaToken(token, fileID); err != nil {
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	file, err := s.files.GetByID(fileID)
	if err != nil {
		s.respondFileError(w, err)
		return
	}

	if strategy == stream.StrategyDirectPlay {
		profile, _ := s.resolveProfile(r.Context(), file)
		container := ""
		if profile != nil {
			container = stream.ResolveContainer(profile, file.Path)
		}
		if err := stream.ServeDirectFile(w, r, file.Path, container); err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	seekSeconds := 0.0
	if t := r.URL.Query().Get("t"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil && v > 0 {
			seekSeconds = v
		}
	}

	session, err := s.manager.Start(fileID, strategy, file.Path, seekSeconds)
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if strategy == stream.StrategyHLSCopy {
		w.Header().Set("Content-Type", "video/mp2t")
	} else {
		w.Header().Set("Content-Type", "video/mp4")
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	s.pipeSession(w, r, session)
}

// pipeSession copies subprocess output to the client, flushing as bytes
// arrive, and tears the session down when the client goes away or the
// pipeline ends.
func (s *Server) pipeSession(w http.ResponseWriter, r *http.Request, session *stream.Session) {
	defer s.manager.Stop(session.ID)
	defer session.Stdout.Close()

	go func() {
		<-r.Context().Done()
		s.manager.Stop(session.ID)
	}()

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 64*1024)
	for {
		n, err := session.Stdout.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			s.manager.Touch(session.ID)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("stream: session %s read ended: %v", session.ID, err)
			}
			return
		}
	}
}

// handleIssueMediaToken mints a scoped token a player can append to
// stream URLs, since video elements cannot set headers.
func (s *Server) handleIssueMediaToken(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	if _, err := s.files.GetByID(fileID); err != nil {
		s.respondFileError(w, err)
		return
	}

	token, err := s.auth.IssueMediaToken(fileID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "token issue failed")
		return
	}

	urls := make(map[string]string)
	for _, strat := range []stream.Strategy{stream.StrategyDirectPlay, stream.StrategyRemux, stream.StrategyHLSCopy, stream.StrategyTranscode} {
		urls[string(strat)] = stream.StreamURL(s.config.ServerURL, fileID.String(), strat, token)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"media_token": token,
		"stream_urls": urls,
	})
}

// handleStopSession explicitly ends a playback session.
func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("sessionId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.manager.Stop(sessionID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// handleEnqueueProbe schedules a background re-probe of a file.
func (s *Server) handleEnqueueProbe(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	if _, err := s.files.GetByID(fileID); err != nil {
		s.respondFileError(w, err)
		return
	}
	if s.queue == nil {
		s.respondError(w, http.StatusServiceUnavailable, "job queue not available")
		return
	}
	if err := s.queue.EnqueueProbe(fileID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// ──────────────────── Profile resolution ────────────────────

// resolveProfile returns the technical profile for a file: the stored one
// when the file has been probed, otherwise cache, otherwise a fresh
// ffprobe run whose result is cached and queued for persistence.
func (s *Server) resolveProfile(ctx context.Context, file *models.MediaFile) (*models.TechnicalProfile, error) {
	if file.ProbedAt != nil {
		return &file.Technical, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, file.ID); err == nil && cached != nil {
			return cached, nil
		}
	}

	if s.prober == nil {
		return &file.Technical, nil
	}

	profile, err := s.prober.Probe(ctx, file.Path)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, file.ID, profile); err != nil {
			log.Printf("api: probe cache store failed for %s: %v", file.ID, err)
		}
	}
	// Persist through the job queue rather than inline on a read path.
	if s.queue != nil {
		if err := s.queue.EnqueueProbe(file.ID); err != nil {
			log.Printf("api: probe enqueue failed for %s: %v", file.ID, err)
		}
	}

	return profile, nil
}

// ──────────────────── Helpers ────────────────────

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	httputil.WriteJSON(w, statusCode, data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	httputil.WriteError(w, statusCode, message)
}

func (s *Server) respondFileError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "file not found")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}
