package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mydia/mydia/internal/probe"
	"github.com/mydia/mydia/internal/repository"
)

// ProbeHandler refreshes a file's technical profile: run ffprobe, persist
// the result, drop the stale cache entry.
type ProbeHandler struct {
	fileRepo *repository.FileRepository
	prober   *probe.FFprobe
	cache    *probe.Cache
}

func NewProbeHandler(fileRepo *repository.FileRepository, prober *probe.FFprobe, cache *probe.Cache) *ProbeHandler {
	return &ProbeHandler{fileRepo: fileRepo, prober: prober, cache: cache}
}

func (h *ProbeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ProbeFilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	fileID, err := uuid.Parse(p.FileID)
	if err != nil {
		return fmt.Errorf("bad file id %q: %w", p.FileID, err)
	}

	file, err := h.fileRepo.GetByID(fileID)
	if err != nil {
		return fmt.Errorf("load file %s: %w", fileID, err)
	}

	profile, err := h.prober.Probe(ctx, file.Path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", file.Path, err)
	}

	if err := h.fileRepo.UpdateTechnical(fileID, profile); err != nil {
		return err
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, fileID); err != nil {
			log.Printf("jobs: probe cache invalidate failed for %s: %v", fileID, err)
		}
	}

	log.Printf("Job: probed %s (video=%s audio=%s)", file.Path, profile.VideoCodecName(), profile.AudioCodecName())
	return nil
}
