package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mydia/mydia/internal/models"
)

var ErrNotFound = errors.New("not found")

// FileRepository persists media files and their technical profiles.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `
	id, path, size_bytes, probed_at, created_at, updated_at,
	container, format_name, video_codec, audio_codec,
	video_profile_idc, video_level_idc, video_constraint_set,
	hevc_profile_idc, hevc_level_idc, hevc_tier_flag,
	vp9_profile, vp9_level, av1_profile, av1_level, av1_tier, bit_depth,
	duration, width, height, bitrate, resolution, hdr_format`

// GetByID loads one file with its technical profile.
func (r *FileRepository) GetByID(id uuid.UUID) (*models.MediaFile, error) {
	row := r.db.QueryRow(`SELECT `+fileColumns+` FROM media_files WHERE id = $1`, id)
	return scanFile(row)
}

// Create inserts a new file record; probe fields stay null until the
// probe job runs.
func (r *FileRepository) Create(path string, sizeBytes int64) (*models.MediaFile, error) {
	id := uuid.New()
	now := time.Now()
	_, err := r.db.Exec(
		`INSERT INTO media_files (id, path, size_bytes, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		id, path, sizeBytes, now)
	if err != nil {
		return nil, fmt.Errorf("insert media file: %w", err)
	}
	return &models.MediaFile{ID: id, Path: path, SizeBytes: &sizeBytes, CreatedAt: now, UpdatedAt: now}, nil
}

// UpdateTechnical stores a fresh probe result for a file.
func (r *FileRepository) UpdateTechnical(id uuid.UUID, t *models.TechnicalProfile) error {
	_, err := r.db.Exec(`UPDATE media_files SET
		container = $2, format_name = $3, video_codec = $4, audio_codec = $5,
		video_profile_idc = $6, video_level_idc = $7, video_constraint_set = $8,
		hevc_profile_idc = $9, hevc_level_idc = $10, hevc_tier_flag = $11,
		vp9_profile = $12, vp9_level = $13,
		av1_profile = $14, av1_level = $15, av1_tier = $16, bit_depth = $17,
		duration = $18, width = $19, height = $20, bitrate = $21,
		resolution = $22, hdr_format = $23,
		probed_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		id, t.Container, t.FormatName, t.VideoCodec, t.AudioCodec,
		t.VideoProfileIdc, t.VideoLevelIdc, t.VideoConstraintSet,
		t.HevcProfileIdc, t.HevcLevelIdc, t.HevcTierFlag,
		t.Vp9Profile, t.Vp9Level,
		t.Av1Profile, t.Av1Level, t.Av1Tier, t.BitDepth,
		t.Duration, t.Width, t.Height, t.Bitrate,
		t.Resolution, t.HDRFormat)
	if err != nil {
		return fmt.Errorf("update technical profile: %w", err)
	}
	return nil
}

// ListUnprobed returns files that have never been probed, oldest first,
// for the scheduler to enqueue.
func (r *FileRepository) ListUnprobed(limit int) ([]*models.MediaFile, error) {
	rows, err := r.db.Query(
		`SELECT `+fileColumns+` FROM media_files WHERE probed_at IS NULL ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprobed: %w", err)
	}
	defer rows.Close()

	var files []*models.MediaFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*models.MediaFile, error) {
	var f models.MediaFile
	t := &f.Technical
	err := row.Scan(
		&f.ID, &f.Path, &f.SizeBytes, &f.ProbedAt, &f.CreatedAt, &f.UpdatedAt,
		&t.Container, &t.FormatName, &t.VideoCodec, &t.AudioCodec,
		&t.VideoProfileIdc, &t.VideoLevelIdc, &t.VideoConstraintSet,
		&t.HevcProfileIdc, &t.HevcLevelIdc, &t.HevcTierFlag,
		&t.Vp9Profile, &t.Vp9Level, &t.Av1Profile, &t.Av1Level, &t.Av1Tier, &t.BitDepth,
		&t.Duration, &t.Width, &t.Height, &t.Bitrate, &t.Resolution, &t.HDRFormat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan media file: %w", err)
	}
	return &f, nil
}
