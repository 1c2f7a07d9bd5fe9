package stream

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Process Supervisor ────────────────────

// Supervisor owns the lifecycle of delivery subprocesses. The interface is
// deliberately narrow so the underlying tool is swappable and tests can
// substitute a fake that simulates exit codes.
type Supervisor interface {
	Start(sourcePath string, opts StartOptions) (*Session, error)
	Stop(s *Session) error
}

// PipelineMode selects which ffmpeg pipeline a session runs.
type PipelineMode string

const (
	ModeRemux     PipelineMode = "remux"
	ModeHLSCopy   PipelineMode = "hls_copy"
	ModeTranscode PipelineMode = "transcode"
)

// StartOptions carries per-session parameters.
type StartOptions struct {
	Mode        PipelineMode
	SeekSeconds float64
}

// SessionState is the lifecycle of one supervised subprocess. There is no
// transition out of stopped or exited.
type SessionState int

const (
	StateStarting SessionState = iota
	StateRunning
	StateStopped
	StateExited
)

func (s SessionState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Session is a live external-process handle. Each session owns exactly one
// OS process; handles are never reused or shared.
type Session struct {
	ID          uuid.UUID
	SourcePath  string
	SeekSeconds float64
	Pid         int

	// Stdout is the media stream. The HTTP layer reads it; the supervisor
	// only guarantees it is the subprocess's standard output.
	Stdout io.ReadCloser

	cmd       *exec.Cmd
	stderr    *strings.Builder
	done      chan struct{}
	mu        sync.Mutex
	state     SessionState
	exitCode  int
	startedAt time.Time
}

// State returns the current lifecycle state and, when exited, the exit code.
func (s *Session) State() (SessionState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.exitCode
}

// Done is closed when the subprocess has terminated for any reason.
func (s *Session) Done() <-chan struct{} { return s.done }

// FFmpegSupervisor spawns ffmpeg pipelines that write the delivery stream
// to stdout.
type FFmpegSupervisor struct {
	ffmpegPath string
	killWait   time.Duration
}

func NewFFmpegSupervisor(ffmpegPath string) *FFmpegSupervisor {
	return &FFmpegSupervisor{ffmpegPath: ffmpegPath, killWait: 3 * time.Second}
}

// Start spawns the delivery subprocess. A missing or unreadable source is
// not rejected up front — ffmpeg is started and exits non-zero, and that
// surfaces as an asynchronous exit event, matching the wrapped tool's own
// behavior.
func (f *FFmpegSupervisor) Start(sourcePath string, opts StartOptions) (*Session, error) {
	args := BuildPipelineArgs(sourcePath, opts)

	cmd := exec.Command(f.ffmpegPath, args...)
	// Own process group so Stop can signal ffmpeg and any children it forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderr := &strings.Builder{}
	cmd.Stderr = stderr

	// An explicit pipe instead of StdoutPipe: Wait runs concurrently with
	// the HTTP reader, and StdoutPipe's read end would be closed by Wait,
	// dropping buffered media bytes at end of stream.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = pw

	session := &Session{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		SeekSeconds: opts.SeekSeconds,
		Stdout:      pr,
		cmd:         cmd,
		stderr:      stderr,
		done:        make(chan struct{}),
		state:       StateStarting,
		startedAt:   time.Now(),
	}

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", f.ffmpegPath, err)
	}
	// The child holds its own copy of the write end; dropping ours makes
	// readers see EOF when the child exits.
	pw.Close()

	session.mu.Lock()
	session.state = StateRunning
	session.Pid = cmd.Process.Pid
	session.mu.Unlock()

	go session.reap()

	return session, nil
}

// reap waits for the subprocess and records its exit, unless the session
// was explicitly stopped first.
func (s *Session) reap() {
	err := s.cmd.Wait()

	s.mu.Lock()
	if s.state == StateRunning || s.state == StateStarting {
		s.state = StateExited
		s.exitCode = s.cmd.ProcessState.ExitCode()
	}
	code := s.exitCode
	state := s.state
	s.mu.Unlock()

	if err != nil && state == StateExited {
		tail := s.stderr.String()
		if len(tail) > 1000 {
			tail = tail[len(tail)-1000:]
		}
		log.Printf("stream: session %s exited with code %d: %s", s.ID, code, tail)
	}
	close(s.done)
}

// Stop terminates the session's process group: TERM first, then KILL if
// the process has not exited within the grace period. Safe to call more
// than once and on already-exited sessions.
func (f *FFmpegSupervisor) Stop(s *Session) error {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateExited {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopped
	pid := s.Pid
	s.mu.Unlock()

	// Negative pid signals the whole group, so ffmpeg's forked children
	// cannot be orphaned.
	syscall.Kill(-pid, syscall.SIGTERM)

	select {
	case <-s.done:
	case <-time.After(f.killWait):
		syscall.Kill(-pid, syscall.SIGKILL)
		<-s.done
	}
	return nil
}

// ──────────────────── Pipeline arguments ────────────────────

// BuildPipelineArgs assembles the ffmpeg invocation for a delivery mode.
// The seek is placed before -i for fast keyframe seeking; output always
// goes to stdout.
func BuildPipelineArgs(sourcePath string, opts StartOptions) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}

	if opts.SeekSeconds > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", opts.SeekSeconds))
	}

	args = append(args, "-i", sourcePath)

	switch opts.Mode {
	case ModeTranscode:
		// Browser-baseline output: H.264 High + AAC stereo in fragmented
		// MP4, with scale/pixel-format normalization for odd sources.
		args = append(args,
			"-map", "0:v:0", "-map", "0:a:0?",
			"-c:v", "libx264", "-preset", "veryfast", "-profile:v", "high", "-level", "4.0",
			"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2,format=yuv420p",
			"-c:a", "aac", "-ac", "2", "-b:a", "192k",
			"-movflags", "frag_keyframe+empty_moov+default_base_moof",
			"-f", "mp4",
		)
	case ModeHLSCopy:
		// Stream copy into MPEG-TS; playlist segmentation happens in the
		// HTTP layer.
		args = append(args,
			"-map", "0:v:0", "-map", "0:a:0?",
			"-c", "copy",
			"-f", "mpegts",
		)
	default: // ModeRemux
		args = append(args,
			"-map", "0:v:0", "-map", "0:a:0?",
			"-c", "copy",
			"-movflags", "frag_keyframe+empty_moov+default_base_moof",
			"-f", "mp4",
		)
	}

	return append(args, "pipe:1")
}
