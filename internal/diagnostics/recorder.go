// Package diagnostics persists raw invalid model responses so a
// close-but-wrong extraction can be inspected (and recovered by hand) after
// the retry budget runs out.
package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Recorder struct {
	dir string
	now func() time.Time
}

// NewRecorder writes dump files under dir, creating it on demand.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir, now: time.Now}
}

// Record writes the verbatim raw response of a failed attempt to its own
// file and returns the path. Filenames carry the attempt index and a
// timestamp, so concurrent extractions never collide and every attempt keeps
// its own evidence even when a later retry supersedes it.
func (r *Recorder) Record(raw string, attempt int) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagnostics dir: %w", err)
	}

	ts := r.now().Format("20060102_150405")
	name := fmt.Sprintf("invalid_response_attempt_%d_%s.txt", attempt, ts)
	path := filepath.Join(r.dir, name)

	content := fmt.Sprintf("--- captured %s (attempt %d) ---\n%s", ts, attempt, raw)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write diagnostics file: %w", err)
	}

	return path, nil
}
