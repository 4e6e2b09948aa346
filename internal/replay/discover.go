package replay

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/proger/faeton/internal/timeutil"
)

// Ext is the file extension of Source 2 replay files.
const Ext = ".dem"

// DefaultPoll is how often Wait rescans the replay directory.
const DefaultPoll = 500 * time.Millisecond

// ErrNoReplay reports that no replay matched the discovery cutoff.
var ErrNoReplay = errors.New("no replay found")

// FindNewest returns the path of the most recently modified replay in
// dir whose modification time is at or after since. Subdirectories and
// files without the .dem extension are ignored. It returns ErrNoReplay
// when nothing qualifies.
func FindNewest(fsys FileSystem, dir string, since time.Time) (string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read replay dir: %w", err)
	}

	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mt := info.ModTime()
		if mt.Before(since) {
			continue
		}
		if newest == "" || mt.After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = mt
		}
	}

	if newest == "" {
		return "", ErrNoReplay
	}
	return newest, nil
}

// Watcher polls a directory until a replay newer than a cutoff appears.
// The game client finishes writing the replay shortly after a match
// ends, so callers typically pass the match start time (minus a small
// grace period) as the cutoff.
type Watcher struct {
	FS    FileSystem
	Poll  time.Duration
	Clock timeutil.Clock
}

// NewWatcher returns a Watcher over fsys with the default poll interval.
func NewWatcher(fsys FileSystem) *Watcher {
	return &Watcher{
		FS:    fsys,
		Poll:  DefaultPoll,
		Clock: timeutil.RealClock{},
	}
}

// Wait blocks until a replay modified at or after since shows up in dir,
// or the timeout elapses. It returns ErrNoReplay on timeout.
func (w *Watcher) Wait(dir string, since time.Time, timeout time.Duration) (string, error) {
	poll := w.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	clock := w.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	deadline := clock.Now().Add(timeout)
	for {
		path, err := FindNewest(w.FS, dir, since)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ErrNoReplay) {
			return "", err
		}
		if !clock.Now().Before(deadline) {
			return "", ErrNoReplay
		}
		clock.Sleep(poll)
	}
}

// CopyInto copies the replay at src into destDir, creating the
// directory if needed. When a file with the same name already exists
// the copy gets a numeric suffix (replay_1.dem, replay_2.dem, ...)
// instead of overwriting. It returns the destination path.
func CopyInto(fsys FileSystem, src, destDir string) (string, error) {
	if err := fsys.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dest := filepath.Join(destDir, base)
	for n := 1; fsys.Exists(dest); n++ {
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	in, err := fsys.Open(src)
	if err != nil {
		return "", fmt.Errorf("open replay: %w", err)
	}
	defer in.Close()

	out, err := fsys.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy replay: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close copy: %w", err)
	}
	return dest, nil
}
