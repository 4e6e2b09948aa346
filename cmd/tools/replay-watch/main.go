// Command replay-watch waits for a new Dota 2 replay to appear in a
// directory and optionally copies it into an experiment directory.
//
// The game client finishes writing the .dem file a moment after a match
// ends, so this tool polls the replay directory until a file newer than
// the watch cutoff shows up.
//
// Usage:
//
//	go run ./cmd/tools/replay-watch [flags]
//
// Flags:
//
//	-dir      Replay directory to watch (required)
//	-dest     Directory to copy the found replay into
//	-grace    How far before startup a replay still counts (default: 2s)
//	-timeout  How long to wait before giving up (default: 20s)
//	-poll     Poll interval (default: 500ms)
package main

import (
	"flag"
	"log"
	"time"

	"github.com/proger/faeton/internal/replay"
)

func main() {
	dir := flag.String("dir", "", "Replay directory to watch (required)")
	dest := flag.String("dest", "", "Directory to copy the found replay into")
	grace := flag.Duration("grace", 2*time.Second, "How far before startup a replay still counts")
	timeout := flag.Duration("timeout", 20*time.Second, "How long to wait before giving up")
	poll := flag.Duration("poll", replay.DefaultPoll, "Poll interval")
	flag.Parse()

	if *dir == "" {
		log.Fatal("Error: -dir flag is required")
	}

	watcher := replay.NewWatcher(replay.OSFileSystem{})
	watcher.Poll = *poll

	since := time.Now().Add(-*grace)
	log.Printf("Watching %s for replays newer than %s", *dir, since.Format(time.RFC3339))

	path, err := watcher.Wait(*dir, since, *timeout)
	if err != nil {
		log.Fatalf("Failed to find replay: %v", err)
	}
	log.Printf("Found replay: %s", path)

	if *dest != "" {
		copied, err := replay.CopyInto(replay.OSFileSystem{}, path, *dest)
		if err != nil {
			log.Fatalf("Failed to copy replay: %v", err)
		}
		log.Printf("Copied replay to %s", copied)
	}
}
