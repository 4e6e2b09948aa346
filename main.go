package main

import (
	"flag"
	"log"
	"os"

	"github.com/dotabuff/manta"

	"github.com/proger/faeton/internal/config"
	"github.com/proger/faeton/internal/dem"
)

var (
	demPath       = flag.String("dem", "", "path to replay .dem file")
	outPath       = flag.String("out", "-", "output path (.jsonl), or '-' for stdout")
	eclipseOnly   = flag.Bool("eclipse", false, "only output events for ticks where Luna casts Eclipse")
	includeBinary = flag.Bool("include-binary", false, "include callbacks with unreadable binary payload bytes")
)

func main() {
	flag.Parse()

	if *demPath == "" {
		log.Fatal("-dem is required")
	}

	limits, err := config.ClassifierLimits()
	if err != nil {
		log.Fatalf("load tuning: %v", err)
	}

	in, err := os.Open(*demPath)
	if err != nil {
		log.Fatalf("open replay: %v", err)
	}
	defer in.Close()

	out, err := openOutput(*outPath)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	if out != os.Stdout {
		defer out.Close()
	}

	parser, err := manta.NewStreamParser(in)
	if err != nil {
		log.Fatalf("create parser: %v", err)
	}

	gate := dem.NewTickGate(dem.NewWriter(out), *eclipseOnly)
	d := dem.NewDispatcher(dem.DispatcherConfig{
		Gate:          gate,
		Classifier:    dem.NewClassifier(limits),
		Match:         dem.EclipseCast(parser),
		IncludeBinary: *includeBinary,
		Ticks: func() (uint32, uint32) {
			return parser.Tick, parser.NetTick
		},
	})

	d.RegisterAll(parser.Callbacks)
	parser.Callbacks.OnCMsgSource1LegacyGameEventList(d.SubscribeGameEvents(parser))

	if err := parser.Start(); err != nil {
		log.Fatalf("parse replay: %v", err)
	}
	if err := gate.FlushFinal(); err != nil {
		log.Fatalf("flush output: %v", err)
	}

	log.Printf("wrote %d events", d.Wrote())
}

// openOutput resolves the -out flag: "-" selects stdout, anything else
// creates the file.
func openOutput(path string) (*os.File, error) {
	if path == "-" {
		return os.Stdout, nil
	}
	return os.Create(path)
}
