// Package main provides a report tool for faeton event logs.
// It scans a JSON Lines log produced by the replay pipeline, computes
// per-tick rate statistics and name frequencies, and exports results
// as JSON, PNG and HTML, optionally persisting events to SQLite.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/proger/faeton/internal/config"
	"github.com/proger/faeton/internal/db"
	"github.com/proger/faeton/internal/dem"
	"github.com/proger/faeton/internal/units"
	"github.com/proger/faeton/internal/version"
)

// maxLineBytes caps a single JSONL record. Callback payloads carry full
// chat and combat log messages but stay well under this.
const maxLineBytes = 4 * 1024 * 1024

// Config holds configuration for the report run.
type Config struct {
	InputFile  string
	OutputDir  string
	DBPath     string
	TuningPath string
	TopNames   int
	ExportJSON bool
	ExportPNG  bool
	ExportHTML bool
	Quiet      bool
}

// AnalysisResult holds the results of scanning one event log.
type AnalysisResult struct {
	InputFile        string `json:"input_file"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`

	TotalEvents    int `json:"total_events"`
	Callbacks      int `json:"callbacks"`
	GameEvents     int `json:"game_events"`
	MalformedLines int `json:"malformed_lines"`
	DistinctNames  int `json:"distinct_names"`

	FirstTick   uint32  `json:"first_tick"`
	LastTick    uint32  `json:"last_tick"`
	SpanSecs    float64 `json:"span_secs"`
	ActiveTicks int     `json:"active_ticks"`

	TickStats TickStatistics `json:"tick_statistics"`
	TopNames  []NameCount    `json:"top_names"`

	RunID string `json:"run_id,omitempty"`
	// Tuning is the resolved classifier limits the decoder ran with,
	// taken from the -tuning file, kept with the report for provenance.
	Tuning *dem.Limits `json:"classifier_tuning,omitempty"`

	tickSeries []tickBucket
}

// TickStatistics holds events-per-tick statistics over active ticks.
type TickStatistics struct {
	MeanPerTick   float64 `json:"mean_per_tick"`
	StdDevPerTick float64 `json:"stddev_per_tick"`
	MaxPerTick    float64 `json:"max_per_tick"`
	P50PerTick    float64 `json:"p50_per_tick"`
	P95PerTick    float64 `json:"p95_per_tick"`
	P99PerTick    float64 `json:"p99_per_tick"`
}

// NameCount is one entry in the event name frequency table.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// tickBucket aggregates event counts for one tick, kept in tick order
// for the chart exports.
type tickBucket struct {
	tick       uint32
	callbacks  int
	gameEvents int
}

func main() {
	config := parseFlags()

	if config.InputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: input file is required")
		flag.Usage()
		os.Exit(1)
	}

	if config.InputFile != "-" {
		if _, err := os.Stat(config.InputFile); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: input file not found: %s\n", config.InputFile)
			os.Exit(1)
		}
	}

	// Create output directory
	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	if config.Quiet {
		log.SetOutput(io.Discard)
	}

	log.Printf("dem-report %s", version.String())

	var tuning *dem.Limits
	if config.TuningPath != "" {
		var err error
		tuning, err = loadTuning(config.TuningPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	result, events, err := analyzeLog(config)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	result.Tuning = tuning

	// Persist events before printing so the summary can show the run ID
	if config.DBPath != "" {
		if err := persistRun(config, result, events); err != nil {
			log.Fatalf("Persist failed: %v", err)
		}
	}

	// Print summary (unless in quiet mode)
	if !config.Quiet {
		printSummary(result)
	}

	// Export results
	if err := exportResults(config, result); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.InputFile, "in", "", "Path to JSONL event log, or - for stdin (required)")
	flag.StringVar(&config.OutputDir, "output", ".", "Output directory for results")
	flag.StringVar(&config.DBPath, "db", "", "SQLite database path (optional, for persistence)")
	flag.StringVar(&config.TuningPath, "tuning", "", "Classifier tuning file the log was decoded with (recorded for provenance)")
	flag.IntVar(&config.TopNames, "top", 10, "Number of event names to list in the summary")
	flag.BoolVar(&config.ExportJSON, "json", true, "Export full results to JSON")
	flag.BoolVar(&config.ExportPNG, "png", false, "Export events-per-tick plot to PNG")
	flag.BoolVar(&config.ExportHTML, "html", false, "Export interactive chart report to HTML")
	flag.BoolVar(&config.Quiet, "quiet", false, "Suppress summary output")
	flag.BoolVar(&config.Quiet, "q", false, "Suppress summary output (alias for -quiet)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Replay Event Log Report Tool\n\n")
		fmt.Fprintf(os.Stderr, "This tool summarises a JSON Lines event log produced by faeton:\n")
		fmt.Fprintf(os.Stderr, "  1. Scan records, skipping malformed lines\n")
		fmt.Fprintf(os.Stderr, "  2. Count callbacks and game events per tick and per name\n")
		fmt.Fprintf(os.Stderr, "  3. Compute events-per-tick rate statistics\n")
		fmt.Fprintf(os.Stderr, "  4. Export reports and optionally persist events to SQLite\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -in match.jsonl\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -in match.jsonl -png -html -output ./report\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -in match.jsonl -db faeton.db -tuning tuning.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  faeton -dem match.dem | %s -in - -q\n", os.Args[0])
	}

	flag.Parse()
	return config
}

// loadTuning reads a classifier tuning file and resolves it to the
// concrete limits the decoder ran with.
func loadTuning(path string) (*dem.Limits, error) {
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, err
	}
	limits := cfg.Limits()
	return &limits, nil
}

func analyzeLog(config Config) (*AnalysisResult, []db.Event, error) {
	start := time.Now()

	var in io.Reader
	if config.InputFile == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(config.InputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	result := &AnalysisResult{InputFile: config.InputFile}

	var (
		events   []db.Event
		byTick   = make(map[uint32]*tickBucket)
		byName   = make(map[string]int)
		firstSet bool
	)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec dem.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			result.MalformedLines++
			log.Printf("Skipping malformed line %d: %v", lineNo, err)
			continue
		}
		if err := rec.Validate(); err != nil {
			result.MalformedLines++
			log.Printf("Skipping malformed line %d: %v", lineNo, err)
			continue
		}

		result.TotalEvents++
		bucket := byTick[rec.Tick]
		if bucket == nil {
			bucket = &tickBucket{tick: rec.Tick}
			byTick[rec.Tick] = bucket
		}
		if rec.Kind == dem.KindGameEvent {
			result.GameEvents++
			bucket.gameEvents++
		} else {
			result.Callbacks++
			bucket.callbacks++
		}
		byName[rec.Name]++

		if !firstSet || rec.Tick < result.FirstTick {
			result.FirstTick = rec.Tick
			firstSet = true
		}
		if rec.Tick > result.LastTick {
			result.LastTick = rec.Tick
		}

		if config.DBPath != "" {
			events = append(events, toEventRow(rec))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan input: %w", err)
	}

	if firstSet {
		result.SpanSecs = units.TicksToSeconds(result.LastTick - result.FirstTick)
	}

	result.tickSeries = sortTickSeries(byTick)
	result.ActiveTicks = len(result.tickSeries)
	result.TickStats = computeTickStats(result.tickSeries)
	result.DistinctNames = len(byName)
	result.TopNames = topNames(byName, config.TopNames)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	return result, events, nil
}

// toEventRow converts a scanned record into its storage row. Payloads
// survive the round trip as raw JSON text.
func toEventRow(rec dem.Record) db.Event {
	row := db.Event{
		Kind:    string(rec.Kind),
		Name:    rec.Name,
		Tick:    int64(rec.Tick),
		NetTick: int64(rec.NetTick),
	}
	if raw, ok := rec.Payload.(json.RawMessage); ok {
		row.Payload = string(raw)
	}
	return row
}

func sortTickSeries(byTick map[uint32]*tickBucket) []tickBucket {
	series := make([]tickBucket, 0, len(byTick))
	for _, bucket := range byTick {
		series = append(series, *bucket)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].tick < series[j].tick })
	return series
}

func computeTickStats(series []tickBucket) TickStatistics {
	if len(series) == 0 {
		return TickStatistics{}
	}

	counts := make([]float64, 0, len(series))
	maxPerTick := 0.0
	for _, bucket := range series {
		total := float64(bucket.callbacks + bucket.gameEvents)
		counts = append(counts, total)
		if total > maxPerTick {
			maxPerTick = total
		}
	}

	// Quantile requires sorted input
	sorted := make([]float64, len(counts))
	copy(sorted, counts)
	sort.Float64s(sorted)

	stddev := 0.0
	if len(counts) > 1 {
		stddev = stat.StdDev(counts, nil)
	}

	return TickStatistics{
		MeanPerTick:   stat.Mean(counts, nil),
		StdDevPerTick: stddev,
		MaxPerTick:    maxPerTick,
		P50PerTick:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95PerTick:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99PerTick:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}

func topNames(byName map[string]int, limit int) []NameCount {
	names := make([]NameCount, 0, len(byName))
	for name, count := range byName {
		names = append(names, NameCount{Name: name, Count: count})
	}
	// Ties break alphabetically so output is stable across runs
	sort.Slice(names, func(i, j int) bool {
		if names[i].Count != names[j].Count {
			return names[i].Count > names[j].Count
		}
		return names[i].Name < names[j].Name
	})
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}

// persistRun stores the scanned events in SQLite under a fresh run ID,
// applying any pending schema migrations first.
func persistRun(config Config, result *AnalysisResult, events []db.Event) error {
	database, err := db.Open(config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	migrations, err := db.Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := database.MigrateUp(migrations); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	runID, err := database.BeginRun(config.InputFile)
	if err != nil {
		return err
	}
	if err := database.InsertEvents(runID, events); err != nil {
		return err
	}
	if result.Tuning != nil {
		tuning, err := json.Marshal(result.Tuning)
		if err != nil {
			return fmt.Errorf("marshal tuning: %w", err)
		}
		if err := database.RecordRunTuning(runID, string(tuning)); err != nil {
			return err
		}
	}
	if err := database.FinishRun(runID, int64(result.TotalEvents), int64(result.MalformedLines)); err != nil {
		return err
	}

	result.RunID = runID
	log.Printf("Persisted %d events to %s (run %s)", len(events), config.DBPath, runID)
	return nil
}

func printSummary(result *AnalysisResult) {
	fmt.Println("\n========== Replay Event Summary ==========")
	fmt.Printf("File: %s\n", result.InputFile)
	fmt.Printf("Span: %s of game time (ticks %d-%d, clock %s-%s)\n",
		units.TicksToDuration(result.LastTick-result.FirstTick),
		result.FirstTick, result.LastTick,
		units.FormatClock(result.FirstTick), units.FormatClock(result.LastTick))
	fmt.Printf("Processing time: %d ms\n", result.ProcessingTimeMs)
	fmt.Println()
	fmt.Printf("Events: %d total, %d callbacks, %d game events\n",
		result.TotalEvents, result.Callbacks, result.GameEvents)
	fmt.Printf("Malformed lines skipped: %d\n", result.MalformedLines)
	fmt.Printf("Active ticks: %d (%d distinct event names)\n", result.ActiveTicks, result.DistinctNames)
	fmt.Println("\nEvents per Active Tick:")
	fmt.Printf("  Mean: %.2f (stddev %.2f)\n", result.TickStats.MeanPerTick, result.TickStats.StdDevPerTick)
	fmt.Printf("  Max: %.0f\n", result.TickStats.MaxPerTick)
	fmt.Printf("  P50: %.1f\n", result.TickStats.P50PerTick)
	fmt.Printf("  P95: %.1f\n", result.TickStats.P95PerTick)
	fmt.Printf("  P99: %.1f\n", result.TickStats.P99PerTick)
	fmt.Println("\nTop Event Names:")
	for _, nc := range result.TopNames {
		pct := 100 * float64(nc.Count) / float64(result.TotalEvents)
		fmt.Printf("  %s: %d (%.1f%%)\n", nc.Name, nc.Count, pct)
	}
	if result.Tuning != nil {
		fmt.Printf("\nClassifier tuning: depth=%d list=%d map=%d printable=%.2f\n",
			result.Tuning.MaxDepth, result.Tuning.ListSample,
			result.Tuning.MapEntries, result.Tuning.PrintableRatio)
	}
	if result.RunID != "" {
		fmt.Printf("\nRun ID: %s\n", result.RunID)
	}
	fmt.Println("==========================================")
}

func exportResults(config Config, result *AnalysisResult) error {
	baseName := strings.TrimSuffix(filepath.Base(config.InputFile), filepath.Ext(config.InputFile))
	if config.InputFile == "-" {
		baseName = "stdin"
	}

	// Export JSON
	if config.ExportJSON {
		jsonPath := filepath.Join(config.OutputDir, baseName+"_report.json")
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON marshal: %w", err)
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		fmt.Printf("JSON report: %s\n", jsonPath)
	}

	// Export PNG plot
	if config.ExportPNG && len(result.tickSeries) > 0 {
		pngPath := filepath.Join(config.OutputDir, baseName+"_ticks.png")
		if err := exportTickPlot(pngPath, result); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		fmt.Printf("PNG plot: %s\n", pngPath)
	}

	// Export HTML chart report
	if config.ExportHTML {
		htmlPath := filepath.Join(config.OutputDir, baseName+"_report.html")
		if err := exportHTMLReport(htmlPath, result); err != nil {
			return fmt.Errorf("write HTML: %w", err)
		}
		fmt.Printf("HTML report: %s\n", htmlPath)
	}

	return nil
}

// exportTickPlot draws callback and game-event counts per tick as two
// lines over the tick axis.
func exportTickPlot(path string, result *AnalysisResult) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Events per Tick - %s", filepath.Base(result.InputFile))
	p.X.Label.Text = "Tick"
	p.Y.Label.Text = "Events"

	cbPts := make(plotter.XYs, 0, len(result.tickSeries))
	gePts := make(plotter.XYs, 0, len(result.tickSeries))
	for _, bucket := range result.tickSeries {
		if bucket.callbacks > 0 {
			cbPts = append(cbPts, plotter.XY{X: float64(bucket.tick), Y: float64(bucket.callbacks)})
		}
		if bucket.gameEvents > 0 {
			gePts = append(gePts, plotter.XY{X: float64(bucket.tick), Y: float64(bucket.gameEvents)})
		}
	}

	if len(cbPts) > 0 {
		cbLine, err := plotter.NewLine(cbPts)
		if err != nil {
			return err
		}
		cbLine.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
		cbLine.Width = vg.Points(1)
		p.Add(cbLine)
		p.Legend.Add("callbacks", cbLine)
	}

	if len(gePts) > 0 {
		geLine, err := plotter.NewLine(gePts)
		if err != nil {
			return err
		}
		geLine.Color = color.RGBA{R: 253, G: 231, B: 37, A: 255}
		geLine.Width = vg.Points(1)
		p.Add(geLine)
		p.Legend.Add("game events", geLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// exportHTMLReport renders an interactive page with a bar chart of top
// event names and a scatter of events per tick.
func exportHTMLReport(path string, result *AnalysisResult) error {
	x := make([]string, 0, len(result.TopNames))
	y := make([]opts.BarData, 0, len(result.TopNames))
	for _, nc := range result.TopNames {
		x = append(x, nc.Name)
		y = append(y, opts.BarData{Value: nc.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Replay Event Report", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Top Event Names", Subtitle: filepath.Base(result.InputFile)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("events", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	pts := make([]opts.ScatterData, 0, len(result.tickSeries))
	for _, bucket := range result.tickSeries {
		total := bucket.callbacks + bucket.gameEvents
		pts = append(pts, opts.ScatterData{Value: []interface{}{bucket.tick, total}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Events per Tick",
			Subtitle: fmt.Sprintf("ticks %d-%d, %d active", result.FirstTick, result.LastTick, result.ActiveTicks),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Events"}),
	)
	scatter.AddSeries("events", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	page := components.NewPage()
	page.AddCharts(bar, scatter)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}
