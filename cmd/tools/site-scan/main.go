// cmd/tools/site-scan/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"h2-siting-workers/internal/common/config"
	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/recommend"
	"h2-siting-workers/internal/siting/scoring"
)

type options struct {
	datasetPath string
	configPath  string
	bbox        string
	resolution  float64
	max         int
	minScore    float64
	asJSON      bool
	verbose     bool
	timeout     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.datasetPath, "dataset", "", "Path to a dataset JSON file (renewables, demandCenters, infrastructure)")
	flag.StringVar(&opts.configPath, "config", "", "Optional config.yaml to read scoring weights and thresholds from")
	flag.StringVar(&opts.bbox, "bbox", "", "Bounding box as south,west,north,east")
	flag.Float64Var(&opts.resolution, "resolution", 0.5, "Grid resolution in degrees")
	flag.IntVar(&opts.max, "max", recommend.DefaultMaxRecommendations, "Maximum recommendations")
	flag.Float64Var(&opts.minScore, "min-score", recommend.DefaultMinScore, "Minimum total score")
	flag.BoolVar(&opts.asJSON, "json", false, "Print the full result as JSON")
	flag.BoolVar(&opts.verbose, "v", false, "Log scoring details to stderr")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Scan timeout")
	flag.Parse()

	if opts.datasetPath == "" || opts.bbox == "" {
		fmt.Fprintln(os.Stderr, "Error: -dataset and -bbox are required.")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	box, err := parseBoundingBox(opts.bbox)
	if err != nil {
		return err
	}
	if err := box.Validate(); err != nil {
		return err
	}

	dataset, err := loadDataset(opts.datasetPath)
	if err != nil {
		return err
	}

	profile, err := loadProfile(opts.configPath)
	if err != nil {
		return err
	}

	log := logger.NewNoOpLogger()
	if opts.verbose {
		log = logger.NewStructured("debug", "console")
	}

	loader := recommend.StaticLoader{Dataset: *dataset, PadKm: profile.Thresholds.MaxDistance}
	clipped, err := loader.LoadDataset(ctx, box)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	engine := recommend.NewEngine(scoring.NewScorer(), nil, recommend.WithLogger(log))
	result, err := engine.Generate(ctx, recommend.Params{
		Dataset:            *clipped,
		BoundingBox:        box,
		MaxRecommendations: opts.max,
		MinScore:           opts.minScore,
		GridResolution:     opts.resolution,
		Profile:            &profile,
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printTable(out, result)
}

func parseBoundingBox(s string) (models.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.BoundingBox{}, fmt.Errorf("bbox must be south,west,north,east, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BoundingBox{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	return models.BoundingBox{South: v[0], West: v[1], North: v[2], East: v[3]}, nil
}

func loadDataset(path string) (*models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds models.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return &ds, nil
}

func loadProfile(configPath string) (scoring.Profile, error) {
	if configPath == "" {
		return scoring.DefaultProfile(), nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return scoring.Profile{}, err
	}
	return scoring.NewProfile(cfg.Scoring.Weights, cfg.Scoring.Thresholds)
}

func printTable(out io.Writer, result *recommend.Result) error {
	fmt.Fprintf(out, "run %s: %d grid points, %d failed, %d filtered, %d recommended\n\n",
		result.RunID, result.GridPoints, result.Failed, result.Filtered, len(result.Recommendations))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tLAT\tLON\tSCORE\tRATING\tRENEW\tDEMAND\tCOST\tREG\tMW\tCOST($M)")
	for _, r := range result.Recommendations {
		f := r.Factors
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.2f\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.0f\t%.2f\n",
			r.Rank, r.Latitude, r.Longitude, r.TotalScore, r.ViabilityRating,
			f.RenewableScore, f.DemandScore, f.CostScore, f.RegulatoryScore,
			r.RecommendedCapacity, r.EstimatedCost)
	}
	return w.Flush()
}
