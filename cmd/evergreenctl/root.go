package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Evergreen/internal/cluster"
	"github.com/MikeSquared-Agency/Evergreen/internal/config"
	"github.com/MikeSquared-Agency/Evergreen/internal/ingest"
	"github.com/MikeSquared-Agency/Evergreen/internal/pipeline"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
)

type runFlags struct {
	configPath string
	seed       int64
	seedSet    bool
	mode       string
	priority   float64
	top        int
	output     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	f := &runFlags{}

	root := &cobra.Command{
		Use:          "evergreenctl",
		Short:        "Score and cluster product sustainability data offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config file")
	root.PersistentFlags().Int64Var(&f.seed, "seed", 0, "random seed (defaults to runner.default_seed)")
	root.PersistentFlags().StringVarP(&f.output, "output", "o", "table", "output format: table or json")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	score := &cobra.Command{
		Use:   "score FILE",
		Short: "Rank records from a JSON or CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.seedSet = cmd.Flags().Changed("seed")
			res, err := runFile(cmd, f, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.output == "json" {
				return writeJSON(out, res.Recommendations)
			}
			return printRecommendations(out, res.Recommendations)
		},
	}
	score.Flags().StringVar(&f.mode, "mode", "", "recommendation mode: ranked, pareto_first or categorized")
	score.Flags().Float64Var(&f.priority, "priority", -1, "sustainability priority within [0,1]")
	score.Flags().IntVarP(&f.top, "top", "n", 0, "number of recommendations per list")

	clusters := &cobra.Command{
		Use:   "clusters FILE",
		Short: "Show category aggregates, their clusters and the elbow curve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.seedSet = cmd.Flags().Changed("seed")
			res, err := runFile(cmd, f, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.output == "json" {
				return writeJSON(out, struct {
					Categories []scoring.CategoryAggregate `json:"categories"`
					Elbow      cluster.ElbowResult         `json:"elbow"`
				}{res.Categories, res.Elbow})
			}
			if err := printCategories(out, res.Categories); err != nil {
				return err
			}
			return printElbow(out, res.Elbow)
		},
	}

	root.AddCommand(score, clusters)
	return root
}

// runFile loads configuration, applies flag overrides and runs the pipeline.
func runFile(cmd *cobra.Command, f *runFlags, path string) (*pipeline.Result, error) {
	if f.output != "table" && f.output != "json" {
		return nil, fmt.Errorf("unknown output format %q", f.output)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	if f.mode != "" {
		mode, err := scoring.ParseMode(f.mode)
		if err != nil {
			return nil, err
		}
		opts.Recommend.Mode = mode
	}
	if cmd.Flags().Changed("priority") {
		if f.priority < 0 || f.priority > 1 {
			return nil, fmt.Errorf("priority must be within [0,1], got %g", f.priority)
		}
		opts.Recommend.Priority = f.priority
	}
	if cmd.Flags().Changed("top") {
		opts.Recommend.TopN = f.top
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	p, err := pipeline.New(opts, logger)
	if err != nil {
		return nil, err
	}

	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	mapper, err := ingest.NewMapper(nil)
	if err != nil {
		return nil, err
	}
	records := mapper.Map(rows)
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no records", path)
	}

	seed := cfg.Runner.DefaultSeed
	if f.seedSet {
		seed = f.seed
	}
	return p.Run(cmd.Context(), records, rand.New(rand.NewSource(seed)))
}

// readRows decodes a JSON array of objects, or a CSV file with a header row.
func readRows(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return parseCSV(data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, nil
}

func parseCSV(data []byte) ([]map[string]interface{}, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows []map[string]interface{}
	for {
		line, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(line) && line[i] != "" {
				row[col] = line[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
