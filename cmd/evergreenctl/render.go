package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/MikeSquared-Agency/Evergreen/internal/cluster"
	"github.com/MikeSquared-Agency/Evergreen/internal/scoring"
)

var paretoColor = color.New(color.FgGreen, color.Bold)

func fmtScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func fmtOptional(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func printRecommendations(w io.Writer, set scoring.RecommendationSet) error {
	fmt.Fprintf(w, "Mode: %s\n", set.Mode)
	switch set.Mode {
	case scoring.ModeCategorized:
		lists := []struct {
			title string
			recs  []scoring.Recommendation
		}{
			{"Max sustainability", set.MaxSustainability},
			{"Best value", set.BestValue},
			{"Balanced", set.Balanced},
		}
		for _, l := range lists {
			fmt.Fprintf(w, "\n%s\n", l.title)
			if err := recommendationTable(w, l.recs); err != nil {
				return err
			}
		}
		return nil
	default:
		return recommendationTable(w, set.Ranked)
	}
}

func recommendationTable(w io.Writer, recs []scoring.Recommendation) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Brand", "Category", "SIS", "Env", "Policy", "Price", "Score", "Pareto"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(recs))
	for i, r := range recs {
		pareto := ""
		if r.IsPareto {
			pareto = paretoColor.Sprint("yes")
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.Brand,
			scoring.CategoryKey(r.Category),
			fmtScore(r.SIS),
			fmtScore(r.Environmental),
			fmtScore(r.Policy),
			fmtOptional(r.Price),
			fmtScore(r.FinalScore),
			pareto,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printCategories(w io.Writer, aggs []scoring.CategoryAggregate) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Category", "Count", "Carbon", "Water", "Waste", "Price", "SIS", "Cluster"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		data = append(data, []string{
			a.Category,
			strconv.Itoa(a.Count),
			fmtOptional(a.Carbon),
			fmtOptional(a.Water),
			fmtOptional(a.Waste),
			fmtOptional(a.Price),
			fmtScore(a.SIS),
			strconv.Itoa(a.Cluster),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printElbow(w io.Writer, e cluster.ElbowResult) error {
	if len(e.Curve) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nElbow (selected k=%d)\n", e.BestK)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"K", "Inertia", ""})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data := make([][]string, 0, len(e.Curve))
	for _, pt := range e.Curve {
		mark := ""
		if pt.K == e.BestK {
			mark = "*"
		}
		data = append(data, []string{strconv.Itoa(pt.K), strconv.FormatFloat(pt.Inertia, 'f', 4, 64), mark})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
