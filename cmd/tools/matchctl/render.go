package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"marketplace-matching/internal/matching"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	excellentColor = color.New(color.FgGreen, color.Bold)
	goodColor      = color.New(color.FgCyan)
	fairColor      = color.New(color.FgYellow)
	poorColor      = color.New(color.FgRed)
)

// scoreLabel maps a 0-100 match score to a colored band.
func scoreLabel(score int) string {
	switch {
	case score >= 80:
		return excellentColor.Sprint("Excellent")
	case score >= 60:
		return goodColor.Sprint("Good")
	case score >= 40:
		return fairColor.Sprint("Fair")
	default:
		return poorColor.Sprint("Poor")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func writeScoreTable(w io.Writer, requesterID, providerID string, result matching.MatchResult) error {
	fmt.Fprintf(w, "%s x %s: %d (%s)\n", requesterID, providerID, result.Score, scoreLabel(result.Score))
	if result.Boost > 0 {
		fmt.Fprintf(w, "premium boost: +%.0f%%\n", result.Boost*100)
	}

	data := make([][]string, 0, len(result.Dimensions))
	for _, d := range result.Dimensions {
		defaulted := ""
		if d.Defaulted {
			defaulted = "yes"
		}
		data = append(data, []string{
			d.Name,
			fmt.Sprintf("%.2f", d.Score),
			fmt.Sprintf("%.2f", d.Weight),
			defaulted,
		})
	}

	table := newTable(w, []string{"Dimension", "Score", "Weight", "Defaulted"})
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, e := range result.Explanations {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

type rankingView[T matching.Identified] struct {
	Ranked   []matching.Scored[T]  `json:"ranked"`
	Rejected []matching.Rejection `json:"rejected"`
}

func writeRanking[T matching.Identified](w io.Writer, asJSON bool, ranked []matching.Scored[T], rejected []matching.Rejection) error {
	if rejected == nil {
		rejected = []matching.Rejection{}
	}
	if asJSON {
		return writeJSON(w, rankingView[T]{Ranked: ranked, Rejected: rejected})
	}

	data := make([][]string, 0, len(ranked))
	for i, s := range ranked {
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			s.Candidate.CandidateID(),
			fmt.Sprintf("%d", s.Result.Score),
			scoreLabel(s.Result.Score),
			boostCell(s.Result.Boost),
		})
	}

	table := newTable(w, []string{"Rank", "Candidate", "Score", "Band", "Boost"})
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(rejected) > 0 {
		fmt.Fprintf(w, "%d rejected:\n", len(rejected))
		for _, r := range rejected {
			id := r.CandidateID
			if strings.TrimSpace(id) == "" {
				id = "<no id>"
			}
			fmt.Fprintf(w, "  [%d] %s: %s\n", r.Index, id, r.Reason)
		}
	}
	return nil
}

func boostCell(boost float64) string {
	if boost <= 0 {
		return "-"
	}
	return fmt.Sprintf("+%.0f%%", boost*100)
}
