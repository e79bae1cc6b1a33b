package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kilianp07/bmu-balancer/core/solvelog"
)

// WriteTable prints a summary line followed by the instruction table.
func WriteTable(w io.Writer, doc Document) error {
	objective := "n/a"
	if doc.Objective != nil {
		objective = "£" + doc.Objective.StringFixed(2)
	}
	if _, err := fmt.Fprintf(w, "request %d on %s: %s, objective %s, %g of %g MW from %d candidates\n",
		doc.RequestID, doc.BMU, doc.Status, objective, doc.InstructedMW, doc.RequestedMW, doc.Candidates); err != nil {
		return err
	}
	if len(doc.Instructions) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "Asset", "MW", "Start", "End", "Request")
	for _, in := range doc.Instructions {
		asset := in.Asset
		if asset == "" {
			asset = strconv.Itoa(in.AssetID)
		}
		if err := table.Append(
			strconv.Itoa(in.ID),
			asset,
			strconv.FormatFloat(in.MW, 'f', -1, 64),
			in.Start,
			in.End,
			strconv.Itoa(in.RequestID),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteHistory prints one row per logged solve.
func WriteHistory(w io.Writer, recs []solvelog.LogRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("Solve", "Time", "Request", "BMU", "Status", "Objective", "MW", "Instructions", "Took")
	for _, r := range recs {
		objective := "-"
		if r.Objective != nil {
			objective = Money(*r.Objective).StringFixed(2)
		}
		if err := table.Append(
			r.SolveID,
			r.Timestamp.UTC().Format(time.RFC3339),
			strconv.Itoa(r.RequestID),
			r.BMU,
			r.Status,
			objective,
			fmt.Sprintf("%g/%g", r.InstructedMW(), r.RequestedMW),
			strconv.Itoa(len(r.Instructions)),
			fmt.Sprintf("%.1fms", r.DurationMS),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
