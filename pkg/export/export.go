// Package export renders solve outcomes as JSON, CSV or console tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/bmu-balancer/core/balancer"
)

// ErrUnknownFormat is returned by Write for unsupported formats.
var ErrUnknownFormat = errors.New("export: unknown format")

// Format selects an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// Document is the serialised outcome of one solve. Timestamps are RFC 3339
// and money values are rounded to pence.
type Document struct {
	SolveID      string           `json:"solve_id,omitempty"`
	RequestID    int              `json:"request_id"`
	BMU          string           `json:"bmu"`
	Status       string           `json:"status"`
	Objective    *decimal.Decimal `json:"objective"`
	RequestedMW  float64          `json:"requested_mw"`
	InstructedMW float64          `json:"instructed_mw"`
	Candidates   int              `json:"candidates"`
	Instructions []Instruction    `json:"instructions"`
}

// Instruction is the serialised form of one instruction.
type Instruction struct {
	ID        int     `json:"id"`
	AssetID   int     `json:"asset_id"`
	Asset     string  `json:"asset,omitempty"`
	MW        float64 `json:"mw"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	RequestID int     `json:"request"`
}

// NewDocument builds the document of res.
func NewDocument(solveID string, res balancer.Result) Document {
	doc := Document{
		SolveID:      solveID,
		RequestID:    res.Request.ID,
		BMU:          res.Request.BMU.String(),
		Status:       string(res.Solution.Status),
		RequestedMW:  res.Request.MW,
		InstructedMW: res.Solution.TotalMW(),
		Candidates:   len(res.Candidates),
		Instructions: make([]Instruction, 0, len(res.Solution.Instructions)),
	}
	if res.Solution.Objective != nil {
		obj := Money(*res.Solution.Objective)
		doc.Objective = &obj
	}
	names := make(map[int]string, len(res.Request.BMU.Assets))
	for _, a := range res.Request.BMU.Assets {
		names[a.ID] = a.Name
	}
	for _, in := range res.Solution.Instructions {
		doc.Instructions = append(doc.Instructions, Instruction{
			ID:        in.ID,
			AssetID:   in.AssetID,
			Asset:     names[in.AssetID],
			MW:        in.MW,
			Start:     in.Start.UTC().Format(time.RFC3339),
			End:       in.End.UTC().Format(time.RFC3339),
			RequestID: in.RequestID,
		})
	}
	return doc
}

// Money rounds v to two decimal places.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Write renders doc to w in the requested format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatCSV:
		return WriteCSV(w, doc)
	case FormatTable:
		return WriteTable(w, doc)
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// WriteJSON writes doc to w as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCSV writes one row per instruction.
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "asset_id", "asset", "mw", "start", "end", "request"}); err != nil {
		return err
	}
	for _, in := range doc.Instructions {
		rec := []string{
			strconv.Itoa(in.ID),
			strconv.Itoa(in.AssetID),
			in.Asset,
			strconv.FormatFloat(in.MW, 'f', -1, 64),
			in.Start,
			in.End,
			strconv.Itoa(in.RequestID),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
