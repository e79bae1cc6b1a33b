package plot

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/bmu-balancer/core/balancer"
	"github.com/kilianp07/bmu-balancer/core/model"
)

const (
	requestColor  = "#f28e2b"
	chosenColor   = "#e15759"
	candidateColor = "#4e79a7"
)

// Render writes one chart per asset, comparing its candidates and chosen
// instruction with the request, and a result chart comparing the combined
// delivery with the request.
func Render(w io.Writer, res balancer.Result) error {
	req := res.Request
	reqProfile, err := RequestProfile(req)
	if err != nil {
		return fmt.Errorf("request profile: %w", err)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Request %d on %s", req.ID, req.BMU)

	var chosen []Profile
	for _, asset := range req.Assets() {
		line := newLine(asset.String(), string(res.Solution.Status))
		for _, c := range res.Candidates {
			if c.Asset.ID != asset.ID || c.MW == 0 {
				continue
			}
			p, err := CandidateProfile(c)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", c, err)
			}
			addSeries(line, p, candidateColor)
		}
		addSeries(line, reqProfile, requestColor)
		if in, ok := instructionFor(res.Solution.Instructions, asset.ID); ok {
			p, err := InstructionProfile(asset, in)
			if err != nil {
				return fmt.Errorf("instruction %d: %w", in.ID, err)
			}
			p.Name = "Chosen"
			addSeries(line, p, chosenColor)
			chosen = append(chosen, p)
		}
		page.AddCharts(line)
	}

	result := newLine("Result", fmt.Sprintf("%g of %g MW", res.Solution.TotalMW(), req.MW))
	addSeries(result, reqProfile, requestColor)
	addSeries(result, Sum("Delivered", chosen...), chosenColor)
	page.AddCharts(result)

	return page.Render(w)
}

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time", Type: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MW"}),
	)
	return line
}

func addSeries(line *charts.Line, p Profile, color string) {
	data := make([]opts.LineData, 0, len(p.Points))
	for _, pt := range p.Points {
		data = append(data, opts.LineData{Value: []interface{}{pt.Time.UTC().Format(time.RFC3339), pt.MW}})
	}
	line.AddSeries(p.Name, data, charts.WithLineStyleOpts(opts.LineStyle{Color: color}))
}

func instructionFor(instrs []model.Instruction, assetID int) (model.Instruction, bool) {
	for _, in := range instrs {
		if in.AssetID == assetID {
			return in, true
		}
	}
	return model.Instruction{}, false
}
