package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bmu-balancer/app"
	"github.com/kilianp07/bmu-balancer/pkg/export"
	"github.com/kilianp07/bmu-balancer/pkg/plot"
)

var solveOpts struct {
	output  string
	format  string
	plot    string
	publish bool
}

var solveCmd = &cobra.Command{
	Use:   "solve <input>",
	Short: "Balance the request of an input document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveOpts.output, "output", "o", "", "write the result to this file instead of stdout")
	f.StringVarP(&solveOpts.format, "format", "f", string(export.FormatTable), "result format: json, csv or table")
	f.StringVar(&solveOpts.plot, "plot", "", "write an HTML chart of the profiles to this file")
	f.BoolVar(&solveOpts.publish, "publish", false, "publish instructions to the assets over MQTT")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	format := export.Format(solveOpts.format)
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatTable:
	default:
		return fmt.Errorf("%q: %w", format, export.ErrUnknownFormat)
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		out, err := svc.SolveFile(ctx, args[0], solveOpts.publish)
		if err != nil {
			return err
		}
		w, closeOut, err := openOutput(cmd, solveOpts.output)
		if err != nil {
			return err
		}
		if err := export.Write(w, format, export.NewDocument(out.SolveID, out.Result)); err != nil {
			_ = closeOut()
			return err
		}
		if err := closeOut(); err != nil {
			return err
		}
		for _, d := range out.Deliveries {
			if !d.Acked {
				fmt.Fprintf(cmd.ErrOrStderr(), "asset %d: no acknowledgment for %s\n", d.AssetID, d.CommandID)
			}
		}
		if solveOpts.plot == "" {
			return nil
		}
		return writePlot(cmd, solveOpts.plot, out)
	})
}

func writePlot(cmd *cobra.Command, path string, out app.Outcome) error {
	w, closeOut, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	if err := plot.Render(w, out.Result); err != nil {
		_ = closeOut()
		return fmt.Errorf("plot: %w", err)
	}
	return closeOut()
}
