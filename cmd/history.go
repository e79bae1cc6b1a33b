package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bmu-balancer/app"
	"github.com/kilianp07/bmu-balancer/core/solvelog"
	"github.com/kilianp07/bmu-balancer/pkg/export"
)

var historyOpts struct {
	solveID string
	bmu     string
	status  string
	asset   int
	since   time.Duration
	limit   int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List logged solves",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyOpts.solveID, "solve-id", "", "only this solve")
	f.StringVar(&historyOpts.bmu, "bmu", "", "only solves for this BMU, as in BMU(name)")
	f.StringVar(&historyOpts.status, "status", "", "only solves with this status")
	f.IntVar(&historyOpts.asset, "asset", 0, "only solves instructing this asset id")
	f.DurationVar(&historyOpts.since, "since", 0, "only solves logged within this duration")
	f.IntVarP(&historyOpts.limit, "limit", "n", 20, "keep the most recent n solves, 0 for all")
	rootCmd.AddCommand(historyCmd)
}

func historyQuery(now time.Time) solvelog.LogQuery {
	q := solvelog.LogQuery{
		SolveID: historyOpts.solveID,
		BMU:     historyOpts.bmu,
		Status:  historyOpts.status,
		AssetID: historyOpts.asset,
		Limit:   historyOpts.limit,
	}
	if historyOpts.since > 0 {
		q.Start = now.Add(-historyOpts.since)
	}
	return q
}

func runHistory(cmd *cobra.Command, _ []string) error {
	return withService(func(ctx context.Context, svc *app.Service) error {
		recs, err := svc.History(ctx, historyQuery(time.Now()))
		if err != nil {
			return err
		}
		return export.WriteHistory(cmd.OutOrStdout(), recs)
	})
}
