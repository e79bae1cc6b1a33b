package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/bmu-balancer/app"
	"github.com/kilianp07/bmu-balancer/pkg/inputs"
)

var profileOpts struct {
	runs       int
	cpuProfile string
}

var profileCmd = &cobra.Command{
	Use:   "profile <input>",
	Short: "Solve an input repeatedly and report timings",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func init() {
	f := profileCmd.Flags()
	f.IntVarP(&profileOpts.runs, "runs", "n", 10, "number of solves")
	f.StringVar(&profileOpts.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	rootCmd.AddCommand(profileCmd)
}

// timings summarises solve durations.
type timings struct {
	Min, Max, Mean time.Duration
}

func summarize(ds []time.Duration) timings {
	if len(ds) == 0 {
		return timings{}
	}
	t := timings{Min: ds[0], Max: ds[0]}
	var total time.Duration
	for _, d := range ds {
		total += d
		t.Min = min(t.Min, d)
		t.Max = max(t.Max, d)
	}
	t.Mean = total / time.Duration(len(ds))
	return t
}

func runProfile(cmd *cobra.Command, args []string) error {
	if profileOpts.runs <= 0 {
		return errors.New("runs must be positive")
	}
	data, err := inputs.Load(args[0])
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		metricsErr := make(chan error, 1)
		go func() { metricsErr <- svc.ServeMetrics(ctx) }()

		if profileOpts.cpuProfile != "" {
			f, err := os.Create(profileOpts.cpuProfile)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				return err
			}
			defer pprof.StopCPUProfile()
		}

		ds := make([]time.Duration, 0, profileOpts.runs)
		var status string
		for range profileOpts.runs {
			out, err := svc.Solve(ctx, data, false)
			if err != nil {
				return err
			}
			ds = append(ds, out.Elapsed)
			status = string(out.Result.Solution.Status)
		}
		t := summarize(ds)
		fmt.Fprintf(cmd.OutOrStdout(), "%d solves (%s): min %s, mean %s, max %s\n",
			len(ds), status, t.Min, t.Mean, t.Max)

		select {
		case err := <-metricsErr:
			return err
		default:
			return nil
		}
	})
}
