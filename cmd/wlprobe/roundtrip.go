package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func roundtripCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Measure wl_display.sync round-trip latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			ctx, c, stop, err := opts.session(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			var stats latencyStats
			for i := 0; i < count; i++ {
				start := time.Now()
				if _, err := c.Sync(ctx); err != nil {
					return fmt.Errorf("sync %d: %w", i+1, err)
				}
				stats.add(time.Since(start))
			}
			fmt.Fprintln(cmd.OutOrStdout(), stats.String())
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of round trips")
	return cmd
}

type latencyStats struct {
	n        int
	total    time.Duration
	min, max time.Duration
}

func (s *latencyStats) add(d time.Duration) {
	if s.n == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.n++
	s.total += d
}

func (s latencyStats) String() string {
	if s.n == 0 {
		return "no round trips"
	}
	avg := s.total / time.Duration(s.n)
	return fmt.Sprintf("%d round trips: min=%v avg=%v max=%v", s.n, s.min, avg, s.max)
}
