package analysis

import (
	"context"
	"time"
)

// Step is one reported stage of an analysis job.
type Step struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

// Steps are reported in order while a video is processed.
var Steps = []Step{
	{Label: "Preparing video for analysis...", Percent: 0},
	{Label: "Processing video...", Percent: 20},
	{Label: "Analyzing movement...", Percent: 50},
	{Label: "Generating report...", Percent: 80},
	{Label: "Analysis complete!", Percent: 100},
}

// ReportProgress calls fn for every step but the last, pausing delay between
// steps. The final step is left to the caller once the result exists.
func ReportProgress(ctx context.Context, delay time.Duration, fn func(Step)) error {
	for i, st := range Steps[:len(Steps)-1] {
		fn(st)
		if delay <= 0 || i == len(Steps)-2 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Done is the final step.
func Done() Step { return Steps[len(Steps)-1] }
