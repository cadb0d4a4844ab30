package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/utkarsh5026/procpool/pool"
)

// streamReports collects results as workers finish, advancing a progress bar
// on stderr. Results gathered before a failure are returned with the error.
func streamReports(
	ctx context.Context,
	p *pool.ProcessPool[string, Report],
	fn *pool.Func[string, Report],
	inputs []string,
	showProgress bool,
) ([]Report, error) {
	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Processing"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
		)
		defer func() { _ = bar.Finish() }()
	}

	reports := make([]Report, 0, len(inputs))
	for r, err := range p.ProcessUnordered(ctx, fn, slices.Values(inputs)) {
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
		if bar != nil {
			bar.Describe(r.Input)
			_ = bar.Add(1)
		}
	}
	return reports, nil
}

func printReports(w io.Writer, reports []Report) {
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Input", "Result", "Size", "PID", "Time")

	for i, r := range reports {
		_ = table.Append(
			strconv.Itoa(i+1),
			r.Input,
			r.Detail,
			formatSize(r.Size),
			strconv.Itoa(r.PID),
			r.Elapsed.Round(time.Millisecond).String(),
		)
	}

	_ = table.Render()
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
