package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// Curve is a named sequence of windows, e.g. one training run.
type Curve struct {
	Name    string
	Windows []Window
}

// Plot renders the mean score and bust rate of each curve, window by window,
// as an HTML page.
func Plot(w io.Writer, title string, curves ...Curve) error {
	if len(curves) == 0 {
		return errors.New("nothing to plot")
	}

	numWindows := 0
	for _, c := range curves {
		if len(c.Windows) > numWindows {
			numWindows = len(c.Windows)
		}
	}

	turns := make([]string, numWindows)
	for _, c := range curves {
		for i, win := range c.Windows {
			turns[i] = fmt.Sprintf("%d", win.EndTurn)
		}
	}

	scores := charts.NewLine()
	scores.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "mean score"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)
	scores.SetXAxis(turns)

	busts := charts.NewLine()
	busts.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "bust rate"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)
	busts.SetXAxis(turns)

	for _, c := range curves {
		scoreItems := make([]opts.LineData, 0, len(c.Windows))
		bustItems := make([]opts.LineData, 0, len(c.Windows))
		for _, win := range c.Windows {
			scoreItems = append(scoreItems, opts.LineData{Value: win.MeanScore})
			bustItems = append(bustItems, opts.LineData{Value: win.BustRate})
		}

		scores.AddSeries(c.Name, scoreItems)
		busts.AddSeries(c.Name, bustItems)
	}

	page := components.NewPage()
	page.AddCharts(scores, busts)
	return page.Render(w)
}
