package board

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"

	"incidentdesk/internal/core"
)

// ErrEmptyChart is returned when there are no buckets to draw.
var ErrEmptyChart = errors.New("chart has no data")

const (
	chartWidth  = 640
	chartHeight = 640
)

// renderPie draws c as a PNG pie chart, one slice per bucket in bucket order.
func renderPie(w io.Writer, c core.Chart, title string) error {
	if len(c.Buckets) == 0 {
		return ErrEmptyChart
	}
	values := make([]chart.Value, 0, len(c.Buckets))
	for _, b := range c.Buckets {
		values = append(values, chart.Value{
			Value: float64(b.Count),
			Label: fmt.Sprintf("%s (%d)", b.Key, b.Count),
		})
	}
	pie := chart.PieChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Values: values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
