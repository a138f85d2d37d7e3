package plot

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	renderWidth  = 1024
	renderHeight = 512
)

// Render draws the chart described by spec over the result records and
// returns it as a PNG image.
func Render(spec *Spec, records []map[string]any) ([]byte, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to plot")
	}

	labels := make([]string, 0, len(records))
	values := make([]float64, 0, len(records))
	for _, record := range records {
		value, err := toFloat(record[spec.Y])
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q is not numeric", spec.Y)
		}
		labels = append(labels, toLabel(record[spec.X]))
		values = append(values, value)
	}

	var buf bytes.Buffer
	var err error
	switch spec.Type {
	case TypeBar:
		err = renderBar(spec.Title, labels, values, &buf)
	case TypeLine:
		err = renderLine(spec.Title, labels, values, &buf)
	case TypePie:
		err = renderPie(spec.Title, labels, values, &buf)
	default:
		return nil, errors.Errorf("unsupported chart type %q", spec.Type)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to render chart")
	}
	return buf.Bytes(), nil
}

func renderBar(title string, labels []string, values []float64, buf *bytes.Buffer) error {
	bars := make([]chart.Value, len(values))
	for i := range values {
		bars[i] = chart.Value{Label: labels[i], Value: values[i]}
	}
	graph := chart.BarChart{
		Title:    title,
		Width:    renderWidth,
		Height:   renderHeight,
		BarWidth: 60,
		Bars:     bars,
	}
	return graph.Render(chart.PNG, buf)
}

func renderLine(title string, labels []string, values []float64, buf *bytes.Buffer) error {
	xs := make([]float64, len(values))
	ticks := make([]chart.Tick, len(values))
	for i := range values {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: labels[i]}
	}
	graph := chart.Chart{
		Title:  title,
		Width:  renderWidth,
		Height: renderHeight,
		XAxis: chart.XAxis{
			Ticks: ticks,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: values},
		},
	}
	return graph.Render(chart.PNG, buf)
}

func renderPie(title string, labels []string, values []float64, buf *bytes.Buffer) error {
	slices := make([]chart.Value, 0, len(values))
	for i := range values {
		if values[i] <= 0 {
			continue
		}
		slices = append(slices, chart.Value{Label: labels[i], Value: values[i]})
	}
	if len(slices) == 0 {
		return errors.New("no positive values to plot")
	}
	graph := chart.PieChart{
		Title:  title,
		Width:  renderHeight,
		Height: renderHeight,
		Values: slices,
	}
	return graph.Render(chart.PNG, buf)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, errors.Errorf("unsupported value type %T", value)
	}
}

func toLabel(value any) string {
	if related, ok := value.(map[string]any); ok {
		if name, ok := related["display_name"].(string); ok {
			return name
		}
	}
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
