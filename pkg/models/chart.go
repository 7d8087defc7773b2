package models

// ChartPoint is one plotted (label, value) pair. A nil Value renders as a
// gap rather than zero.
type ChartPoint struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// ChartSeries is one named line/bar of a chart with an optional fixed color.
type ChartSeries struct {
	Name   string       `json:"name"`
	Color  string       `json:"color,omitempty"`
	Dashed bool         `json:"dashed,omitempty"`
	Data   []ChartPoint `json:"data"`
}

// ChartConfig is a renderable chart specification. It carries only visual
// encoding choices; all statistics are computed by the analysis transformers
// upstream.
type ChartConfig struct {
	ChartType  string        `json:"chart_type"` // "line", "bar", "area"
	Title      string        `json:"title"`
	XAxis      string        `json:"x_axis"`
	YAxis      string        `json:"y_axis"`
	Series     []ChartSeries `json:"series"`
	ShowLegend bool          `json:"show_legend"`
	YMin       *float64      `json:"y_min,omitempty"`
	YMax       *float64      `json:"y_max,omitempty"`
	// Placeholder is set when the underlying analysis was flagged
	// insufficient; the UI shows this message instead of the chart.
	Placeholder string `json:"placeholder,omitempty"`
}
