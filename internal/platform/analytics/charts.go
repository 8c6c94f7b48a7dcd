package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/labdesk/labdesk/internal/platform/apperr"
)

// ChartNames lists the dashboard charts Chart can render.
var ChartNames = []string{"daily", "payment-status", "results", "gender", "aging"}

// Chart renders the named dashboard chart as a standalone HTML page. r scopes
// the range-based charts; daily and aging ignore it.
func (s *Service) Chart(ctx context.Context, name string, r Range) ([]byte, error) {
	switch name {
	case "daily":
		rows, err := s.DailyTrend(ctx, DefaultTrendDays)
		if err != nil {
			return nil, err
		}
		return renderChart(dailyChart(rows))
	case "payment-status":
		rev, err := s.Revenue(ctx, r)
		if err != nil {
			return nil, err
		}
		data := make([]opts.PieData, 0, len(rev.ByStatus))
		for _, b := range rev.ByStatus {
			data = append(data, opts.PieData{Name: b.Status, Value: b.Amount.InexactFloat64()})
		}
		return renderChart(pieChart("Billed by payment status", rangeLabel(r), data))
	case "results":
		ts, err := s.Tests(ctx, r, DefaultTopTests)
		if err != nil {
			return nil, err
		}
		d := ts.Distribution
		return renderChart(pieChart("Result distribution", rangeLabel(r), []opts.PieData{
			{Name: "Normal", Value: d.Normal},
			{Name: "Abnormal", Value: d.Abnormal},
			{Name: "Pending", Value: d.Pending},
		}))
	case "gender":
		ps, err := s.Patients(ctx, r)
		if err != nil {
			return nil, err
		}
		data := make([]opts.PieData, 0, len(ps.Genders))
		for _, g := range ps.Genders {
			data = append(data, opts.PieData{Name: g.Gender, Value: g.Count})
		}
		return renderChart(pieChart("Active patients by gender", rangeLabel(r), data))
	case "aging":
		a, err := s.Outstanding(ctx)
		if err != nil {
			return nil, err
		}
		data := make([]opts.PieData, 0, len(a.Buckets))
		for _, b := range a.Buckets {
			data = append(data, opts.PieData{Name: b.Label + " days", Value: b.Amount.InexactFloat64()})
		}
		return renderChart(pieChart("Outstanding by age", "as of "+a.AsOf.String(), data))
	}
	return nil, apperr.NotFoundMessage(fmt.Sprintf("chart %q not found", name))
}

type renderer interface {
	Render(w io.Writer) error
}

func renderChart(c renderer) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func rangeLabel(r Range) string {
	return r.From.String() + " to " + r.To.String()
}

func dailyChart(rows []DailyRevenue) *charts.Line {
	x := make([]string, 0, len(rows))
	revenue := make([]opts.LineData, 0, len(rows))
	collection := make([]opts.LineData, 0, len(rows))
	for _, r := range rows {
		x = append(x, r.Date.String())
		revenue = append(revenue, opts.LineData{Value: r.Revenue.InexactFloat64()})
		collection = append(collection, opts.LineData{Value: r.Collection.InexactFloat64()})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Daily revenue"}),
		charts.WithTitleOpts(opts.Title{Title: "Daily revenue", Subtitle: fmt.Sprintf("last %d days", DefaultTrendDays)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Rs."}),
	)
	line.SetXAxis(x).
		AddSeries("Revenue", revenue).
		AddSeries("Collection", collection).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}))
	return line
}

func pieChart(title, subtitle string, data []opts.PieData) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)
	pie.AddSeries(title, data)
	return pie
}
