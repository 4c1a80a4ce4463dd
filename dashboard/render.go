package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/spektr-org/salesdash/engine"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	headingColor = color.New(color.FgYellow)
	warnColor    = color.New(color.FgRed)
)

// RenderJSON writes d as indented JSON.
func RenderJSON(w io.Writer, d *Dashboard) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// RenderCSV writes the metrics, each chart and the preview as CSV blocks
// separated by blank lines, ready to paste into a spreadsheet.
func RenderCSV(w io.Writer, d *Dashboard) error {
	cw := csv.NewWriter(w)

	if d.Empty {
		_ = cw.Write([]string{"Warning", d.Warning})
		cw.Flush()
		return cw.Error()
	}

	_ = cw.Write([]string{"Metric", "Value"})
	for _, m := range d.Metrics {
		_ = cw.Write([]string{m.Label, m.Value})
	}

	for _, c := range d.Charts {
		if c == nil || len(c.Series) == 0 {
			continue
		}
		_ = cw.Write(nil)
		writeChartCSV(cw, c)
	}

	for _, t := range []*engine.TableData{d.Breakdown, d.Preview} {
		if t == nil || len(t.Columns) == 0 {
			continue
		}
		_ = cw.Write(nil)
		writeTableCSV(cw, t)
	}

	cw.Flush()
	return cw.Error()
}

func writeTableCSV(cw *csv.Writer, t *engine.TableData) {
	headers := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		headers = append(headers, c.Label)
	}
	_ = cw.Write(headers)
	for _, row := range t.Rows {
		_ = cw.Write(row)
	}
}

// writeChartCSV writes the chart label column plus one column per series.
func writeChartCSV(cw *csv.Writer, c *engine.ChartConfig) {
	xLabel := c.XAxis
	if xLabel == "" {
		xLabel = "Label"
	}

	headers := []string{xLabel}
	if len(c.Series) == 1 {
		yLabel := c.YAxis
		if yLabel == "" {
			yLabel = "Value"
		}
		headers = append(headers, yLabel)
	} else {
		for _, s := range c.Series {
			headers = append(headers, s.Name)
		}
	}
	_ = cw.Write(headers)

	for i, p := range c.Series[0].Data {
		row := []string{p.Label}
		for _, s := range c.Series {
			if i < len(s.Data) {
				row = append(row, fmtNum(s.Data[i].Value))
			} else {
				row = append(row, "")
			}
		}
		_ = cw.Write(row)
	}
}

// fmtNum prints whole numbers without decimals and everything else with two.
func fmtNum(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderText writes d as coloured headings and tables.
func RenderText(w io.Writer, d *Dashboard) error {
	titleColor.Fprintf(w, "\n=== %s ===\n", d.Title)
	fmt.Fprintf(w, "Years: %s | Countries: %s | Filtered rows: %d\n",
		selectionText(d.Selection.Years), selectionText(d.Selection.Countries), d.Rows)

	if d.Empty {
		warnColor.Fprintf(w, "\n%s\n", d.Warning)
		return nil
	}

	headingColor.Fprintln(w, "\nMetrics")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, m := range d.Metrics {
		table.Append([]string{m.Label, m.Value})
	}
	table.Render()

	for _, c := range d.Charts {
		renderChart(w, c)
	}

	for _, t := range []*engine.TableData{d.Breakdown, d.Preview} {
		if t == nil || len(t.Rows) == 0 {
			continue
		}
		headingColor.Fprintln(w, "\n"+t.Title)
		RenderTable(w, t)
	}
	return nil
}

// RenderTable writes a TableData with tablewriter.
func RenderTable(w io.Writer, t *engine.TableData) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)

	headers := make([]string, 0, len(t.Columns))
	aligns := make([]int, 0, len(t.Columns))
	for _, c := range t.Columns {
		headers = append(headers, c.Label)
		aligns = append(aligns, alignment(c.Align))
	}
	table.SetHeader(headers)
	table.SetColumnAlignment(aligns)
	table.AppendBulk(t.Rows)

	if t.Summary != nil && len(t.Columns) > 0 {
		footer := make([]string, len(t.Columns))
		footer[0] = t.Summary.Label
		for i, c := range t.Columns[1:] {
			footer[i+1] = t.Summary.Values[c.Key]
		}
		table.SetFooter(footer)
	}
	table.Render()
}

// renderChart prints a chart as a table: one row per label, one column per series.
func renderChart(w io.Writer, c *engine.ChartConfig) {
	if c == nil || len(c.Series) == 0 {
		return
	}
	headingColor.Fprintf(w, "\n%s (%s)\n", c.Title, c.ChartType)

	headers := []string{c.XAxis}
	if headers[0] == "" {
		headers[0] = "Label"
	}
	for _, s := range c.Series {
		headers = append(headers, s.Name)
	}
	shares := c.ChartType == engine.ChartPie && len(c.Series) == 1
	if shares {
		headers = append(headers, "Share")
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(headers)
	for i, p := range c.Series[0].Data {
		row := []string{p.Label}
		for _, s := range c.Series {
			v := ""
			if i < len(s.Data) {
				v = engine.FormatAmount(s.Data[i].Value)
			}
			row = append(row, v)
		}
		if shares {
			row = append(row, fmt.Sprintf("%.1f%%", p.Share))
		}
		table.Append(row)
	}
	table.Render()
}

func alignment(a string) int {
	switch a {
	case "right":
		return tablewriter.ALIGN_RIGHT
	case "center":
		return tablewriter.ALIGN_CENTER
	default:
		return tablewriter.ALIGN_LEFT
	}
}

func selectionText(values []string) string {
	if len(values) == 0 {
		return "all"
	}
	return strings.Join(values, ", ")
}
