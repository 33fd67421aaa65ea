package report

import (
	"fmt"
	"html/template"
	"strings"
)

// htmlTemplate renders the report as a self-contained email body.
var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) float64 { return v * 100 },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>
body { font-family: -apple-system, "Segoe UI", sans-serif; color: #222; }
table { border-collapse: collapse; margin: 12px 0; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: right; }
th { background: #f4f4f4; }
td.sym, th.sym { text-align: left; }
tr.hold { background: #eaf6ea; }
.stale { color: #b36b00; }
.omit { color: #888; font-size: 90%; }
</style></head>
<body>
<h2>{{.PoolName}}</h2>
<p>{{.GeneratedAt.Format "2006-01-02 15:04"}} &mdash; {{.Summary}}</p>
<table>
<tr><th>#</th><th class="sym">Symbol</th><th class="sym">Name</th><th>Price</th><th>Momentum</th><th>MA Bias</th><th>Hold</th></tr>
{{range .Entries}}<tr{{if .Hold}} class="hold"{{end}}>
<td>{{.Rank}}</td>
<td class="sym">{{.Symbol}}{{if .Stale}} <span class="stale">*</span>{{end}}</td>
<td class="sym">{{.Name}}</td>
<td>{{printf "%.3f" .Indicators.Price}}</td>
<td>{{printf "%+.2f%%" (pct .Indicators.Score)}}</td>
<td>{{printf "%+.2f%%" .Indicators.BiasPct}}</td>
<td>{{if .Hold}}&#10003;{{end}}</td>
</tr>{{end}}
</table>
{{if .Omissions}}<p class="omit">Excluded: {{range $i, $o := .Omissions}}{{if $i}}, {{end}}{{$o.Symbol}} ({{$o.Reason}}){{end}}</p>{{end}}
{{if .Stale}}<p class="stale">* computed from cached data that could not be refreshed today.</p>{{end}}
</body>
</html>`))

// RenderHTML renders the report for email delivery.
func RenderHTML(r *Report) (string, error) {
	var b strings.Builder
	if err := htmlTemplate.Execute(&b, r); err != nil {
		return "", fmt.Errorf("render report HTML: %w", err)
	}
	return b.String(), nil
}

// RenderText renders the report as a plain-text table for the CLI.
func RenderText(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", r.PoolName, r.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "%s\n\n", r.Summary)

	fmt.Fprintf(&b, "%-4s %-10s %-24s %10s %10s %9s %s\n",
		"#", "SYMBOL", "NAME", "PRICE", "MOMENTUM", "BIAS", "HOLD")
	for _, e := range r.Entries {
		hold := ""
		if e.Hold {
			hold = "*"
		}
		symbol := e.Symbol
		if e.Stale {
			symbol += "!"
		}
		fmt.Fprintf(&b, "%-4d %-10s %-24s %10.3f %+9.2f%% %+8.2f%% %s\n",
			e.Rank, symbol, e.Name, e.Indicators.Price,
			e.Indicators.Score*100, e.Indicators.BiasPct, hold)
	}

	if len(r.Omissions) > 0 {
		b.WriteString("\nExcluded:\n")
		for _, o := range r.Omissions {
			fmt.Fprintf(&b, "  %-10s %s\n", o.Symbol, o.Reason)
		}
	}
	return b.String()
}
