package api

import (
	"html/template"
	"math"
	"strconv"
	"strings"

	"RegimeEdge/internal/domain/models"
)

type dashboardView struct {
	Signal  models.Signal
	Refresh int
}

var funcs = template.FuncMap{
	"money": money,
	"color": func(d models.Direction) template.CSS { return template.CSS(directionColor(d)) },
	"stamp": func(s models.Signal) string { return s.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC") },
}

func directionColor(d models.Direction) string {
	switch d {
	case models.DirectionLong:
		return "#00ff41"
	case models.DirectionShort:
		return "#ff4444"
	default:
		return "#888888"
	}
}

// money formats v with two decimals and thousands separators.
func money(v float64) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Signal.Leading}} to {{.Signal.Target}} Live Edge</title>
<meta http-equiv="refresh" content="{{.Refresh}}">
<style>
body { font-family: 'Segoe UI', sans-serif; background: #0a0e17; color: white; text-align: center; padding: 20px; }
h1 { color: #00ccff; }
.signal { font-size: 72px; font-weight: bold; color: {{color .Signal.Direction}}; text-shadow: 0 0 30px {{color .Signal.Direction}}; margin: 20px; }
.info { font-size: 22px; margin: 12px; }
.price { font-size: 28px; color: #00ff41; }
.muted { color: #555; font-size: 14px; margin-top: 60px; }
</style>
</head>
<body>
<h1>{{.Signal.Leading}} to {{.Signal.Target}} Regime Edge</h1>
<div class="signal">{{.Signal.Direction}}{{if ne .Signal.Direction "FLAT"}} {{.Signal.Target}}{{end}}</div>
<div class="info">Reason: <strong>{{.Signal.Reason}}</strong></div>
<div class="info">Regime: <strong>{{.Signal.RegimeLabel}}</strong> &bull; p-value: <strong>{{printf "%.5f" .Signal.PValue}}</strong></div>
<div class="info">{{.Signal.Leading}} change: <strong>{{.Signal.ChangePercent}}</strong></div>
<div class="price">{{.Signal.Target}}: ${{money .Signal.TargetPrice}}</div>
<div class="price">{{.Signal.Leading}}: ${{money .Signal.LeadingPrice}}</div>
<div class="info">Prices: {{.Signal.PriceSource}}</div>
<div class="info">Last updated: {{stamp .Signal}}</div>
<p><a href="/report" style="color:#00ccff">Strategy report</a></p>
<div class="muted">Signals only. No orders are executed.</div>
</body>
</html>
`))

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<style>
body { font-family: 'Segoe UI', sans-serif; max-width: 760px; margin: 40px auto; line-height: 1.5; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p><b>Generated:</b> {{.GeneratedAt.Format "January 02, 2006 at 15:04 UTC"}}</p>
<p><b>Current regime:</b> {{.Regime}} (p-value {{printf "%.5f" .PValue}}){{if .Defaulted}} (data unavailable){{end}}</p>
{{range .Sections}}
<h2>{{.Heading}}</h2>
<ul>{{range .Lines}}
<li>{{.}}</li>{{end}}
</ul>
{{end}}
</body>
</html>
`))
