package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sweeney/co2-sensor/internal/logic"
	"github.com/sweeney/co2-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.Time(t)
	},
	"levelClass": func(l logic.AlertLevel) string {
		switch l {
		case logic.LevelGreen:
			return "green"
		case logic.LevelYellow:
			return "yellow"
		}
		return "red"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>CO2 Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.green { color: green; font-weight: bold; }
.yellow { color: #b8860b; font-weight: bold; }
.red { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.warn { color: orange; }
</style>
</head>
<body>
<h1>CO2 Sensor <small>{{.DeviceID}}</small></h1>

<h2>Air</h2>
<table>
{{if .HaveReading}}<tr><th>CO2</th><td class="{{levelClass .Level}}">{{printf "%.0f" .Reading.CO2}} ppm</td></tr>
<tr><th>Level</th><td class="{{levelClass .Level}}">{{.Level}}</td></tr>
<tr><th>Temperature</th><td>{{printf "%.1f" .Reading.Temperature}} &deg;C</td></tr>
<tr><th>Humidity</th><td>{{printf "%.1f" .Reading.Humidity}} %</td></tr>
<tr><th>Read</th><td>{{ago .ReadingTime}}</td></tr>
{{else}}<tr><th>CO2</th><td>waiting for first measurement</td></tr>{{end}}
</table>

<h2>Thresholds</h2>
<table>
<tr><th>Very high</th><td>{{.Thresholds.VeryHigh}} ppm</td></tr>
<tr><th>High</th><td>{{.Thresholds.High}} ppm</td></tr>
<tr><th>Mid</th><td>{{.Thresholds.Mid}} ppm</td></tr>
{{if not .Thresholds.Ordered}}<tr><th></th><td class="warn">not ordered</td></tr>{{end}}
</table>

<h2>Calibration</h2>
<table>
<tr><th>State</th><td>{{.Calibration.State}}</td></tr>
{{if not .Calibration.Deadline.IsZero}}<tr><th>Next step</th><td>{{ago .Calibration.Deadline}}</td></tr>{{end}}
<tr><th>Reference</th><td>{{.CalibrationPPM}} ppm</td></tr>
<tr><th>Completed</th><td>{{.Calibration.Cycles}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Last publish</th><td>{{ago .LastPublish}}</td></tr>
<tr><th>Publishes</th><td>{{.Counts.Publishes}} ok, {{.Counts.PublishErrors}} failed</td></tr>
<tr><th>Commands</th><td>{{.Counts.Commands}} applied, {{.Counts.CommandsIgnored}} ignored, {{.Counts.CommandsDropped}} dropped</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Sensor errors</th><td>{{.Counts.SensorErrors}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

{{if .History}}<h2>Recent</h2>
<table>
{{range .History}}<tr><th>{{.Time.UTC.Format "15:04:05"}}</th><td class="{{levelClass .Level}}">{{printf "%.0f" .Reading.CO2}} ppm</td></tr>
{{end}}</table>{{end}}

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has an Uptime() method but the template needs a field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
