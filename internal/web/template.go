package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/RayRama/laundry-monitor-sub001/internal/labels"
	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
	"github.com/RayRama/laundry-monitor-sub001/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm", days, h, m)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"minutes": func(ms *int64) string {
		if ms == nil {
			return ""
		}
		return fmt.Sprintf("%d min", (*ms+59999)/60000)
	},
	"lower": func(s logic.Status) string {
		return strings.ToLower(string(s))
	},
	"count": func(c status.Counts, s string) int {
		return c[logic.Status(s)]
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Laundry Monitor</title>
<style>
body { font-family: monospace; max-width: 900px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(120px, 1fr)); gap: 8px; margin: 1em 0; }
.cell { border: 1px solid #ddd; border-radius: 4px; padding: 8px; }
.cell .label { font-weight: bold; font-size: 1.2em; }
.ready { border-color: green; }
.ready .status { color: green; }
.running { border-color: orange; }
.running .status { color: orange; }
.offline { border-color: #888; color: #888; }
.stale { color: red; }
table { border-collapse: collapse; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
<h1>Laundry Monitor</h1>
{{if .Stale}}<p class="stale">Data is stale{{if .LastError}}: {{.LastError}}{{end}}</p>{{end}}

{{range .Groups}}
<h2>{{.Title}} <small>{{count .Counts "READY"}} ready, {{count .Counts "RUNNING"}} running, {{count .Counts "OFFLINE"}} offline</small></h2>
<div class="grid">
{{range .Devices}}<div class="cell {{lower .Status}}">
<div class="label">{{.Label}}</div>
<div class="status">{{.Status}}</div>
{{if .TimeLeftMs}}<div>{{minutes .TimeLeftMs}} left</div>{{end}}
</div>
{{else}}<p>No devices.</p>
{{end}}</div>
{{end}}

<table>
<tr><th>Updated</th><td>{{.Updated}}</td></tr>
<tr><th>Version</th><td>{{.Version}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
</table>

<p><a href="/api/status">JSON</a></p>
</body>
</html>
`

type deviceGroup struct {
	Title   string
	Devices []status.Device
	Counts  status.Counts
}

type pageData struct {
	Groups    []deviceGroup
	Stale     bool
	LastError string
	Updated   string
	Version   uint64
	Uptime    time.Duration
}

var groupTitles = map[logic.DeviceType]string{
	logic.TypeWasher: "Washers",
	logic.TypeDryer:  "Dryers",
}

// gridOrder sorts mapped slots first, then by label.
func gridOrder(devices []status.Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		if (a.Slot == labels.SlotUnmapped) != (b.Slot == labels.SlotUnmapped) {
			return b.Slot == labels.SlotUnmapped
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Label < b.Label
	})
}

func buildPage(snap *status.Snapshot, started, now time.Time) pageData {
	data := pageData{Stale: true, Uptime: now.Sub(started)}
	if snap == nil {
		snap = status.NewSnapshot(nil, status.Meta{Stale: true})
	}
	data.Stale = snap.Meta.Stale
	data.LastError = snap.Meta.LastError
	data.Version = snap.Meta.Version
	if !snap.Meta.Timestamp.IsZero() {
		data.Updated = snap.Meta.Timestamp.UTC().Format("2006-01-02T15:04:05Z")
	}

	for _, typ := range logic.DeviceTypes {
		g := deviceGroup{Title: groupTitles[typ], Counts: snap.Aggregates[typ]}
		for _, d := range snap.Devices {
			if d.Type == typ {
				g.Devices = append(g.Devices, d)
			}
		}
		gridOrder(g.Devices)
		data.Groups = append(data.Groups, g)
	}
	return data
}

func renderHTML(w io.Writer, snap *status.Snapshot, started, now time.Time) {
	if err := indexTmpl.Execute(w, buildPage(snap, started, now)); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
