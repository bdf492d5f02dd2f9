// Package report summarises the audit trail of provider exchanges.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"slices"
	texttemplate "text/template"
	"time"

	"github.com/FranksOps/ddgs/internal/storage"
)

// Summary aggregates a set of exchanges.
type Summary struct {
	TotalRequests   int            `json:"total_requests"`
	TotalErrors     int            `json:"total_errors"`
	TotalDetections int            `json:"total_detections"`
	StatusCodes     map[int]int    `json:"status_codes"`
	DetectionsBySrc map[string]int `json:"detections_by_source"`
	Endpoints       []EndpointStat `json:"endpoints"`
	TotalBytes      int64          `json:"total_bytes"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Duration        time.Duration  `json:"duration"`
}

// EndpointStat is the traffic of one provider endpoint.
type EndpointStat struct {
	Endpoint    string        `json:"endpoint"`
	Requests    int           `json:"requests"`
	Errors      int           `json:"errors"`
	MeanLatency time.Duration `json:"mean_latency"`
}

// GenerateSummary aggregates exchanges. Endpoints are sorted by request
// count, busiest first.
func GenerateSummary(exchanges []*storage.Exchange) Summary {
	s := Summary{
		StatusCodes:     make(map[int]int),
		DetectionsBySrc: make(map[string]int),
		Endpoints:       []EndpointStat{},
	}
	if len(exchanges) == 0 {
		return s
	}

	s.StartTime = exchanges[0].CreatedAt
	s.EndTime = exchanges[0].CreatedAt

	type acc struct {
		requests, errors int
		latency          time.Duration
	}
	byEndpoint := make(map[string]*acc)

	for _, e := range exchanges {
		s.TotalRequests++
		if e.Error != "" {
			s.TotalErrors++
		}
		if e.DetectedBot {
			s.TotalDetections++
			s.DetectionsBySrc[e.DetectionSrc]++
		}
		if e.StatusCode > 0 {
			s.StatusCodes[e.StatusCode]++
		}
		s.TotalBytes += e.BodySize

		a := byEndpoint[e.Endpoint]
		if a == nil {
			a = &acc{}
			byEndpoint[e.Endpoint] = a
		}
		a.requests++
		a.latency += e.Duration
		if e.Error != "" {
			a.errors++
		}

		if e.CreatedAt.Before(s.StartTime) {
			s.StartTime = e.CreatedAt
		}
		if e.CreatedAt.After(s.EndTime) {
			s.EndTime = e.CreatedAt
		}
	}

	for name, a := range byEndpoint {
		s.Endpoints = append(s.Endpoints, EndpointStat{
			Endpoint:    name,
			Requests:    a.requests,
			Errors:      a.errors,
			MeanLatency: a.latency / time.Duration(a.requests),
		})
	}
	slices.SortFunc(s.Endpoints, func(a, b EndpointStat) int {
		if a.Requests != b.Requests {
			return b.Requests - a.Requests
		}
		if a.Endpoint < b.Endpoint {
			return -1
		}
		return 1
	})

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

const textTmpl = `ddgs Audit Summary
------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Requests:      {{.TotalRequests}}
Total Bytes:   {{.TotalBytes}} bytes
Total Errors:  {{.TotalErrors}}

Endpoints:
{{- range .Endpoints}}
  {{printf "%-16s" .Endpoint}} {{.Requests}} requests, {{.Errors}} errors, mean {{.MeanLatency}}
{{- else}}
  None
{{- end}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Detections: {{.TotalDetections}}
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable summary.
func WriteText(w io.Writer, summary Summary) error {
	t, err := texttemplate.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>ddgs Audit Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>ddgs Audit Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card"><div>Requests</div><div class="stat-val">{{.TotalRequests}}</div></div>
  <div class="stat-card"><div>Errors</div><div class="stat-val">{{.TotalErrors}}</div></div>
  <div class="stat-card"><div>Detections</div><div class="stat-val">{{.TotalDetections}}</div></div>
  <div class="stat-card"><div>Total Bytes</div><div class="stat-val">{{.TotalBytes}}</div></div>

  <h3>Endpoints</h3>
  <table>
    <tr><th>Endpoint</th><th>Requests</th><th>Errors</th><th>Mean latency</th></tr>
    {{- range .Endpoints}}
    <tr><td>{{.Endpoint}}</td><td>{{.Requests}}</td><td>{{.Errors}}</td><td>{{.MeanLatency}}</td></tr>
    {{- else}}
    <tr><td colspan="4">None</td></tr>
    {{- end}}
  </table>

  <h3>Status Codes</h3>
  <table>
    <tr><th>Code</th><th>Count</th></tr>
    {{- range $code, $count := .StatusCodes}}
    <tr><td>{{$code}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Detections By Source</h3>
  <table>
    <tr><th>Source</th><th>Count</th></tr>
    {{- range $src, $count := .DetectionsBySrc}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a standalone HTML report. Values are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}
