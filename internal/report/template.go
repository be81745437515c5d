package report

// ReportTemplate is the HTML template for the level report.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 960px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; color: var(--accent); margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .quote-bar {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(160px, 1fr));
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .quote-item { text-align: center; }
  .quote-item .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .quote-item .value { font-size: 1rem; font-weight: 600; }
  .chart { margin: 12px 0; text-align: center; }
  table { width: 100%; border-collapse: collapse; font-size: 0.85rem; }
  th, td { padding: 6px 8px; border-bottom: 1px solid var(--border); text-align: right; }
  th:first-child, td:first-child { text-align: left; }
  th { background: var(--section-bg); }
  .support { color: var(--green); font-weight: 600; }
  .resistance { color: var(--red); font-weight: 600; }
</style>
</head>
<body>
<div class="header">
  <h1>{{.Title}}</h1>
  <p class="muted">Run {{.RunID}} | {{.Window}}{{if .RegimeAware}} | regime-aware{{end}}</p>
</div>

<div class="quote-bar">
  <div class="quote-item"><div class="label">Last Price</div><div class="value">{{.CurrentPrice}}</div></div>
  {{if .ATH}}<div class="quote-item"><div class="label">All-Time High</div><div class="value">{{.ATH}}</div></div>{{end}}
  <div class="quote-item"><div class="label">Bars</div><div class="value">{{.Bars}}</div></div>
  <div class="quote-item"><div class="label">Swings</div><div class="value">{{.Swings}}</div></div>
</div>

<h2>Swing Price Density</h2>
<div class="chart">{{.Chart}}</div>

<h2>Levels</h2>
{{if .Levels}}
<table>
  <tr><th>Type</th><th>Price</th><th>Dist</th><th>Conf %</th><th>Band</th><th>Hit Rate</th><th>Touches</th><th>Avg React</th><th>Max Move</th><th>Bars</th></tr>
  {{range .Levels}}
  <tr>
    <td class="{{if .Resistance}}resistance{{else}}support{{end}}">{{.Type}}</td>
    <td>{{.Price}}</td><td>{{.Distance}}</td><td>{{.Confidence}}</td><td>{{.Band}}</td>
    <td>{{.HitRate}}</td><td>{{.Touches}}</td><td>{{.AvgReaction}}</td><td>{{.MaxMove}}</td><td>{{.Bars}}</td>
  </tr>
  {{end}}
</table>
<p class="muted">{{.Summary}}</p>
{{else}}
<p>{{.NoLevels}}</p>
{{end}}
</body>
</html>
`
