package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

type tankDigest struct {
	TankName  string
	Current   string
	Capacity  string
	Threshold string
	Status    string
}

type maintenanceDigestRow struct {
	Machine string
	Item    string
	Status  string
	Due     string
}

var tankDigestTemplate = template.Must(template.New("tank").Parse(`<html><body>
<h2>Fuel tank alert: {{.TankName}}</h2>
<p>Status: <strong>{{.Status}}</strong></p>
<table>
<tr><td>Current level</td><td>{{.Current}} L</td></tr>
<tr><td>Capacity</td><td>{{.Capacity}} L</td></tr>
<tr><td>Alert threshold</td><td>{{.Threshold}} L</td></tr>
</table>
</body></html>`))

var maintenanceDigestTemplate = template.Must(template.New("maintenance").Parse(`<html><body>
<h2>Maintenance alerts</h2>
<table>
<tr><th>Machine</th><th>Item</th><th>Status</th><th>Due</th></tr>
{{range .}}<tr><td>{{.Machine}}</td><td>{{.Item}}</td><td>{{.Status}}</td><td>{{.Due}}</td></tr>
{{end}}</table>
</body></html>`))

func renderTankDigest(d tankDigest) (string, string, error) {
	var buf bytes.Buffer
	if err := tankDigestTemplate.Execute(&buf, d); err != nil {
		return "", "", fmt.Errorf("render tank digest: %w", err)
	}
	return fmt.Sprintf("[AgroTrack] Fuel tank alert: %s", d.TankName), buf.String(), nil
}

func renderMaintenanceDigest(rows []maintenanceDigestRow) (string, string, error) {
	var buf bytes.Buffer
	if err := maintenanceDigestTemplate.Execute(&buf, rows); err != nil {
		return "", "", fmt.Errorf("render maintenance digest: %w", err)
	}
	subject := fmt.Sprintf("[AgroTrack] %d maintenance alert(s)", len(rows))
	return subject, buf.String(), nil
}
