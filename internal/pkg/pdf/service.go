// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// RenderAnalyticsReport renders an analytics export as a PDF document
func (s *Service) RenderAnalyticsReport(doc *analytics.ExportDocument) ([]byte, error) {
	htmlContent, err := s.generateHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationLandscape)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return pdfg.Bytes(), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(doc *analytics.ExportDocument) (string, error) {
	tmpl := template.Must(template.New("analytics").Parse(reportTemplate))

	data := ReportData{
		Document:    doc,
		CompanyName: s.config.App.Name,
		GeneratedAt: doc.GeneratedAt.Format("January 2, 2006 15:04 MST"),
		Counts:      sortedCounts(doc.EventsByType),
	}
	if doc.Since != nil {
		data.Since = doc.Since.Format("2006-01-02")
	}
	if doc.Until != nil {
		data.Until = doc.Until.Format("2006-01-02")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// ReportData represents the data passed to the report template
type ReportData struct {
	Document    *analytics.ExportDocument
	CompanyName string
	GeneratedAt string
	Since       string
	Until       string
	Counts      []TypeCount
}

// TypeCount is one row of the event summary table
type TypeCount struct {
	Type  analytics.EventType
	Count int
}

func sortedCounts(byType map[analytics.EventType]int) []TypeCount {
	counts := make([]TypeCount, 0, len(byType))
	for t, n := range byType {
		counts = append(counts, TypeCount{Type: t, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Type < counts[j].Type })
	return counts
}

const reportTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Document.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { border-bottom: 2px solid #eee; padding-bottom: 20px; margin-bottom: 30px; }
        .title { font-size: 28px; font-weight: bold; color: #2563eb; margin-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
        th { background-color: #f8fafc; padding: 8px; text-align: left; border-bottom: 2px solid #e2e8f0; font-weight: bold; }
        td { padding: 8px; border-bottom: 1px solid #e2e8f0; font-size: 12px; }
        .amount { text-align: right; }
        .total { font-size: 18px; font-weight: bold; color: #2563eb; }
    </style>
</head>
<body>
    <div class="header">
        <div class="title">{{.Document.Title}}</div>
        <div>{{.CompanyName}}</div>
        <div>Generated {{.GeneratedAt}}</div>
        {{if .Document.CustomerID}}<div>Customer: {{.Document.CustomerID}}</div>{{end}}
        {{if .Since}}<div>From: {{.Since}}</div>{{end}}
        {{if .Until}}<div>Until: {{.Until}}</div>{{end}}
    </div>

    <table>
        <thead><tr><th>Event type</th><th class="amount">Count</th></tr></thead>
        <tbody>
        {{range .Counts}}<tr><td>{{.Type}}</td><td class="amount">{{.Count}}</td></tr>
        {{end}}
        </tbody>
    </table>
    <p class="total">Total savings: {{.Document.TotalSavings.StringFixed 2}}</p>

    <table>
        <thead>
            <tr><th>Time</th><th>Type</th><th>Customer</th><th>Service</th><th class="amount">Amount</th><th class="amount">Order value</th></tr>
        </thead>
        <tbody>
        {{range .Document.Events}}<tr>
            <td>{{.Timestamp.Format "2006-01-02 15:04"}}</td>
            <td>{{.Type}}</td>
            <td>{{.CustomerID}}</td>
            <td>{{.ServiceID}}</td>
            <td class="amount">{{.Amount.StringFixed 2}}</td>
            <td class="amount">{{.OrderValue.StringFixed 2}}</td>
        </tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>
`
