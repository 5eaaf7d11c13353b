// internal/domain/analytics/export.go
package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedFormat is returned for unknown export formats
var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// ExportDocument is the content of an events export
type ExportDocument struct {
	Title        string            `json:"title"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	CustomerID   string            `json:"customerId,omitempty"`
	Since        *time.Time        `json:"since,omitempty"`
	Until        *time.Time        `json:"until,omitempty"`
	EventsByType map[EventType]int `json:"eventsByType"`
	TotalSavings decimal.Decimal   `json:"totalSavings"`
	Events       []Event           `json:"events"`
}

// Renderer turns an export document into a printable file
type Renderer interface {
	RenderAnalyticsReport(doc *ExportDocument) ([]byte, error)
}

// Export is an encoded events export
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

var csvHeader = []string{"id", "type", "membership_id", "customer_id", "service_id", "amount", "order_value", "timestamp", "data"}

// Export encodes the events matching f. PDF output needs a renderer.
func (s *Service) Export(ctx context.Context, f Filter, format string, renderer Renderer) (*Export, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV && format != FormatPDF {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if format == FormatPDF && renderer == nil {
		return nil, fmt.Errorf("%w: pdf rendering is not configured", ErrUnsupportedFormat)
	}

	doc, err := s.exportDocument(ctx, f)
	if err != nil {
		return nil, err
	}

	filename := "membership-analytics-" + doc.GeneratedAt.Format("20060102-150405")
	switch format {
	case FormatCSV:
		body, err := encodeCSV(doc.Events)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: filename + ".csv", ContentType: "text/csv", Body: body}, nil
	case FormatPDF:
		body, err := renderer.RenderAnalyticsReport(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to render analytics report: %w", err)
		}
		return &Export{Filename: filename + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return &Export{Filename: filename + ".json", ContentType: "application/json", Body: body}, nil
	}
}

func (s *Service) exportDocument(ctx context.Context, f Filter) (*ExportDocument, error) {
	events, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, err
	}

	doc := &ExportDocument{
		Title:        "Membership Analytics",
		GeneratedAt:  s.Now(),
		CustomerID:   f.CustomerID,
		EventsByType: make(map[EventType]int),
		TotalSavings: decimal.Zero,
		Events:       events,
	}
	if !f.Since.IsZero() {
		since := f.Since
		doc.Since = &since
	}
	if !f.Until.IsZero() {
		until := f.Until
		doc.Until = &until
	}

	for i := range events {
		doc.EventsByType[events[i].Type]++
		if events[i].Type == EventServiceDiscountApplied || events[i].Type == EventFreeDeliveryUsed {
			doc.TotalSavings = doc.TotalSavings.Add(events[i].Amount)
		}
	}
	return doc, nil
}

func encodeCSV(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range events {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode event data: %w", err)
		}
		record := []string{
			e.ID,
			string(e.Type),
			e.MembershipID,
			e.CustomerID,
			e.ServiceID,
			e.Amount.StringFixed(2),
			e.OrderValue.StringFixed(2),
			e.Timestamp.Format(time.RFC3339),
			string(data),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
