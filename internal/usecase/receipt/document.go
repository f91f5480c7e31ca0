package receipt

import (
	"bytes"
	"html/template"
	"time"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/format"
)

// Color is an RGB color with its hex form for markup
type Color struct {
	R, G, B int
	Hex     string
}

// Status colors by presentation category
var (
	ColorPositive = Color{R: 22, G: 163, B: 74, Hex: "#16A34A"}
	ColorWarning  = Color{R: 217, G: 119, B: 6, Hex: "#D97706"}
	ColorNegative = Color{R: 220, G: 38, B: 38, Hex: "#DC2626"}
	ColorNeutral  = Color{R: 107, G: 114, B: 128, Hex: "#6B7280"}
)

// StatusColor maps a status category to its color
func StatusColor(category domain.StatusCategory) Color {
	switch category {
	case domain.StatusCategoryPositive:
		return ColorPositive
	case domain.StatusCategoryWarning:
		return ColorWarning
	case domain.StatusCategoryNegative:
		return ColorNegative
	default:
		return ColorNeutral
	}
}

// Style carries the branding applied to every rendered receipt
type Style struct {
	Institution    string
	CurrencySymbol string
}

// DefaultStyle is used when a Pipeline is built without one
var DefaultStyle = Style{Institution: "TransferFlow", CurrencySymbol: "₦"}

// Item is one labelled line of a receipt section
type Item struct {
	Label string
	Value string
}

// Section is a titled group of items
type Section struct {
	Title string
	Items []Item
}

// StatusBlock is the highlighted status banner
type StatusBlock struct {
	Label    string
	Category domain.StatusCategory
	Color    Color
	Amount   string
}

// Document is the structured receipt markup produced by RenderDocument.
// Converters and previews consume it; it holds no reference to the record.
type Document struct {
	Title       string
	Institution string
	Reference   string
	Status      StatusBlock
	Sections    []Section
	Footer      string
	GeneratedAt time.Time
}

// Section titles
const (
	SectionTransaction  = "Transaction Information"
	SectionCounterparty = "Recipient Details"
)

// RenderDocument builds the receipt document for record.
// It is pure: the same record, style and generation time always give the same document.
func RenderDocument(record domain.TransactionRecord, style Style, generatedAt time.Time) Document {
	category := record.Status.Category()

	doc := Document{
		Title:       "Transaction Receipt",
		Institution: style.Institution,
		Reference:   record.Reference,
		Status: StatusBlock{
			Label:    record.Status.Label(),
			Category: category,
			Color:    StatusColor(category),
			Amount:   format.FormatAmount(record.Amount, style.CurrencySymbol),
		},
		GeneratedAt: generatedAt,
		Footer:      "Generated on " + format.FormatTimestamp(generatedAt),
	}

	doc.Sections = append(doc.Sections, transactionSection(record, style))
	if record.HasCounterparty() {
		doc.Sections = append(doc.Sections, counterpartySection(record))
	}
	return doc
}

func transactionSection(record domain.TransactionRecord, style Style) Section {
	items := []Item{
		{Label: "Reference", Value: record.Reference},
		{Label: "Type", Value: valueOrDash(record.Type)},
		{Label: "Amount", Value: format.FormatAmount(record.Amount, style.CurrencySymbol)},
		{Label: "Fee", Value: format.FormatAmount(record.Fee, style.CurrencySymbol)},
		{Label: "Total", Value: format.FormatAmount(record.Total(), style.CurrencySymbol)},
		{Label: "Date", Value: format.FormatTimestamp(record.CreatedAt)},
	}
	if record.CompletedAt != nil {
		items = append(items, Item{Label: "Completed", Value: format.FormatTimestamp(*record.CompletedAt)})
	}
	if record.Description != "" {
		items = append(items, Item{Label: "Description", Value: record.Description})
	}
	if record.SessionID != "" {
		items = append(items, Item{Label: "Session ID", Value: record.SessionID})
	}
	return Section{Title: SectionTransaction, Items: items}
}

func counterpartySection(record domain.TransactionRecord) Section {
	var items []Item
	if record.CounterpartyName != "" {
		items = append(items, Item{Label: "Name", Value: record.CounterpartyName})
	}
	if record.CounterpartyAccount != "" {
		items = append(items, Item{Label: "Account Number", Value: record.CounterpartyAccount})
	}
	if record.CounterpartyBank != "" {
		items = append(items, Item{Label: "Bank", Value: record.CounterpartyBank})
	} else if record.CounterpartyBankID != "" {
		items = append(items, Item{Label: "Bank Code", Value: record.CounterpartyBankID})
	}
	return Section{Title: SectionCounterparty, Items: items}
}

// Section returns the section with the given title, if present
func (d Document) Section(title string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

var htmlTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}} {{.Reference}}</title></head>
<body style="font-family: sans-serif; max-width: 480px; margin: auto;">
<header><h1>{{.Institution}}</h1><h2>{{.Title}}</h2></header>
<section class="status" style="background-color: {{.Status.Color.Hex}}; color: #FFFFFF; padding: 16px;">
<p class="amount">{{.Status.Amount}}</p>
<p class="label">{{.Status.Label}}</p>
</section>
{{range .Sections}}<section>
<h3>{{.Title}}</h3>
<table>{{range .Items}}
<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>{{end}}
</table>
</section>
{{end}}<footer>{{.Footer}}</footer>
</body>
</html>
`))

// HTML renders the document as HTML for preview surfaces
func (d Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
