// Package render draws a certificate of liability insurance from an
// artifact's structured JSON.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
)

// ErrInvalidArtifact is returned when the artifact is not a JSON object.
var ErrInvalidArtifact = errors.New("artifact is not a JSON object")

// DefaultIssuer is printed in the page footer when none is configured.
const DefaultIssuer = "Real Estate Company"

// Options controls certificate rendering.
type Options struct {
	Issuer string
}

const (
	mmPerInch   = 25.4
	marginSide  = 0.5 * mmPerInch
	marginTop   = 0.4 * mmPerInch
	marginBot   = 0.4 * mmPerInch
	cellPadding = 1.5
	lineHeight  = 3.5
)

type rgb struct{ r, g, b int }

var (
	colorTitle   = rgb{0x2C, 0x3E, 0x50}
	colorSection = rgb{0x34, 0x49, 0x5E}
	colorHeader  = rgb{0xEA, 0xEC, 0xEE}
	colorRule    = rgb{0xD5, 0xD8, 0xDC}
	colorFooter  = rgb{0x80, 0x80, 0x80}
)

// Certificate renders artifact into a letter-size PDF held in memory.
func Certificate(artifact []byte, opts Options) ([]byte, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(artifact))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, ErrInvalidArtifact
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(true, marginBot+6)
	pdf.SetTitle("Certificate of Liability Insurance", true)
	pdf.SetCreator(issuer, true)

	d := &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-(marginBot + 4))
		pdf.SetFont("Helvetica", "", 7)
		d.textColor(colorFooter)
		pdf.CellFormat(0, 4, d.tr(fmt.Sprintf("Generated by %s | Page %d", issuer, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	d.title("CERTIFICATE OF LIABILITY INSURANCE")
	d.parties(data)
	d.section("Insurance Coverage")
	d.coverage(data)
	d.section("DESCRIPTION OF OPERATIONS / LOCATIONS / VEHICLES")
	d.description(data["description_of_operations"])
	d.section("CANCELLATION")
	notice := text(data["notice_of_cancellation"])
	if notice == "" {
		notice = "No cancellation notice provided"
	}
	d.paragraph(notice)
	pdf.Ln(4)
	d.signature(object(data, "certificate_holder"))

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write certificate: %w", err)
	}
	return out.Bytes(), nil
}

type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (d *doc) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	return w - left - right
}

func (d *doc) textColor(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }

func (d *doc) title(s string) {
	d.pdf.SetFont("Helvetica", "B", 14)
	d.textColor(colorTitle)
	d.pdf.CellFormat(0, 8, d.tr(s), "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *doc) section(s string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.textColor(colorSection)
	d.pdf.CellFormat(0, 5, d.tr(s), "", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *doc) paragraph(s string) {
	d.pdf.SetFont("Helvetica", "", 7)
	d.textColor(colorSection)
	d.pdf.MultiCell(0, lineHeight, d.tr(s), "", "L", false)
	d.pdf.Ln(1)
}

// labeled writes "label value" with a bold label.
func (d *doc) labeled(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 7)
	d.textColor(colorTitle)
	d.pdf.Write(lineHeight, d.tr(label+" "))
	d.pdf.SetFont("Helvetica", "", 7)
	d.textColor(colorSection)
	d.pdf.Write(lineHeight, d.tr(value))
	d.pdf.Ln(lineHeight + 1)
}

func (d *doc) parties(data map[string]any) {
	cw := d.contentWidth()
	widths := []float64{cw / 3, cw / 3, cw / 3}
	producer := object(data, "producer")
	insured := object(data, "insured")
	holder := object(data, "certificate_holder")

	d.row(widths, true, "PRODUCER", "INSURED", "CERTIFICATE HOLDER")
	d.row(widths, false,
		"Name:\n"+text(producer["name"]),
		"Name:\n"+text(insured["name"]),
		"Name:\n"+text(holder["name"]),
	)
	d.row(widths, false,
		"Address:\n"+text(producer["address"]),
		"Address:\n"+text(insured["address"]),
		"Address:\n"+text(holder["address"]),
	)
	d.pdf.Ln(4)
}

// coverageLine is one policy of the coverage table.
type coverageLine struct {
	label      string
	key        string
	insurerKey string
	limits     []limitField
	limitKey   string
	subRows    []subRow
}

type limitField struct{ key, label string }

type subRow struct{ key, label string }

var coverageLines = []coverageLine{
	{
		label: "Commercial General Liability", key: "commercial_general_liability", insurerKey: "insurer_name",
		limits: []limitField{
			{"each_occurrence", "Each Occurrence"},
			{"damage_to_rented_premises", "Damage to Rented Premises"},
			{"med_expense_limit", "Med Expense"},
			{"personal_adv_injury_limit", "Personal & Adv Injury"},
			{"general_aggregate_limit", "General Aggregate"},
			{"products_comp_op_aggregate_limit", "Products-Comp/OP Agg"},
		},
		subRows: []subRow{
			{"additional_insured", "Additional Insured"},
			{"subrogation", "Subrogation Waived"},
			{"claims_basis", "Claims Basis"},
		},
	},
	{
		label: "Automobile Liability", key: "automobile_liability", insurerKey: "insurer_name",
		limits: []limitField{{"combined_single_limit", "Combined Single Limit"}},
		subRows: []subRow{
			{"coverage_type", "Coverage Type"},
			{"additional_insured", "Additional Insured"},
			{"subrogation", "Subrogation Waived"},
		},
	},
	{
		label: "Umbrella Liability", key: "umbrella_liability", insurerKey: "insurer_name",
		limits: []limitField{
			{"each_occurrence_limit", "Each Occurrence"},
			{"aggregate_limit", "Aggregate"},
			{"retention_amount", "Retention"},
		},
		subRows: []subRow{{"claims_basis", "Claims Basis"}},
	},
	{
		label: "Workers Compensation", key: "workers_compensation", insurerKey: "insurer_name",
		limits: []limitField{
			{"each_accident_limit", "Each Accident"},
			{"disease_policy_limit", "Disease - Policy Limit"},
			{"disease_each_employee_limit", "Disease - Each Employee"},
		},
		subRows: []subRow{
			{"compliance", "Compliance"},
			{"exclusion", "Exclusion"},
		},
	},
	{
		label: "Property Insurance", key: "property_insurance", insurerKey: "insurer",
		limitKey: "limit",
		subRows: []subRow{
			{"additional_insured", "Additional Insured"},
			{"subrogation", "Subrogation Waived"},
		},
	},
}

func (d *doc) coverage(data map[string]any) {
	cw := d.contentWidth()
	// 1.6 / 1.3 / 1.3 / 1.4 / 2.1 proportions
	ratios := []float64{1.6, 1.3, 1.3, 1.4, 2.1}
	widths := make([]float64, len(ratios))
	for i, r := range ratios {
		widths[i] = cw * r / 7.7
	}

	d.row(widths, true, "TYPE OF INSURANCE", "INSURER", "POLICY NUMBER", "POLICY EFFECTIVE DATE", "LIMITS")
	for _, line := range coverageLines {
		policy := object(data, line.key)
		insurer := text(policy[line.insurerKey])
		if insurer == "" && line.insurerKey != "insurer" {
			insurer = text(policy["insurer"])
		}
		var limits []string
		for _, lf := range line.limits {
			if v := text(policy[lf.key]); v != "" {
				limits = append(limits, lf.label+": "+v)
			}
		}
		if line.limitKey != "" {
			if v := text(policy[line.limitKey]); v != "" {
				limits = append(limits, v)
			}
		}
		d.row(widths, false,
			line.label,
			insurer,
			text(policy["policy_number"]),
			dateRange(policy["effective_date"]),
			strings.Join(limits, "\n"),
		)
		for _, sr := range line.subRows {
			if v := text(policy[sr.key]); v != "" {
				d.row(widths, false, "  - "+sr.label, "", "", "", v)
			}
		}
	}
	d.pdf.Ln(2)
}

func (d *doc) description(v any) {
	var fullText, addresses, entitlement string
	switch desc := v.(type) {
	case map[string]any:
		fullText = text(desc["full_text"])
		addresses = text(desc["addresses"])
		entitlement = text(desc["entitlement"])
	default:
		fullText = text(desc)
	}
	if fullText == "" && addresses == "" && entitlement == "" {
		d.paragraph("No description provided")
		return
	}
	if fullText != "" {
		d.paragraph(fullText)
	}
	if addresses != "" {
		d.labeled("Location Address:", addresses)
	}
	if entitlement != "" {
		d.labeled("Certificate Holder Entitlement:", entitlement)
	}
}

func (d *doc) signature(holder map[string]any) {
	cw := d.contentWidth()
	widths := []float64{cw * 4 / 7.5, cw * 3.5 / 7.5}
	d.row(widths, true, "CERTIFICATE HOLDER", "AUTHORIZED REPRESENTATIVE")
	d.row(widths, false,
		strings.TrimSpace(text(holder["name"])+"\n"+text(holder["address"])),
		"Signature: ________________________\nDate: _______________",
	)
}

// row draws one bordered table row whose height fits its tallest cell.
func (d *doc) row(widths []float64, header bool, cells ...string) {
	pdf := d.pdf
	if header {
		pdf.SetFont("Helvetica", "B", 7)
		d.textColor(colorTitle)
	} else {
		pdf.SetFont("Helvetica", "", 7)
		d.textColor(colorSection)
	}

	translated := make([]string, len(cells))
	maxLines := 1
	for i, c := range cells {
		translated[i] = d.tr(c)
		if n := d.lineCount(translated[i], widths[i]-2*cellPadding); n > maxLines {
			maxLines = n
		}
	}
	h := float64(maxLines)*lineHeight + 2*cellPadding

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom {
		pdf.AddPage()
		if header {
			pdf.SetFont("Helvetica", "B", 7)
			d.textColor(colorTitle)
		} else {
			pdf.SetFont("Helvetica", "", 7)
			d.textColor(colorSection)
		}
	}

	x, y := pdf.GetXY()
	pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	pdf.SetLineWidth(0.2)
	style := "D"
	if header {
		pdf.SetFillColor(colorHeader.r, colorHeader.g, colorHeader.b)
		style = "FD"
	}
	pdf.SetAutoPageBreak(false, 0)
	for i, c := range translated {
		pdf.Rect(x, y, widths[i], h, style)
		pdf.SetXY(x+cellPadding, y+cellPadding)
		pdf.MultiCell(widths[i]-2*cellPadding, lineHeight, c, "", "L", false)
		x += widths[i]
	}
	pdf.SetAutoPageBreak(true, marginBot+6)
	left, _, _, _ := pdf.GetMargins()
	pdf.SetXY(left, y+h)
}

func (d *doc) lineCount(s string, width float64) int {
	if s == "" {
		return 1
	}
	n := 0
	for _, part := range strings.Split(s, "\n") {
		lines := d.pdf.SplitText(part, width)
		if len(lines) == 0 {
			n++
			continue
		}
		n += len(lines)
	}
	return n
}

func object(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// text flattens a JSON value into display text. Objects are rendered as
// their values in key order, arrays as "; "-joined items.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := text(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := text(t[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func dateRange(v any) string {
	if m, ok := v.(map[string]any); ok {
		start, end := text(m["start"]), text(m["end"])
		if start == "" && end == "" {
			return ""
		}
		return start + " to " + end
	}
	return text(v)
}
