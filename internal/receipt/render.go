// Package receipt renders printable PDF receipts for captured orders and
// keeps them available for download for a bounded window.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/mossline/pos-engine/internal/money"
	"github.com/mossline/pos-engine/internal/order"
)

// Render produces the PDF receipt for an order.
func Render(storeName string, o order.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("Receipt %s", o.ReceiptNumber), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, storeName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, o.CreatedAt.Format("Jan 2, 2006 3:04 PM"), "", 1, "C", false, 0, "")
	if o.ReceiptNumber != "" {
		pdf.CellFormat(0, 5, "Receipt "+o.ReceiptNumber, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range o.Lines {
		qty := fmt.Sprintf("%d", l.Quantity)
		if l.Weight != nil {
			qty = fmt.Sprintf("%.2f lb", *l.Weight)
		}
		pdf.CellFormat(90, 5, fmt.Sprintf("%s x %s", qty, l.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, amount(l.Total, o.Currency), "", 1, "R", false, 0, "")
		if l.Discount > 0 {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(0, 4, fmt.Sprintf("  discount -%s", amount(l.Discount, o.Currency)), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
		}
	}
	pdf.Ln(2)
	line := func(label string, v money.Money) {
		pdf.CellFormat(90, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, amount(v, o.Currency), "", 1, "R", false, 0, "")
	}
	line("Subtotal", o.Pricing.Subtotal)
	if o.Pricing.Discount > 0 {
		line("Discounts", -o.Pricing.Discount)
	}
	line("Tax", o.Pricing.Tax)
	if o.Pricing.Shipping > 0 {
		line("Shipping", o.Pricing.Shipping)
	}
	if o.Pricing.Tip > 0 {
		line("Tip", o.Pricing.Tip)
	}
	pdf.SetFont("Helvetica", "B", 10)
	line("Total", o.Pricing.Total)

	if o.TableID != "" {
		pdf.SetFont("Helvetica", "", 8)
		pdf.Ln(2)
		pdf.CellFormat(0, 4, "Table "+o.TableID, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func amount(v money.Money, currency string) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cur := strings.ToUpper(currency)
	if cur == "" {
		cur = "USD"
	}
	return fmt.Sprintf("%s%s %s", sign, cur, money.Format(v))
}
