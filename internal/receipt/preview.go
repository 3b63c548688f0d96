package receipt

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"

	"github.com/momohouse/pos/internal/model"
	"github.com/momohouse/pos/internal/pricing"
	qrcode "github.com/skip2/go-qrcode"
)

//go:embed templates/receipt.html
var previewHTML string

var previewTmpl = template.Must(template.New("receipt").Parse(previewHTML))

const previewQRPixels = 160

type previewLine struct {
	Quantity  int
	Name      string
	Portion   string
	Note      string
	UnitPrice string
	Total     string
}

type previewData struct {
	Shop          Shop
	OrderNumber   string
	Date          string
	OrderType     string
	Customer      model.Customer
	Lines         []previewLine
	Subtotal      string
	Discount      string
	Tax           string
	Total         string
	PaymentMethod string
	Paid          bool
	Cash          bool
	Received      string
	Change        string
	QR            template.URL
	AutoPrint     bool
}

// Preview renders order as a standalone HTML page. With autoPrint the page
// opens the print dialog twice, one per copy.
func (f *Formatter) Preview(order model.Order, shop Shop, autoPrint bool) ([]byte, error) {
	data := previewData{
		Shop:          shop,
		OrderNumber:   order.OrderNumber,
		Date:          f.timestamp(order.CreatedAt),
		OrderType:     order.OrderType,
		Customer:      order.Customer,
		Subtotal:      f.money(order.Subtotal),
		Total:         f.money(order.Total),
		PaymentMethod: order.PaymentMethod,
		Paid:          order.IsPaid,
		Cash:          isCash(order),
		AutoPrint:     autoPrint,
	}
	if order.DiscountAmount.IsPositive() {
		data.Discount = f.money(order.DiscountAmount)
	}
	if order.TaxAmount.IsPositive() {
		data.Tax = f.money(order.TaxAmount)
	}
	if data.Cash {
		data.Received = f.money(order.AmountReceived)
		data.Change = f.money(order.ChangeDue)
	}

	for _, item := range order.Items {
		data.Lines = append(data.Lines, previewLine{
			Quantity:  item.Quantity,
			Name:      item.Name,
			Portion:   pricing.FormatPortionLabel(item.Portion),
			Note:      item.Note,
			UnitPrice: f.money(item.Price),
			Total:     f.money(item.LineTotal()),
		})
	}

	if order.OrderNumber != "" {
		png, err := qrcode.Encode(order.OrderNumber, qrcode.Medium, previewQRPixels)
		if err != nil {
			return nil, fmt.Errorf("encode qr for %s: %w", order.OrderNumber, err)
		}
		data.QR = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	var buf bytes.Buffer
	if err := previewTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render receipt preview: %w", err)
	}
	return buf.Bytes(), nil
}
