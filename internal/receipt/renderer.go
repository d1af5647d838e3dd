package receipt

import (
	"embed"
	"html/template"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/awais2000/Blue-Star/internal/sales/invoices"
)

//go:embed templates/*.html
var templates embed.FS

// Renderer produces receipt HTML for the configured business.
type Renderer struct {
	tpl      *template.Template
	business Business
	currency string
}

// NewRenderer parses the embedded receipt templates.
func NewRenderer(business Business, currency string) (*Renderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"money": func(v float64) string {
			return printer.Sprintf("%s %.2f", currency, v)
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
	}
	tpl, err := template.New("receipt").Funcs(funcMap).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl, business: business, currency: currency}, nil
}

type receiptData struct {
	Business Business
	Invoice  invoices.Invoice
}

// Render writes the invoice receipt in the requested format.
func (r *Renderer) Render(w io.Writer, format Format, inv invoices.Invoice) error {
	if !format.Valid() {
		return ErrUnknownFormat
	}
	return r.tpl.ExecuteTemplate(w, string(format)+".html", receiptData{
		Business: r.business,
		Invoice:  inv,
	})
}
