package receipt

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/kassa/internal/model"
	"github.com/roach88/kassa/internal/money"
)

// ViewerConfig configures the receipt viewer.
type ViewerConfig struct {
	// Origin is the public base URL the QR codes point at.
	Origin string

	QRSize   int
	QRMargin int

	// Currency and Language format amounts. Receipts carry bare integers.
	Currency string
	Language string

	// Location is where the receipt time is shown. Default: time.Local.
	Location *time.Location
}

type viewer struct {
	cfg ViewerConfig
}

// NewHandler returns the viewer routes:
//
//	GET /receipt?data=...     HTML receipt, or 400 "Invalid receipt"
//	GET /receipt/qr?data=...  PNG QR of the canonical receipt URL
//	GET /healthz
func NewHandler(cfg ViewerConfig) http.Handler {
	if cfg.QRSize == 0 {
		cfg.QRSize = DefaultQRSize
	}
	if cfg.QRMargin == 0 {
		cfg.QRMargin = DefaultQRMargin
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	v := &viewer{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/receipt", v.page)
	r.Get("/receipt/qr", v.qr)
	return r
}

func (v *viewer) page(w http.ResponseWriter, r *http.Request) {
	p, err := FromQuery(r.URL.Query())
	if err != nil {
		slog.Debug("invalid receipt requested", "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		if err := invalidTmpl.Execute(w, nil); err != nil {
			slog.Error("render invalid receipt", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := receiptTmpl.Execute(w, v.view(p)); err != nil {
		slog.Error("render receipt", "error", err)
	}
}

func (v *viewer) qr(w http.ResponseWriter, r *http.Request) {
	p, err := FromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, "Invalid receipt", http.StatusBadRequest)
		return
	}
	link, err := URL(v.cfg.Origin, p)
	if err != nil {
		http.Error(w, "Invalid receipt", http.StatusBadRequest)
		return
	}
	img, err := QR(link, v.cfg.QRSize, v.cfg.QRMargin)
	if err != nil {
		slog.Error("render receipt qr", "error", err)
		http.Error(w, "qr unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

type lineView struct {
	Name     string
	Quantity int
	Amount   string
}

type receiptView struct {
	Shop    string
	Date    string
	Lines   []lineView
	Total   string
	Payment string
}

func (v *viewer) view(p Payload) receiptView {
	rv := receiptView{
		Shop:    p.Shop,
		Date:    p.Date,
		Total:   money.Format(p.Total, v.cfg.Currency, v.cfg.Language),
		Payment: paymentLabel(p.Payment),
	}
	if t, err := p.Time(); err == nil {
		rv.Date = t.In(v.cfg.Location).Format("2006-01-02 15:04")
	}
	for _, it := range p.Items {
		rv.Lines = append(rv.Lines, lineView{
			Name:     it.Name,
			Quantity: it.Quantity,
			Amount:   money.Format(it.Subtotal(), v.cfg.Currency, v.cfg.Language),
		})
	}
	return rv
}

func paymentLabel(p model.PaymentType) string {
	switch p {
	case model.PaymentCash:
		return "Cash"
	case model.PaymentCard:
		return "Card"
	}
	return string(p)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>{{.Shop}}</title></head>
<body>
<main class="receipt">
<h1>{{.Shop}}</h1>
<p class="date">{{.Date}}</p>
<table>
{{- range .Lines}}
<tr><td>{{.Name}} x{{.Quantity}}</td><td>{{.Amount}}</td></tr>
{{- end}}
</table>
<p class="total"><span>TOTAL</span> <span>{{.Total}}</span></p>
<p class="payment">{{.Payment}}</p>
<p class="thanks">Thank you for visiting!</p>
</main>
</body>
</html>
`))

var invalidTmpl = template.Must(template.New("invalid").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Invalid receipt</title></head>
<body><p>Invalid receipt</p></body>
</html>
`))
