package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/momohouse/pos/internal/escpos"
	"github.com/momohouse/pos/internal/printer"
	"github.com/momohouse/pos/internal/receipt"
)

// PrintQueue is the part of the dispatcher the printer endpoints drive.
// Satisfied by *printer.Dispatcher.
type PrintQueue interface {
	Enqueue(script []byte, tag string) printer.Job
	ClearQueue() int
	Status() printer.Status
}

// PrinterHandler reports printer state and sends maintenance jobs.
type PrinterHandler struct {
	queue PrintQueue
	shop  receipt.Shop
	opts  []escpos.Option
}

// NewPrinterHandler creates a new PrinterHandler. opts configure the builder
// used for test pages and drawer kicks.
func NewPrinterHandler(queue PrintQueue, shop receipt.Shop, opts ...escpos.Option) *PrinterHandler {
	return &PrinterHandler{queue: queue, shop: shop, opts: opts}
}

// RegisterRoutes registers printer endpoints. Expected to be mounted at /printer.
func (h *PrinterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/test", h.TestPrint)
	r.Post("/drawer", h.OpenDrawer)
	r.Delete("/queue", h.ClearQueue)
}

func (h *PrinterHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Status())
}

func (h *PrinterHandler) TestPrint(w http.ResponseWriter, r *http.Request) {
	b := escpos.NewBuilder(h.opts...)
	b.Initialize().
		BoldText(h.shop.Name, escpos.AlignCenter).
		Text("Printer test", escpos.AlignCenter).
		Text(time.Now().Format("02/01/2006 15:04"), escpos.AlignCenter).
		Separator().
		Text("If you can read this, the printer works.", escpos.AlignLeft).
		NewLine(3).
		Cut(false)
	if err := b.Err(); err != nil {
		writeServiceError(w, err, "build test page")
		return
	}
	writeJSON(w, http.StatusAccepted, h.queue.Enqueue(b.Build(), "test"))
}

func (h *PrinterHandler) OpenDrawer(w http.ResponseWriter, r *http.Request) {
	script := escpos.NewBuilder(h.opts...).Initialize().OpenDrawer().Build()
	writeJSON(w, http.StatusAccepted, h.queue.Enqueue(script, "drawer"))
}

func (h *PrinterHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"cleared": h.queue.ClearQueue()})
}
