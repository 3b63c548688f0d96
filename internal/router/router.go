package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/momohouse/pos/internal/alert"
	"github.com/momohouse/pos/internal/auth"
	"github.com/momohouse/pos/internal/config"
	"github.com/momohouse/pos/internal/escpos"
	"github.com/momohouse/pos/internal/handler"
	mw "github.com/momohouse/pos/internal/middleware"
	"github.com/momohouse/pos/internal/printer"
	"github.com/momohouse/pos/internal/receipt"
	"github.com/momohouse/pos/internal/service"
	"github.com/momohouse/pos/internal/ws"
	"github.com/rs/zerolog"
)

// Deps are the long-lived components the routes are served from.
type Deps struct {
	Menu      *service.MenuService
	Carts     *service.CartSessions
	Orders    *service.OrderService
	Receipts  *receipt.Formatter
	Printer   *printer.Dispatcher
	Alerts    *alert.Alerter
	Hub       *ws.Hub
	Passcodes *auth.Passcodes
	Limiter   *mw.IPRateLimiter
	Logger    zerolog.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, rate limiting, and role-based middleware as needed.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	shop := receipt.Shop{Name: cfg.Shop.Name, Address: cfg.Shop.Address, Phone: cfg.Shop.Phone}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(d.Passcodes, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authHandler.RegisterRoutes(r)

	publicHandler := handler.NewPublicHandler(d.Menu, d.Orders)
	r.Route("/public", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		publicHandler.RegisterRoutes(r)
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.Auth.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.Auth.JWTSecret))

		menuHandler := handler.NewMenuHandler(d.Menu)
		r.Route("/menu", menuHandler.RegisterRoutes)

		cartHandler := handler.NewCartHandler(d.Carts, d.Orders, d.Printer, shop, cfg.Printer.Copies)
		r.Route("/carts", cartHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(d.Orders, d.Receipts, d.Printer, shop, cfg.Printer.Copies)
		r.Route("/orders", orderHandler.RegisterRoutes)

		printerHandler := handler.NewPrinterHandler(d.Printer, shop,
			escpos.WithWidth(cfg.Printer.CharsPerLine),
			escpos.WithCodePage(escpos.ParseCodePage(cfg.Printer.CodePage)),
		)
		r.Route("/printer", printerHandler.RegisterRoutes)

		alertHandler := handler.NewAlertHandler(d.Alerts)
		r.Route("/alerts", alertHandler.RegisterRoutes)
	})

	d.Logger.Info().Msg("router initialized")
	return r
}
