// Package retailopsserver is the HTTP boundary of the retail operations service.
package retailopsserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers for every API section.
type ApiHandleFunctions struct {
	InboundAPI   InboundAPI
	TicketAPI    TicketAPI
	StockAPI     StockAPI
	DirectoryAPI DirectoryAPI
}

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	// Authenticator guards every /v1 route. Nil trusts X-Actor-ID.
	Authenticator *Authenticator
	// Middleware runs on every request, before authentication.
	Middleware []gin.HandlerFunc
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Ready reports readiness for GET /healthz; nil always reports ok.
	Ready func() error
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions, opts RouterOptions) *gin.Engine {
	return NewRouterWithGinEngine(gin.New(), handleFunctions, opts)
}

// NewRouterWithGinEngine adds the routes to an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions, opts RouterOptions) *gin.Engine {
	router.Use(gin.Recovery())
	router.Use(opts.Middleware...)

	router.GET("/healthz", healthz(opts.Ready))
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	auth := opts.Authenticator
	if auth == nil {
		auth = NewAuthenticator("")
	}
	v1 := router.Group("/v1", auth.Middleware())
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		v1.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes without a handler.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func healthz(ready func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func getRoutes(h ApiHandleFunctions) []Route {
	return []Route{
		{"CreateRecord", http.MethodPost, "/inbound-records", h.InboundAPI.CreateRecord},
		{"ListRecords", http.MethodGet, "/inbound-records", h.InboundAPI.ListRecords},
		{"GetRecord", http.MethodGet, "/inbound-records/:id", h.InboundAPI.GetRecord},
		{"ApproveRecord", http.MethodPost, "/inbound-records/:id/approve", h.InboundAPI.ApproveRecord},
		{"RejectRecord", http.MethodPost, "/inbound-records/:id/reject", h.InboundAPI.RejectRecord},

		{"CreateTicket", http.MethodPost, "/tickets", h.TicketAPI.CreateTicket},
		{"ListTickets", http.MethodGet, "/tickets", h.TicketAPI.ListTickets},
		{"GetTicket", http.MethodGet, "/tickets/:id", h.TicketAPI.GetTicket},
		{"AssignTicket", http.MethodPost, "/tickets/:id/assign", h.TicketAPI.AssignTicket},
		{"AttachEvidence", http.MethodPost, "/tickets/:id/attachments", h.TicketAPI.AttachEvidence},
		{"ResolveTicket", http.MethodPost, "/tickets/:id/resolve", h.TicketAPI.ResolveTicket},
		{"RejectTicket", http.MethodPost, "/tickets/:id/reject", h.TicketAPI.RejectTicket},
		{"CloseTicket", http.MethodPost, "/tickets/:id/close", h.TicketAPI.CloseTicket},

		{"RegisterStock", http.MethodPost, "/stock", h.StockAPI.RegisterStock},
		{"GetStock", http.MethodGet, "/stock/:productId", h.StockAPI.GetStock},
		{"ListMovements", http.MethodGet, "/stock/movements/:correlationId", h.StockAPI.ListMovements},
		{"AdjustStock", http.MethodPost, "/stock/:productId/adjustments", h.StockAPI.AdjustStock},

		{"ImportOrder", http.MethodPost, "/orders", h.DirectoryAPI.ImportOrder},
		{"GetOrder", http.MethodGet, "/orders/:id", h.DirectoryAPI.GetOrder},
		{"RegisterUser", http.MethodPost, "/users", h.DirectoryAPI.RegisterUser},
		{"GetUser", http.MethodGet, "/users/:id", h.DirectoryAPI.GetUser},
	}
}
