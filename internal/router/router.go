package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/colorfest/ticket-booking/internal/config"
	"github.com/colorfest/ticket-booking/internal/handler"
	"github.com/colorfest/ticket-booking/internal/middleware"
)

// Register wires every route of the service onto the provided Echo
// instance.  Browse GETs sit behind the Redis response cache; checkout
// and payment verification sit behind the rate limiter; organizer
// endpoints require an organizer JWT.  The rdb client may be nil, in
// which case cache and rate limiting degrade to pass-throughs.
func Register(e *echo.Echo, browse *handler.BrowseHandler, checkout *handler.CheckoutHandler, organizer *handler.OrganizerHandler, rdb *redis.Client, jwtSecret string) {
	// Liveness and metrics endpoints for load balancers and Prometheus.
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cache := middleware.NewBrowseCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewRateLimit(config.LoadRateLimitConfig(), rdb)

	// Public browse surface.  Cached; short TTL keeps availability
	// close to live.
	e.GET("/v1/events", browse.ListEvents, cache)
	e.GET("/v1/events/:id/tickets", browse.ListEventTickets, cache)
	// Ticket retrieval by order id is intentionally uncached: it must
	// reflect settlement immediately after payment.
	e.GET("/v1/orders/:order_id/tickets", browse.GetOrderTickets)

	// Booking core.  Rate limited per client IP.
	e.POST("/v1/events/:id/checkout", checkout.Checkout, limit)
	e.POST("/v1/payments/verify", checkout.VerifyPayment, limit)

	// Organizer API.  Login is open; everything else requires the
	// organizer role.
	e.POST("/v1/auth/login", organizer.Login)
	g := e.Group("/v1/organizer")
	g.Use(middleware.OrganizerAuth(jwtSecret))
	g.GET("/events", organizer.ListAllEvents)
	g.POST("/events", organizer.CreateEvent)
	g.PUT("/events/:id", organizer.UpdateEvent)
	g.DELETE("/events/:id", organizer.DeleteEvent)
	g.POST("/events/:id/tickets", organizer.CreateTicketType)
	g.PUT("/tickets/:id", organizer.UpdateTicketType)
	g.DELETE("/tickets/:id", organizer.DeleteTicketType)
	g.GET("/events/:id/bookings", organizer.ListEventBookings)
}
