package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/Radamanths/Irina-online-school-sub000/internal/adapter/handler/http"
	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/middleware/auth"
	"github.com/Radamanths/Irina-online-school-sub000/pkg/logger"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
	Webhook  *handlers.WebhookHandler
	Admin    *handlers.AdminHandler
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
}

func NewServer(cfg *config.Config, log *zap.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	logger.WithEchoLogger(e, log)

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	if len(cfg.Server.HTTP.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.HTTP.AllowOrigins,
			AllowMethods: []string{echo.GET, echo.POST},
		}))
	}

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
	}
	s.setupRoutes(h)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes(h Handlers) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	v1 := s.echo.Group("/api/v1")

	// Public routes
	v1.POST("/checkout", h.Checkout.CreateCheckout)
	v1.GET("/orders/:id", h.Order.GetOrder)
	v1.GET("/users/:userId/orders", h.Order.ListUserOrders)
	v1.POST("/orders/:id/self-service", h.Order.RequestSelfService)

	// Provider callbacks, authenticated by their signatures
	v1.POST("/webhooks/:provider", h.Webhook.HandleWebhook)

	// Operator routes
	admin := v1.Group("/admin", auth.JWTMiddleware(auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		Roles:  s.config.JWT.AdminRoles,
	}))
	admin.POST("/dunning/run", h.Admin.RunDunning)
	admin.POST("/payments/:id/refund", h.Admin.RefundPayment)
	admin.GET("/payments", h.Admin.ListPayments)
	admin.POST("/orders/:id/refund", h.Admin.RefundOrder)
	admin.POST("/orders/:id/payment-link", h.Checkout.CreatePaymentLink)
}
