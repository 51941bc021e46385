package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentverse/internal/infra/config"
	"rentverse/internal/infra/obs"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
	BecomeLandlord(c *gin.Context)
}

type PropertyHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
}

type LandlordPropertyHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Publish(c *gin.Context)
	Unpublish(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	Availability(c *gin.Context)
	ListMine(c *gin.Context)
}

type PaymentHTTP interface {
	Pay(c *gin.Context)
	Confirm(c *gin.Context)
	CancelPending(c *gin.Context)
	ListMine(c *gin.Context)
	ListUnpaid(c *gin.Context)
}

type WebhookHTTP interface {
	PaymentCallback(c *gin.Context)
}

type Handlers struct {
	Auth             AuthHTTP
	Property         PropertyHTTP
	LandlordProperty LandlordPropertyHTTP
	Booking          BookingHTTP
	Payment          PaymentHTTP
	Webhook          WebhookHTTP
	AuthMiddleware   gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Callback-Token"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
		api.POST("/auth/become-landlord", h.Auth.BecomeLandlord)
	}
	if h.Property != nil {
		api.GET("/properties", h.Property.Catalog)
		api.GET("/properties/:id", h.Property.Get)
	}
	if h.LandlordProperty != nil {
		landlordGroup := api.Group("/landlord/properties")
		landlordGroup.GET("", h.LandlordProperty.List)
		landlordGroup.POST("", h.LandlordProperty.Create)
		landlordGroup.PUT("/:id", h.LandlordProperty.Update)
		landlordGroup.POST("/:id/publish", h.LandlordProperty.Publish)
		landlordGroup.POST("/:id/unpublish", h.LandlordProperty.Unpublish)
		landlordGroup.POST("/:id/photos", h.LandlordProperty.UploadPhoto)
	}
	if h.Booking != nil {
		api.GET("/properties/:id/availability", h.Booking.Availability)
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.GET("/me/bookings", h.Booking.ListMine)
	}
	if h.Payment != nil {
		api.GET("/me/installments", h.Payment.ListMine)
		api.GET("/me/installments/unpaid", h.Payment.ListUnpaid)
		api.POST("/installments/:id/pay", h.Payment.Pay)
		api.POST("/installments/:id/confirm", h.Payment.Confirm)
		api.POST("/installments/:id/cancel-payment", h.Payment.CancelPending)
	}
	if h.Webhook != nil {
		api.POST("/webhooks/payments", h.Webhook.PaymentCallback)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
