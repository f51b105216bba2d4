package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parking-backend/config"
	"parking-backend/internal/lifecycle"
	"parking-backend/internal/model"
	"parking-backend/internal/mw"
	"parking-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(svc *lifecycle.Service, s store.Store, cfg *config.Config, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())
	if cfg.Server.RequestIPHeader != "" {
		r.RemoteIPHeaders = []string{cfg.Server.RequestIPHeader}
	}

	handler := NewHandler(svc, s, webpushOptions)

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)
	evict := mw.Evict(cacheStore)

	staff := mw.RequireRole(model.RoleOperator, model.RoleAdmin)

	r.GET("/healthz", handler.Healthz)

	public := r.Group("/api")
	public.Use(rateLimiter)
	public.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

	// Authenticated API group
	api := r.Group("/api")
	api.Use(mw.Authenticate(cfg.Auth.JWTSecret), rateLimiter)
	{
		api.POST("/reservations", handler.CreateReservation)
		api.GET("/reservations", handler.ListReservations)
		api.GET("/reservations/:id", handler.GetReservation)
		api.PATCH("/reservations/:id/state", handler.UpdateReservationState)

		api.POST("/occupancies/check-in", handler.CheckIn)
		api.GET("/occupancies/:id", handler.GetOccupancy)
		api.GET("/occupancies/:id/estimate", handler.EstimateOccupancy)
		api.POST("/occupancies/:id/exit-request", handler.RequestExit)
		api.POST("/occupancies/:id/direct-exit", staff, handler.DirectExit)
		api.POST("/occupancies/:id/settle-and-pay", staff, handler.SettleAndPay)

		api.GET("/lots/:lot_id/occupancies", staff, handler.ListLotOccupancies)
		api.GET("/lots/:lot_id/payments/pending", staff, handler.ListPendingPayments)
		api.POST("/payments/:id/settle", staff, handler.SettlePayment)
		api.POST("/payments/:id/simulate", staff, handler.SimulatePayment)

		api.GET("/lots/:lot_id/tariffs", caching, handler.ListTariffs)
		api.POST("/lots/:lot_id/tariffs", staff, evict, handler.CreateTariff)
		api.DELETE("/tariffs/:id", staff, evict, handler.DeleteTariff)

		api.GET("/lots/:lot_id/spaces", handler.ListSpaces)
		api.PATCH("/spaces/:id/disabled", staff, handler.SetSpaceDisabled)

		api.GET("/notifications", handler.ListNotifications)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
