package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rewear-api/internal/application/item"
	"github.com/rewear-api/internal/application/notification"
	"github.com/rewear-api/internal/application/points"
	"github.com/rewear-api/internal/application/redemption"
	"github.com/rewear-api/internal/application/swap"
	"github.com/rewear-api/internal/application/user"
	"github.com/rewear-api/internal/config"
	"github.com/rewear-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/rewear-api/internal/infrastructure/jwt"
	s3infra "github.com/rewear-api/internal/infrastructure/s3"
	"github.com/rewear-api/internal/infrastructure/sns"
	"github.com/rewear-api/internal/transport/http/handler"
	appmiddleware "github.com/rewear-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	ItemRepo         *dynamo.ItemRepo
	SwapRepo         *dynamo.SwapRepo
	RedemptionRepo   *dynamo.RedemptionRepo
	PointsRepo       *dynamo.PointsRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Pusher           sns.Publisher
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second with a burst of 10, applied to the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	notifSvc := notification.NewService(deps.NotificationRepo, deps.Pusher)
	pointsSvc := points.NewService(deps.PointsRepo, deps.UserRepo)
	userSvc := user.NewService(deps.UserRepo, pointsSvc, notifSvc, deps.JWTProvider)
	itemSvc := item.NewService(deps.ItemRepo, deps.UserRepo, pointsSvc, deps.S3Store, notifSvc)
	swapSvc := swap.NewService(deps.SwapRepo, deps.ItemRepo, pointsSvc, notifSvc)
	redemptionSvc := redemption.NewService(deps.RedemptionRepo, deps.ItemRepo, pointsSvc, notifSvc)

	healthH := handler.NewHealthHandler()
	userH := handler.NewUserHandler(userSvc)
	itemH := handler.NewItemHandler(itemSvc)
	swapH := handler.NewSwapHandler(swapSvc)
	redemptionH := handler.NewRedemptionHandler(redemptionSvc)
	pointsH := handler.NewPointsHandler(pointsSvc)
	notifH := handler.NewNotificationHandler(notifSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/signup", userH.Signup)
		r.With(sensitiveRL.Limit).Post("/auth/signin", userH.Signin)
		r.Post("/auth/refresh", userH.Refresh)
		r.Get("/items", itemH.List)
		r.Get("/items/{id}", itemH.Get)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/auth/signout", userH.Signout)
			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.Update)
			r.Get("/users/{id}", userH.Get)

			r.Post("/items", itemH.Create)
			r.Get("/items/mine", itemH.ListMine)
			r.Put("/items/{id}", itemH.Update)
			r.Delete("/items/{id}", itemH.Delete)
			r.Get("/items/{id}/swaps", swapH.ItemDetails)
			r.Get("/items/{id}/redemptions", redemptionH.ItemDetails)

			r.Post("/swaps", swapH.Propose)
			r.Get("/swaps", swapH.List)
			r.Get("/swaps/{id}", swapH.Get)
			r.Put("/swaps/{id}/accept", swapH.Accept)
			r.Put("/swaps/{id}/reject", swapH.Reject)
			r.Put("/swaps/{id}/cancel", swapH.Cancel)
			r.Put("/swaps/{id}/complete", swapH.Complete)

			r.Post("/redemptions", redemptionH.Redeem)
			r.Get("/redemptions", redemptionH.List)
			r.Get("/redemptions/{id}", redemptionH.Get)
			r.Put("/redemptions/{id}/ship", redemptionH.MarkShipped)
			r.Put("/redemptions/{id}/receive", redemptionH.MarkReceived)
			r.Put("/redemptions/{id}/cancel", redemptionH.Cancel)

			r.Get("/points/balance", pointsH.Balance)
			r.Get("/points/history", pointsH.History)

			r.Get("/notifications", notifH.List)
			r.Put("/notifications/read", notifH.MarkAllRead)
			r.Put("/notifications/{id}", notifH.MarkAsRead)
			r.Delete("/notifications/{id}", notifH.Delete)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAdmin())

				r.Get("/points/reconcile/{id}", pointsH.Reconcile)
			})
		})
	})

	return r
}
