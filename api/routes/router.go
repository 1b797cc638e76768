package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lendingloop/lendingloop-backend/api/controllers"
	"github.com/lendingloop/lendingloop-backend/api/middleware"
	"github.com/lendingloop/lendingloop-backend/internal/auth"
	"github.com/lendingloop/lendingloop-backend/internal/invitations"
	"github.com/lendingloop/lendingloop-backend/internal/items"
	"github.com/lendingloop/lendingloop-backend/internal/loops"
	"github.com/lendingloop/lendingloop-backend/internal/notifications"
	"github.com/lendingloop/lendingloop-backend/internal/requests"
	"github.com/lendingloop/lendingloop-backend/internal/users"
	"github.com/lendingloop/lendingloop-backend/pkg/auth/session"
	"github.com/lendingloop/lendingloop-backend/pkg/config"
	"github.com/lendingloop/lendingloop-backend/pkg/db"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
	"github.com/lendingloop/lendingloop-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	Redis         *redis.Client
	Sessions      session.AccessSessionChecker
	AuthService   auth.Service
	Register      auth.RegisterService
	Users         *users.Repository
	Loops         loops.Service
	Items         items.Service
	Requests      requests.Service
	Invitations   invitations.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).With(middleware.Idempotency(deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(deps.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserProfile(deps.Users, logg))
			r.Put("/me", controllers.UserProfileUpdate(deps.Users, logg))
		})

		r.Route("/loops", func(r chi.Router) {
			r.Post("/", controllers.LoopCreate(deps.Loops, logg))
			r.Get("/", controllers.LoopList(deps.Loops, logg))
			r.Route("/{loopId}", func(r chi.Router) {
				r.Get("/", controllers.LoopGet(deps.Loops, logg))
				r.Patch("/", controllers.LoopUpdate(deps.Loops, logg))
				r.Delete("/", controllers.LoopDelete(deps.Loops, logg))
				r.Post("/archive", controllers.LoopArchive(deps.Loops, logg))
				r.Post("/unarchive", controllers.LoopUnarchive(deps.Loops, logg))
				r.Post("/transfer-ownership", controllers.LoopTransferOwnership(deps.Loops, logg))
				r.Post("/leave", controllers.LoopLeave(deps.Loops, logg))
				r.Get("/members", controllers.LoopMembers(deps.Loops, logg))
				r.Get("/potential-invitees", controllers.LoopPotentialInvitees(deps.Loops, logg))
				r.Get("/ownership-history", controllers.LoopOwnershipHistory(deps.Loops, logg))
				r.Post("/invitations", controllers.InvitationCreate(deps.Invitations, logg))
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.ItemCreate(deps.Items, logg))
			r.Get("/mine", controllers.ItemListMine(deps.Items, logg))
			r.Get("/visible", controllers.ItemListVisible(deps.Items, logg))
			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", controllers.ItemGet(deps.Items, logg))
				r.Patch("/", controllers.ItemUpdate(deps.Items, logg))
				r.Delete("/", controllers.ItemDelete(deps.Items, logg))
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.RequestCreate(deps.Requests, logg))
			r.Get("/incoming", controllers.RequestListIncoming(deps.Requests, logg))
			r.Get("/outgoing", controllers.RequestListOutgoing(deps.Requests, logg))
			r.Route("/{requestId}", func(r chi.Router) {
				r.Post("/approve", controllers.RequestApprove(deps.Requests, logg))
				r.Post("/reject", controllers.RequestReject(deps.Requests, logg))
				r.Post("/cancel", controllers.RequestCancel(deps.Requests, logg))
				r.Post("/complete", controllers.RequestComplete(deps.Requests, logg))
			})
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/pending", controllers.InvitationListPending(deps.Invitations, logg))
			r.Post("/accept", controllers.InvitationAcceptByToken(deps.Invitations, logg))
			r.Route("/{invitationId}", func(r chi.Router) {
				r.Post("/accept", controllers.InvitationAccept(deps.Invitations, logg))
				r.Post("/decline", controllers.InvitationDecline(deps.Invitations, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Route("/{notificationId}", func(r chi.Router) {
				r.Post("/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Delete("/", controllers.DeleteNotification(deps.Notifications, logg))
			})
		})
	})

	return r
}
