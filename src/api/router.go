package api

import (
	"net/http"
	"time"

	"finanzas-server/src/db"
	sqldb "finanzas-server/src/db/sql"
	"finanzas-server/src/events"
	"finanzas-server/src/handlers"
	"finanzas-server/src/middleware"
	"finanzas-server/src/service"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RateLimit struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// Deps is everything the HTTP surface is built from. Redis is optional and
// only backs the login rate limiter.
type Deps struct {
	Pool         sqldb.Querier
	Transactions *service.TransactionService
	Cache        *db.Cache
	Events       events.Subscriber
	Redis        *redis.Client
	Log          zerolog.Logger

	Auth         handlers.AuthConfig
	BaseCurrency string
	CORSOrigins  []string
	DemoMode     bool
	RateLimit    RateLimit
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))
	r.Use(middleware.DemoModeMiddleware(d.DemoMode))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	authLimiter := middleware.RateLimiter(d.Redis, d.RateLimit.Limit, d.RateLimit.Window, d.RateLimit.Block, "auth")

	// Form clients post here without the /api prefix.
	r.With(middleware.JWTAuthMiddleware(d.Auth.Secret)).Post("/transactions", handlers.CreateTransaction(d.Transactions))

	r.Route("/api", func(r chi.Router) {
		r.With(authLimiter).Post("/login", handlers.Login(d.Pool, d.Auth))
		r.With(authLimiter).Post("/register", handlers.Register(d.Pool, d.Auth))

		// Protected routes
		r.With(middleware.JWTAuthMiddleware(d.Auth.Secret)).Group(func(r chi.Router) {
			// User
			r.Get("/user", handlers.GetUser(d.Pool))
			r.Put("/user", handlers.UpdateUser(d.Pool))
			r.Post("/user/change-password", handlers.ChangePassword(d.Pool))
			r.Delete("/user", handlers.DeleteUser(d.Pool))

			// Transactions
			r.Post("/transactions", handlers.CreateTransaction(d.Transactions))
			r.Get("/transactions", handlers.ListTransactions(d.Transactions))
			r.Post("/transactions/classify", handlers.ClassifyTransaction(d.Transactions))
			r.Get("/transactions/suspicious-check", handlers.SuspiciousCheck(d.Transactions))
			r.Get("/transactions/{transaction_id}", handlers.GetTransaction(d.Transactions))
			r.Delete("/transactions/{transaction_id}", handlers.DeleteTransaction(d.Transactions))
			r.Get("/dashboard", handlers.GetDashboard(d.Transactions))
			r.Get("/events/ws", handlers.EventsWS(d.Events, d.CORSOrigins))

			// Accounts
			r.Post("/accounts/{kind}", handlers.CreateAccount(d.Pool, d.Cache, d.BaseCurrency))
			r.Get("/accounts/{kind}", handlers.ListAccounts(d.Pool, d.Cache))
			r.Get("/accounts/{kind}/{account_id}", handlers.GetAccount(d.Pool))
			r.Put("/accounts/{kind}/{account_id}", handlers.UpdateAccount(d.Pool, d.Cache))
			r.Put("/accounts/{kind}/{account_id}/balance", handlers.SetAccountBalance(d.Pool, d.Cache))
			r.Delete("/accounts/{kind}/{account_id}", handlers.DeleteAccount(d.Pool, d.Cache))

			// Savings goals
			r.Post("/goals", handlers.CreateGoal(d.Pool, d.Cache, d.BaseCurrency))
			r.Get("/goals", handlers.ListGoals(d.Pool))
			r.Get("/goals/{goal_id}", handlers.GetGoal(d.Pool))
			r.Put("/goals/{goal_id}", handlers.UpdateGoal(d.Pool, d.Cache))
			r.Delete("/goals/{goal_id}", handlers.DeleteGoal(d.Pool, d.Cache))

			// Contacts
			r.Post("/contacts", handlers.CreateContact(d.Pool))
			r.Get("/contacts", handlers.ListContacts(d.Pool))
			r.Get("/contacts/{contact_id}", handlers.GetContact(d.Pool))
			r.Put("/contacts/{contact_id}", handlers.UpdateContact(d.Pool))
			r.Delete("/contacts/{contact_id}", handlers.DeleteContact(d.Pool))
		})

		// Super Admin Routes
		r.With(middleware.JWTAuthMiddleware(d.Auth.Secret), middleware.SuperAdminMiddleware).Group(func(r chi.Router) {
			// User
			r.Get("/admin/users", handlers.GetAllUsers(d.Pool))
			r.Post("/admin/user/lock/{user_id}", handlers.LockUser(d.Pool))
			r.Post("/admin/user/unlock/{user_id}", handlers.UnlockUser(d.Pool))

			// Cache
			r.Post("/admin/cache/clear/{cache_name}", handlers.ClearCache(d.Cache))

			// Whitelisted Emails
			r.Post("/admin/whitelisted-emails", handlers.CreateWhitelistedEmail(d.Pool))
			r.Get("/admin/whitelisted-emails", handlers.GetAllWhitelistedEmails(d.Pool))
			r.Delete("/admin/whitelisted-emails/{email_id}", handlers.DeleteWhitelistedEmail(d.Pool))
		})
	})

	return r
}
