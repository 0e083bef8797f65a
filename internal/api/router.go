package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func NewRouter(apiHandler *APIHandler, log zerolog.Logger, clientURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(CORS(clientURL))

	r.Get("/api/health", apiHandler.HealthHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", apiHandler.RegisterHandler)
		r.Post("/auth/login", apiHandler.LoginHandler)

		r.With(apiHandler.OptionalAuth).Post("/ai/parse-ai", apiHandler.ParseAIHandler)

		r.Group(func(r chi.Router) {
			r.Use(apiHandler.RequireAuth)

			r.Get("/auth/getUser", apiHandler.GetUserHandler)

			r.Post("/expense/add", apiHandler.AddExpenseHandler)
			r.Get("/expense/get", apiHandler.GetExpensesHandler)
			r.Delete("/expense/{id}", apiHandler.DeleteExpenseHandler)

			r.Post("/income/add", apiHandler.AddIncomeHandler)
			r.Get("/income/get", apiHandler.GetIncomeHandler)
			r.Delete("/income/{id}", apiHandler.DeleteIncomeHandler)

			r.Post("/budget/save", apiHandler.SaveBudgetsHandler)
			r.Get("/budget/get", apiHandler.GetBudgetsHandler)
			r.Get("/budget/categories", apiHandler.CategoriesHandler)
		})
	})

	return r
}
