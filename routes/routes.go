package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/courtsidehq/tournament-service/handlers"
	"github.com/courtsidehq/tournament-service/middleware"
	"github.com/courtsidehq/tournament-service/models"
)

// SetupRoutes wires every handler onto the router. Reads are public; anything
// that mutates state needs a valid token, and bracket administration needs
// the admin role.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	teamHandler *handlers.TeamHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/api/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/standings", tournamentHandler.Standings)
		r.Get("/{tournamentID}/layout", tournamentHandler.Layout)
		r.Get("/{tournamentID}/export", tournamentHandler.Export)

		// admin-only bracket administration
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/start", tournamentHandler.Start)
			r.Patch("/{tournamentID}/status", tournamentHandler.UpdateStatus)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
		})

		// scorekeepers and admins run matches
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleScorekeeper))

			r.Post("/{tournamentID}/matches/{matchUID}/start", matchHandler.Start)
			r.Post("/{tournamentID}/matches/{matchUID}/score", matchHandler.UpdateScore)
			r.Post("/{tournamentID}/matches/{matchUID}/end", matchHandler.End)
			r.Post("/{tournamentID}/matches/{matchUID}/advance", matchHandler.Advance)
		})
	})

	router.Route("/api/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Post("/{teamID}/logo", teamHandler.UploadLogo)
			r.Delete("/{teamID}/logo", teamHandler.RemoveLogo)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
