// Package server assembles the HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"gochangi/internal/auth"
	"gochangi/internal/autoclear"
	"gochangi/internal/collection"
	"gochangi/internal/config"
	"gochangi/internal/game"
	"gochangi/internal/moderation"
	"gochangi/internal/player"
	"gochangi/internal/question"
	"gochangi/internal/settings"
	"gochangi/pkg/respond"
	"gochangi/pkg/websocket"
)

// Handlers is everything the router mounts.
type Handlers struct {
	Auth        *auth.Handler
	Collections *collection.Handler
	Questions   *question.Handler
	Game        *game.Handler
	Players     *player.Handler
	Moderation  *moderation.Handler
	Settings    *settings.Handler
	AutoClear   *autoclear.Handler
}

type Deps struct {
	Handlers  Handlers
	Auth      *auth.Service
	Limiter   *auth.LoginLimiter
	Hub       *websocket.Hub
	UploadDir string // empty when images are not served from local disk
	UploadURL string
	Logger    *slog.Logger
}

// NewRouter wires every route. REST endpoints live under /api.
func NewRouter(d Deps) *mux.Router {
	h := d.Handlers
	router := mux.NewRouter()
	router.Use(recoverer(d.Logger), requestLogger(d.Logger))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/ws/leaderboard", d.Hub.HandleWebSocket)
	if d.UploadDir != "" {
		router.PathPrefix(d.UploadURL + "/").Handler(
			http.StripPrefix(d.UploadURL+"/", http.FileServer(http.Dir(d.UploadDir))),
		).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()

	// Player facing
	api.Handle("/admins/login", d.Limiter.Middleware(http.HandlerFunc(h.Auth.Login))).Methods(http.MethodPost)
	api.HandleFunc("/collections/public", h.Collections.ListPublic).Methods(http.MethodGet)
	api.HandleFunc("/collections/code/{code}", h.Collections.GetByCode).Methods(http.MethodGet)
	api.HandleFunc("/collections/{code}/questions", h.Questions.ForPlayer).Methods(http.MethodGet)
	api.HandleFunc("/questions/{id}/check", h.Questions.Check).Methods(http.MethodPost)
	api.HandleFunc("/settings", h.Settings.GetGlobal).Methods(http.MethodGet)
	api.HandleFunc("/landing", h.Settings.GetLanding).Methods(http.MethodGet)
	api.HandleFunc("/bad-usernames/check/{username}", h.Moderation.Check).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", h.Players.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/players", h.Players.Create).Methods(http.MethodPost)

	api.HandleFunc("/players/{id}/session", h.Game.Start).Methods(http.MethodPost)
	api.HandleFunc("/players/{id}/session", h.Game.Current).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/session/answer", h.Game.Answer).Methods(http.MethodPost)
	api.HandleFunc("/players/{id}/session/hint", h.Game.Hint).Methods(http.MethodPost)
	api.HandleFunc("/players/{id}/session/skip", h.Game.Skip).Methods(http.MethodPost)

	// Admin console
	admin := api.NewRoute().Subrouter()
	admin.Use(auth.JWTMiddleware(d.Auth))

	admin.HandleFunc("/admins/me", h.Auth.Me).Methods(http.MethodGet)
	admin.HandleFunc("/admins", h.Auth.ListAdmins).Methods(http.MethodGet)
	admin.Handle("/admins", auth.RequireMain(h.Auth.CreateAdmin)).Methods(http.MethodPost)
	admin.HandleFunc("/admins/{id}/password", h.Auth.ChangePassword).Methods(http.MethodPut)
	admin.Handle("/admins/{id}", auth.RequireMain(h.Auth.DeleteAdmin)).Methods(http.MethodDelete)

	admin.HandleFunc("/collections", h.Collections.List).Methods(http.MethodGet)
	admin.HandleFunc("/collections", h.Collections.Create).Methods(http.MethodPost)
	admin.HandleFunc("/collections/{id}", h.Collections.Get).Methods(http.MethodGet)
	admin.HandleFunc("/collections/{id}", h.Collections.Update).Methods(http.MethodPut)
	admin.HandleFunc("/collections/{id}", h.Collections.Delete).Methods(http.MethodDelete)
	admin.HandleFunc("/collections/{id}/order", h.Collections.SetOrder).Methods(http.MethodPut)
	admin.HandleFunc("/collections/{id}/qrcode", h.Collections.QRCode).Methods(http.MethodGet)

	admin.HandleFunc("/questions", h.Questions.List).Methods(http.MethodGet)
	admin.HandleFunc("/questions", h.Questions.Create).Methods(http.MethodPost)
	admin.HandleFunc("/questions/{id}", h.Questions.Get).Methods(http.MethodGet)
	admin.HandleFunc("/questions/{id}", h.Questions.Update).Methods(http.MethodPut)
	admin.HandleFunc("/questions/{id}", h.Questions.Delete).Methods(http.MethodDelete)

	admin.HandleFunc("/players", h.Players.List).Methods(http.MethodGet)
	admin.HandleFunc("/players", h.Players.Clear).Methods(http.MethodDelete)
	admin.HandleFunc("/players/export.pdf", h.Players.ExportPDF).Methods(http.MethodGet)
	admin.HandleFunc("/players/{id}/redeem", h.Players.Redeem).Methods(http.MethodPatch)
	admin.HandleFunc("/players/{id}", h.Players.Patch).Methods(http.MethodPatch)
	admin.HandleFunc("/players/{id}", h.Players.Delete).Methods(http.MethodDelete)

	admin.HandleFunc("/bad-usernames", h.Moderation.List).Methods(http.MethodGet)
	admin.HandleFunc("/bad-usernames", h.Moderation.Add).Methods(http.MethodPost)
	admin.HandleFunc("/bad-usernames/{id}", h.Moderation.Remove).Methods(http.MethodDelete)

	admin.HandleFunc("/settings", h.Settings.UpdateGlobal).Methods(http.MethodPut)
	admin.HandleFunc("/landing", h.Settings.UpdateLanding).Methods(http.MethodPut)

	admin.HandleFunc("/auto-clear", h.AutoClear.GetConfig).Methods(http.MethodGet)
	admin.HandleFunc("/auto-clear", h.AutoClear.UpdateConfig).Methods(http.MethodPut)
	admin.HandleFunc("/auto-clear/run", h.AutoClear.RunNow).Methods(http.MethodPost)
	admin.HandleFunc("/auto-clear/logs", h.AutoClear.Logs).Methods(http.MethodGet)

	// Players read their own record; scores are only written by the session.
	api.HandleFunc("/players/{id}", h.Players.Get).Methods(http.MethodGet)

	return router
}

// CORS wraps the router with the configured origins.
func CORS(origins []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(next)
}

// New builds the http.Server for cfg.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}
}
