package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"filevault/internal/auth"
	"filevault/internal/http/middleware"
	"filevault/internal/service"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Files    service.FileService
	Verifier auth.TokenVerifier
	// Revoker is optional. Logout only acknowledges when it is nil.
	Revoker  auth.Revoker
	Health   Pinger
	Gatherer prometheus.Gatherer
	// Log receives per-upload progress. Nil discards it.
	Log *zap.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Authentication is attached per route so unknown paths still answer 404.
func RegisterRoutes(app *fiber.App, d Deps) {
	authn := middleware.Authenticate(d.Verifier)

	app.Get("/health", HealthCheck(d.Health))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/login", Login(d.Verifier))
	app.Post("/auth/logout", authn, Logout(d.Revoker))

	app.Post("/upload", authn, UploadFile(d.Files, d.Log))
	app.Get("/files", authn, ListFiles(d.Files))
	app.Get("/files/:fileId", authn, GetFile(d.Files))
	app.Delete("/files/:fileId", authn, DeleteFile(d.Files))
}
