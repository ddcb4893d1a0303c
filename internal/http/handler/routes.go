package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"lawdocs/internal/http/middleware"
	"lawdocs/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Everything
// under /documents requires an authenticated user; the auth middleware is the
// single source of the owner ID used for scoping.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, jwtSecret string) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/documents", middleware.RequireUser(jwtSecret))
	docs.Post("/upload", UploadDocument(docSvc))
	docs.Get("/", ListDocuments(docSvc))
	docs.Get("/:id", GetDocument(docSvc))
	docs.Get("/:id/download", DownloadDocument(docSvc))
	docs.Put("/:id", UpdateDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}
