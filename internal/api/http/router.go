package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/itsm-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/itsm-ticket-service/internal/auth"
	"github.com/spec-kit/itsm-ticket-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Approvals      *handlers.ApprovalsHandler
	Catalog        *handlers.CatalogHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.SearchTickets)
	// Static segments must precede /:id.
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/by-ticket-no/:no", cfg.Tickets.GetTicketByNumber)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/title", cfg.Tickets.UpdateTitle)
	tickets.Patch("/:id/description", cfg.Tickets.UpdateDescription)
	tickets.Patch("/:id/assignee", cfg.Tickets.UpdateAssignee)
	tickets.Patch("/:id/labels", cfg.Tickets.UpdateLabels)
	tickets.Patch("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/viewers", cfg.Tickets.ListViewers)
	tickets.Post("/:id/viewers", cfg.Tickets.GrantViewer)
	tickets.Get("/:id/notes", cfg.Tickets.ListNotes)
	tickets.Post("/:id/notes", cfg.Tickets.AddNote)
	tickets.Get("/:id/approval", cfg.Tickets.GetApproval)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Delete("/:id/attachments/:attachment_id", cfg.Tickets.RemoveAttachment)

	approvals := api.Group("/approvals")
	approvals.Post("/process-steps/:step_id/approve", cfg.Approvals.ApproveStep)
	approvals.Post("/process-steps/:step_id/reject", cfg.Approvals.RejectStep)
	// Short alias kept for existing clients.
	approvals.Post("/steps/:step_id/approve", cfg.Approvals.ApproveStep)
	approvals.Post("/steps/:step_id/reject", cfg.Approvals.RejectStep)

	templates := api.Group("/approval-templates")
	templates.Post("/", cfg.Approvals.CreateTemplate)
	templates.Get("/", cfg.Approvals.ListTemplates)
	templates.Get("/:id", cfg.Approvals.GetTemplate)
	templates.Delete("/:id", cfg.Approvals.DeleteTemplate)

	labels := api.Group("/labels")
	labels.Post("/", cfg.Catalog.CreateLabel)
	labels.Get("/", cfg.Catalog.ListLabels)
	labels.Get("/:id", cfg.Catalog.GetLabel)
	labels.Put("/:id", cfg.Catalog.UpdateLabel)
	labels.Delete("/:id", cfg.Catalog.DeleteLabel)

	categories := api.Group("/categories")
	categories.Post("/", cfg.Catalog.CreateCategory)
	categories.Get("/", cfg.Catalog.ListCategories)
	categories.Get("/:id", cfg.Catalog.GetCategory)
	categories.Put("/:id", cfg.Catalog.UpdateCategory)
	categories.Delete("/:id", cfg.Catalog.DeleteCategory)
}
