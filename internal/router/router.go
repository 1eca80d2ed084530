package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/bancozim/origination/api/handler"
)

type Handlers struct {
	Wizard   *apiHandler.WizardHandler
	WhatsApp *apiHandler.WhatsAppHandler
	USSD     *apiHandler.USSDHandler
	Lookup   *apiHandler.LookupHandler
	Admin    *apiHandler.AdminHandler
	Webhook  *apiHandler.WebhookHandler
	Health   *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Wizard (web and mobile app)
	r.POST("/api/v1/applications", handlers.Wizard.Start)
	r.GET("/api/v1/applications/{session_id}", handlers.Wizard.Get)
	r.PUT("/api/v1/applications/{session_id}/steps/{step}", handlers.Wizard.SaveStep)
	r.GET("/api/v1/applications/{session_id}/transitions", handlers.Wizard.Transitions)

	// Channel gateways
	r.POST("/api/v1/channels/whatsapp", handlers.WhatsApp.Webhook)
	r.POST("/api/v1/channels/ussd", handlers.USSD.Session)

	// Reference code lookups
	r.POST("/api/v1/lookup/validate", handlers.Lookup.Validate)
	r.POST("/api/v1/lookup/resolve", handlers.Lookup.Resolve)

	// Bureau callback
	r.POST("/api/v1/webhooks/checks", handlers.Webhook.CheckResult)

	// Admin lifecycle routes
	r.POST("/api/v1/admin/applications/{session_id}/checks", authMiddleware(handlers.Admin.SubmitChecks))
	r.POST("/api/v1/admin/applications/{session_id}/approve", authMiddleware(handlers.Admin.Approve))
	r.POST("/api/v1/admin/applications/{session_id}/reject", authMiddleware(handlers.Admin.Reject))
	r.POST("/api/v1/admin/applications/{session_id}/open-account", authMiddleware(handlers.Admin.OpenAccount))
	r.POST("/api/v1/admin/applications/{session_id}/deposit", authMiddleware(handlers.Admin.ConfirmDeposit))
	r.POST("/api/v1/admin/applications/{session_id}/delivery", authMiddleware(handlers.Admin.ScheduleDelivery))
	r.POST("/api/v1/admin/applications/{session_id}/archive", authMiddleware(handlers.Admin.Archive))
	r.PUT("/api/v1/admin/deliveries/{id}", authMiddleware(handlers.Admin.UpdateDelivery))

	return r
}
