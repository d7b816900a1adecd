package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/hairai_backend/internal/api/http/handler"
	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
)

// RegisterAnalysisRoutes mounts the session, report and job endpoints under
// /analysis. guards run before every route; uploadLimit, when set, only
// guards the image upload.
func RegisterAnalysisRoutes(
	api fiber.Router,
	sh *handler.SessionHandler,
	jh *handler.JobHandler,
	guards []fiber.Handler,
	requirePerm func(authorize.Resource, authorize.Action) fiber.Handler,
	uploadLimit fiber.Handler,
) {
	analysis := api.Group("/analysis")
	for _, g := range guards {
		analysis.Use(g)
	}

	sessions := analysis.Group("/sessions")
	sessions.Get("/", requirePerm(authorize.ResourceAnalysisSession, authorize.ActionList), sh.List)
	sessions.Post("/", requirePerm(authorize.ResourceAnalysisSession, authorize.ActionCreate), sh.Create)
	sessions.Get("/:id", requirePerm(authorize.ResourceAnalysisSession, authorize.ActionRead), sh.Get)
	sessions.Post("/:id/report", requirePerm(authorize.ResourceAnalysisReport, authorize.ActionExecute), sh.GenerateReport)

	jobs := analysis.Group("/jobs")
	createJob := requirePerm(authorize.ResourceAnalysisJob, authorize.ActionCreate)
	if uploadLimit != nil {
		jobs.Post("/", uploadLimit, createJob, jh.Upload)
	} else {
		jobs.Post("/", createJob, jh.Upload)
	}
	jobs.Get("/:id/status", requirePerm(authorize.ResourceAnalysisJob, authorize.ActionRead), jh.Status)
	jobs.Get("/:id/result", requirePerm(authorize.ResourceAnalysisJob, authorize.ActionRead), jh.Result)
	jobs.Post("/:id/notes", requirePerm(authorize.ResourceDoctorNotes, authorize.ActionUpdate), jh.AddNotes)
}
