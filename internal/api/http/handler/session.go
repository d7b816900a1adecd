package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/hairai_backend/internal/service/report"
	"github.com/Alijeyrad/hairai_backend/internal/service/session"
	"github.com/Alijeyrad/hairai_backend/internal/store"
)

type SessionHandler struct {
	sessions session.Service
	reports  report.Service
}

func NewSessionHandler(sessions session.Service, reports report.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions, reports: reports}
}

var sortFields = map[string]struct{}{
	store.SortSessionDate: {},
	store.SortCreatedAt:   {},
	store.SortPatientName: {},
	store.SortStatus:      {},
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

// GET /analysis/sessions
func (h *SessionHandler) List(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}

	var q struct {
		PatientID     string `query:"patientId"`
		ClinicID      string `query:"clinicId"`
		Status        string `query:"status"`
		FromDate      string `query:"fromDate"`
		ToDate        string `query:"toDate"`
		PageNumber    int    `query:"pageNumber"`
		PageSize      int    `query:"pageSize"`
		SortBy        string `query:"sortBy"`
		SortDirection string `query:"sortDirection"`
	}
	if err := c.Bind().Query(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	req := session.ListRequest{
		PageNumber:    q.PageNumber,
		PageSize:      q.PageSize,
		SortBy:        q.SortBy,
		SortDirection: q.SortDirection,
		CallerID:      caller,
	}
	if req.PageNumber == 0 {
		req.PageNumber = 1
	}
	if req.PageSize == 0 {
		req.PageSize = store.DefaultPageSize
	}

	if q.SortBy != "" {
		if _, known := sortFields[strings.ToLower(q.SortBy)]; !known {
			return badRequest(c, "sortBy must be one of sessionDate, createdAt, patientName, status")
		}
	}
	if d := strings.ToLower(q.SortDirection); d != "" && d != "asc" && d != "desc" {
		return badRequest(c, "sortDirection must be asc or desc")
	}

	if q.PatientID != "" {
		id, err := uuid.Parse(q.PatientID)
		if err != nil {
			return badRequest(c, "invalid patientId")
		}
		req.PatientID = &id
	}
	if q.ClinicID != "" {
		id, err := uuid.Parse(q.ClinicID)
		if err != nil {
			return badRequest(c, "invalid clinicId")
		}
		req.ClinicID = &id
	}
	if q.Status != "" {
		req.Status = &q.Status
	}
	if q.FromDate != "" {
		t, valid := parseDate(q.FromDate)
		if !valid {
			return badRequest(c, "invalid fromDate")
		}
		req.FromDate = &t
	}
	if q.ToDate != "" {
		t, valid := parseDate(q.ToDate)
		if !valid {
			return badRequest(c, "invalid toDate")
		}
		req.ToDate = &t
	}

	return respond(c, h.sessions.ListSessions(c.Context(), req))
}

// POST /analysis/sessions
func (h *SessionHandler) Create(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}

	var body struct {
		PatientID   string `json:"patientId"`
		SessionDate string `json:"sessionDate"`
	}
	if err := c.Bind().Body(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	patientID, err := uuid.Parse(body.PatientID)
	if err != nil {
		return badRequest(c, "invalid patientId")
	}
	date, valid := parseDate(body.SessionDate)
	if !valid {
		return badRequest(c, "invalid sessionDate")
	}

	return respond(c, h.sessions.CreateSession(c.Context(), session.CreateRequest{
		PatientID:   patientID,
		SessionDate: date,
		CallerID:    caller,
	}))
}

// GET /analysis/sessions/:id
func (h *SessionHandler) Get(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid session id")
	}

	return respond(c, h.sessions.GetSessionDetails(c.Context(), id, caller))
}

// POST /analysis/sessions/:id/report
func (h *SessionHandler) GenerateReport(c fiber.Ctx) error {
	caller, ok := callerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, valid := uuidParam(c, "id")
	if !valid {
		return badRequest(c, "invalid session id")
	}

	return respond(c, h.reports.GenerateFinalReport(c.Context(), id, caller))
}
