package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the appointment book. The doctor create route only
// exists when self-booking is switched on; the validation core is shared
// either way.
func (h *Handler) RegisterRoutes(admin, doctor *echo.Group) {
	admin.POST("/appointments", h.Create)
	admin.GET("/appointments", h.List)
	admin.GET("/appointments/:id", h.Get)
	admin.PATCH("/appointments/:id", h.Update)
	admin.POST("/appointments/:id/status", h.SetStatus)
	admin.GET("/reports/appointments", h.Report)
	admin.POST("/schedule", h.CreateWorkWindow)
	admin.GET("/schedule", h.ListWorkWindows)
	admin.DELETE("/schedule/:id", h.DeleteWorkWindow)
	admin.POST("/time-off", h.CreateTimeOff)
	admin.GET("/time-off", h.ListTimeOff)
	admin.DELETE("/time-off/:id", h.DeleteTimeOff)

	doctor.GET("/appointments", h.List)
	doctor.GET("/appointments/:id", h.Get)
	doctor.PATCH("/appointments/:id", h.Update)
	doctor.POST("/appointments/:id/status", h.SetStatus)
	if h.svc.opts.DoctorSelfBooking {
		doctor.POST("/appointments", h.Create)
	}
	doctor.GET("/availability", h.Availability)
	doctor.POST("/schedule", h.CreateWorkWindow)
	doctor.GET("/schedule", h.ListWorkWindows)
	doctor.DELETE("/schedule/:id", h.DeleteWorkWindow)
	doctor.POST("/time-off", h.CreateTimeOff)
	doctor.GET("/time-off", h.ListTimeOff)
	doctor.DELETE("/time-off/:id", h.DeleteTimeOff)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	appt, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, appt)
}

func parseFilter(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		f.DoctorID = &id
	}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		if !IsValidStatus(v) {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = &v
	}
	if v := c.QueryParam("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid date_from")
		}
		f.DateFrom = &t
	}
	if v := c.QueryParam("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid date_to")
		}
		f.DateTo = &t
	}
	return f, nil
}

func (h *Handler) List(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	actor := auth.ActorFromContext(c.Request().Context())
	items, total, err := h.svc.List(c.Request().Context(), actor, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	appt, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	appt, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	appt, err := h.svc.SetStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Report(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	report, err := h.svc.Report(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Availability answers whether the actor is bookable in a window, for
// schedule UIs. It never gates anything by itself.
func (h *Handler) Availability(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start_at"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_at")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end_at"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end_at")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	ok, err := h.svc.IsAvailable(c.Request().Context(), actor.ID, Window{StartAt: start, EndAt: end})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": ok})
}

func (h *Handler) CreateWorkWindow(c echo.Context) error {
	var w WorkWindow
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	out, err := h.svc.CreateWorkWindow(c.Request().Context(), actor, &w)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListWorkWindows(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())
	doctorID := uuid.Nil
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = id
	}
	items, err := h.svc.ListWorkWindows(c.Request().Context(), actor, doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteWorkWindow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.DeleteWorkWindow(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateTimeOff(c echo.Context) error {
	var t TimeOff
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	out, err := h.svc.CreateTimeOff(c.Request().Context(), actor, &t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) ListTimeOff(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())
	doctorID := uuid.Nil
	if v := c.QueryParam("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = id
	}
	items, err := h.svc.ListTimeOff(c.Request().Context(), actor, doctorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteTimeOff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.DeleteTimeOff(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
