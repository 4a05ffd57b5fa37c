package visitnote

import (
	"fmt"
	"net/http"

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

// RegisterRoutes mounts the note routes on the doctor group only. There is
// no admin surface for clinical notes.
func (h *Handler) RegisterRoutes(doctor *echo.Group) {
	doctor.POST("/visit-notes", h.Create)
	doctor.GET("/visit-notes", h.List)
	doctor.GET("/visit-notes/:id", h.Get)
	doctor.PATCH("/visit-notes/:id", h.Update)

	doctor.POST("/visit-notes/:id/attachments", h.Upload)
	doctor.GET("/visit-notes/:id/attachments", h.Attachments)
	doctor.GET("/visit-notes/:id/attachments/:att_id", h.Download)
	doctor.DELETE("/visit-notes/:id/attachments/:att_id", h.DeleteAttachment)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	n, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	actor := auth.ActorFromContext(c.Request().Context())

	var patientID *uuid.UUID
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = &id
	}

	items, total, err := h.svc.List(c.Request().Context(), actor, patientID, pg.Limit, pg.Offset)
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
	n, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
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
	n, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) Upload(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	actor := auth.ActorFromContext(c.Request().Context())
	a, err := h.svc.Upload(c.Request().Context(), actor, noteID, UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     src,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Attachments(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	items, err := h.svc.Attachments(c.Request().Context(), actor, noteID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Download(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	attID, err := uuid.Parse(c.Param("att_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid attachment id")
	}

	actor := auth.ActorFromContext(c.Request().Context())
	a, rc, err := h.svc.Download(c.Request().Context(), actor, noteID, attID)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, a.FileName))
	return c.Stream(http.StatusOK, a.ContentType, rc)
}

func (h *Handler) DeleteAttachment(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	attID, err := uuid.Parse(c.Param("att_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid attachment id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.DeleteAttachment(c.Request().Context(), actor, noteID, attID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
