package search

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the search endpoint on the authenticated api group.
// Scoping happens per actor inside the service, not per route.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/search", h.Search)
}

func (h *Handler) Search(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	actor := auth.ActorFromContext(c.Request().Context())
	lang := requestLang(c.Request().Header.Get("Accept-Language"))

	res, err := h.svc.Search(c.Request().Context(), actor, c.QueryParam("q"), limit, lang)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// requestLang reduces an Accept-Language header to the supported set. Only
// the first language tag is considered; anything unknown means English.
func requestLang(header string) string {
	tag := strings.TrimSpace(strings.SplitN(header, ",", 2)[0])
	tag = strings.SplitN(tag, ";", 2)[0]
	tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
	switch tag {
	case "ru", "kk":
		return tag
	}
	return "en"
}
