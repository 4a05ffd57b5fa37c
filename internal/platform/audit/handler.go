package audit

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinicops/pkg/pagination"
)

// Lister is the read side of the ledger, satisfied by PGRecorder.
type Lister interface {
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
}

type Handler struct {
	ledger Lister
}

func NewHandler(ledger Lister) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes hangs the ledger query off the admin group. The ledger is
// read-only over HTTP; there is no update or delete route to register.
func (h *Handler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/audit-logs", h.ListEntries)
}

func (h *Handler) ListEntries(c echo.Context) error {
	pg := pagination.FromContext(c)

	var f Filter
	if v := c.QueryParam("action"); v != "" {
		switch Action(v) {
		case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
			a := Action(v)
			f.Action = &a
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid action filter")
		}
	}
	if v := c.QueryParam("object_type"); v != "" {
		f.ObjectType = &v
	}

	items, total, err := h.ledger.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
