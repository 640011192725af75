package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/resume-billing/internal/middleware/auth"
	"go.uber.org/zap"
)

type AccessHandler struct {
	logger *zap.Logger
	access AccessChecker
}

func NewAccessHandler(logger *zap.Logger, access AccessChecker) *AccessHandler {
	return &AccessHandler{
		logger: logger,
		access: access,
	}
}

// GetAccess returns whether the caller may view full resumes.
func (h *AccessHandler) GetAccess(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	snapshot, err := h.access.Snapshot(c.Request().Context(), user.UserID)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to check access",
			zap.String("user_id", user.UserID))
	}

	return c.JSON(http.StatusOK, snapshot)
}
