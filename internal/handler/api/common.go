package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/auth"
	"radpanel/internal/middleware"
	"radpanel/internal/models"
	"radpanel/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func createdResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusCreated, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrUserDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrPaymentNotPending),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPlanReferenced):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientCredit),
		errors.Is(err, service.ErrNegativeBalance),
		errors.Is(err, service.ErrPlanInactive),
		errors.Is(err, service.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrProvisioning):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// failWith answers with the status for err. Server errors are logged and
// their detail is kept out of the response.
func failWith(c echo.Context, logger *zap.Logger, msg string, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err), zap.String("path", c.Path()))
		if code == http.StatusBadGateway {
			return errorResponse(c, code, "provisioning gateway is unavailable")
		}
		return errorResponse(c, code, "internal error")
	}
	return errorResponse(c, code, err.Error())
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		limit = defaultPageSize
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}

// pagination reads page and page_size (or limit) from the query.
func pagination(c echo.Context) (limit, page int) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = queryInt(c, "page_size", 0)
	if limit == 0 {
		limit = queryInt(c, "limit", defaultPageSize)
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, page
}

func queryInt(c echo.Context, key string, fallback int) int {
	raw := c.QueryParam(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// paramID parses the :id path parameter.
func paramID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func session(c echo.Context) *auth.Session {
	return middleware.SessionFrom(c)
}
