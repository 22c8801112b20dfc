package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/service"
)

// PaymentHandler serves receipt uploads and the admin review queue.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(svc *service.Services, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: svc.Payments, logger: logger}
}

// receiptFile opens the multipart "receipt" (or "file") part.
func receiptFile(c echo.Context) (io.ReadCloser, error) {
	fh, err := c.FormFile("receipt")
	if err != nil {
		fh, err = c.FormFile("file")
	}
	if err != nil {
		return nil, errors.New("receipt file is required")
	}
	return fh.Open()
}

func formUint(c echo.Context, key string) (uint, error) {
	n, err := strconv.ParseUint(c.FormValue(key), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New(key + " is required")
	}
	return uint(n), nil
}

// formBool reads an optional checkbox-style form field.
func formBool(c echo.Context, key string) bool {
	v, _ := strconv.ParseBool(c.FormValue(key))
	return v
}

// Upload POST /api/payments/upload (multipart: amount, payment_method_id, receipt)
func (h *PaymentHandler) Upload(c echo.Context) error {
	amount, err := strconv.ParseInt(c.FormValue("amount"), 10, 64)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "amount is required")
	}
	methodID, err := formUint(c, "payment_method_id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	file, err := receiptFile(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	defer file.Close()

	payment, err := h.payments.Upload(c.Request().Context(), service.UploadInput{
		OwnerID:  session(c).UserID,
		Amount:   amount,
		MethodID: methodID,
		Receipt:  file,
	})
	if err != nil {
		return failWith(c, h.logger, "upload payment", err)
	}
	return createdResponse(c, "Receipt uploaded, awaiting review", payment)
}

// Mine GET /api/payments/my
func (h *PaymentHandler) Mine(c echo.Context) error {
	limit, page := pagination(c)
	payments, total, err := h.payments.ListMine(session(c).UserID, limit, page)
	if err != nil {
		return failWith(c, h.logger, "list my payments", err)
	}
	return successResponse(c, "Successful", paginatedResponse(payments, total, page, limit))
}

// List GET /api/admin/payments?status=
func (h *PaymentHandler) List(c echo.Context) error {
	return h.list(c, models.PaymentStatus(c.QueryParam("status")))
}

// Pending GET /api/admin/payments/pending
func (h *PaymentHandler) Pending(c echo.Context) error {
	return h.list(c, models.PaymentPending)
}

func (h *PaymentHandler) list(c echo.Context, status models.PaymentStatus) error {
	limit, page := pagination(c)
	payments, total, err := h.payments.List(status, limit, page)
	if err != nil {
		return failWith(c, h.logger, "list payments", err)
	}
	return successResponse(c, "Successful", paginatedResponse(payments, total, page, limit))
}

// Get GET /api/admin/payments/:id
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	p, err := h.payments.Get(id)
	if err != nil {
		return failWith(c, h.logger, "get payment", err)
	}
	return successResponse(c, "Successful", p)
}

// Approve POST /api/admin/payments/:id/approve
func (h *PaymentHandler) Approve(c echo.Context) error {
	return h.review(c, h.payments.Approve, "Payment approved")
}

// Reject POST /api/admin/payments/:id/reject
func (h *PaymentHandler) Reject(c echo.Context) error {
	return h.review(c, h.payments.Reject, "Payment rejected")
}

type reviewFunc func(ctx context.Context, paymentID, reviewerID uint, notes string) (*models.Payment, error)

func (h *PaymentHandler) review(c echo.Context, fn reviewFunc, msg string) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	var req models.PaymentReviewRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return errorResponse(c, http.StatusBadRequest, "Invalid request body")
		}
	}
	p, err := fn(c.Request().Context(), id, session(c).UserID, req.Notes)
	if err != nil {
		return failWith(c, h.logger, "review payment", err)
	}
	return successResponse(c, msg, p)
}
