package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/models"
	"radpanel/internal/pkg/utils"
	"radpanel/internal/repository"
	"radpanel/internal/service"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves /api/admin/reports.
type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
	now     func() time.Time
}

func NewReportHandler(svc *service.Services, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: svc.Reports, logger: logger, now: time.Now}
}

// Stats GET /api/admin/reports/stats
func (h *ReportHandler) Stats(c echo.Context) error {
	st, err := h.reports.Stats()
	if err != nil {
		return failWith(c, h.logger, "load stats", err)
	}
	return successResponse(c, "Successful", st)
}

// exportFilter reads date_from, date_to (YYYY-MM-DD, inclusive), agent_ids
// and types from the query.
func exportFilter(c echo.Context) (repository.ExportFilter, error) {
	var f repository.ExportFilter
	if raw := c.QueryParam("date_from"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, fmt.Errorf("date_from must be YYYY-MM-DD")
		}
		f.DateFrom = &d
	}
	if raw := c.QueryParam("date_to"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, fmt.Errorf("date_to must be YYYY-MM-DD")
		}
		if f.DateFrom != nil && d.Before(*f.DateFrom) {
			return f, fmt.Errorf("date_to is before date_from")
		}
		end := d.AddDate(0, 0, 1)
		f.DateTo = &end
	}
	f.OwnerIDs = utils.ParseUintList(c.QueryParam("agent_ids"))
	for _, t := range strings.Split(c.QueryParam("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Types = append(f.Types, models.TransactionType(strings.ToUpper(t)))
		}
	}
	return f, nil
}

// Export GET /api/admin/reports/export
func (h *ReportHandler) Export(c echo.Context) error {
	f, err := exportFilter(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	var buf bytes.Buffer
	n, err := h.reports.ExportTransactions(&buf, f)
	if err != nil {
		return failWith(c, h.logger, "export transactions", err)
	}
	h.logger.Info("transactions exported", zap.Int("rows", n), zap.Uint("admin_id", session(c).UserID))

	name := fmt.Sprintf("transactions_%s.xlsx", h.now().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
