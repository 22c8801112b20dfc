package service

import (
	"fmt"
	"io"

	"radpanel/internal/models"
	"radpanel/internal/report"
	"radpanel/internal/repository"
)

// ReportService serves the admin dashboard and exports.
type ReportService struct {
	repos *repository.Repos
}

// Stats returns the dashboard counters.
func (s *ReportService) Stats() (*models.Stats, error) {
	var (
		st  models.Stats
		err error
	)
	if st.TotalAgents, err = s.repos.Users.CountByRole(models.RoleAgent); err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}
	if st.ActiveOrders, err = s.repos.Orders.CountByStatus(models.OrderActive); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if st.PendingPayments, err = s.repos.Payments.CountByStatus(models.PaymentPending); err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}
	if st.TotalRevenue, err = s.repos.Payments.SumApproved(); err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	return &st, nil
}

// ExportTransactions writes the filtered audit trail as xlsx and returns
// the number of rows written.
func (s *ReportService) ExportTransactions(w io.Writer, f repository.ExportFilter) (int, error) {
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return 0, validation("date_to is before date_from")
	}
	rows, err := s.repos.Transactions.FindForExport(f)
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}
	if err := report.WriteTransactions(w, rows); err != nil {
		return 0, fmt.Errorf("render export: %w", err)
	}
	return len(rows), nil
}

// Transactions returns one owner's audit trail.
func (s *ReportService) Transactions(ownerID uint, limit, page int) ([]models.Transaction, int64, error) {
	return s.repos.Transactions.FindByOwner(ownerID, limit, page)
}
