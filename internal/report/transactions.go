// Package report renders wallet audit rows as spreadsheets.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"radpanel/internal/models"
)

const (
	transactionsSheet = "Transactions"
	summarySheet      = "Summary"
)

// TransactionHeaders is the header row of the transactions sheet.
var TransactionHeaders = []interface{}{"ID", "Date", "Time", "User", "Type", "Amount", "Before", "After", "Notes"}

// WriteTransactions writes rows as an xlsx workbook to w: one row per audit
// entry plus a per-type summary sheet.
func WriteTransactions(w io.Writer, rows []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(transactionsSheet, "A1", &TransactionHeaders); err != nil {
		return err
	}
	if err := f.SetRowStyle(transactionsSheet, 1, 1, bold); err != nil {
		return err
	}

	type total struct {
		count int
		sum   int64
	}
	totals := map[models.TransactionType]*total{}

	for i, t := range rows {
		user := ""
		if t.Owner != nil {
			user = t.Owner.Username
		}
		row := []interface{}{
			t.ID,
			t.CreatedAt.Format("2006-01-02"),
			t.CreatedAt.Format("15:04:05"),
			user,
			string(t.Type),
			t.Amount,
			t.BalanceBefore,
			t.BalanceAfter,
			t.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}

		tt := totals[t.Type]
		if tt == nil {
			tt = &total{}
			totals[t.Type] = tt
		}
		tt.count++
		tt.sum += t.Amount
	}
	_ = f.SetColWidth(transactionsSheet, "B", "E", 14)
	_ = f.SetColWidth(transactionsSheet, "I", "I", 40)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Type", "Count", "Amount"}); err != nil {
		return err
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, bold); err != nil {
		return err
	}
	types := make([]string, 0, len(totals))
	for t := range totals {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for i, t := range types {
		tt := totals[models.TransactionType(t)]
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &[]interface{}{t, tt.count, tt.sum}); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}
