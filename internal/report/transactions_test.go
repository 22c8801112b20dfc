package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"radpanel/internal/models"
)

func TestWriteTransactions(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	rows := []models.Transaction{
		{ID: 1, OwnerID: 7, Type: models.TxChargePending, Amount: 200000, BalanceBefore: 0, BalanceAfter: 200000, CreatedAt: at, Owner: &models.User{Username: "agent1"}},
		{ID: 2, OwnerID: 7, Type: models.TxOrderCreated, Amount: -100000, BalanceBefore: 200000, BalanceAfter: 100000, Notes: "order", CreatedAt: at, Owner: &models.User{Username: "agent1"}},
		{ID: 3, OwnerID: 7, Type: models.TxChargePending, Amount: 50000, BalanceBefore: 100000, BalanceAfter: 150000, CreatedAt: at},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(transactionsSheet)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"ID", "Date", "Time", "User", "Type", "Amount", "Before", "After", "Notes"}, got[0])
	assert.Equal(t, []string{"2", "2024-03-09", "14:05:06", "agent1", "ORDER_CREATED", "-100000", "200000", "100000", "order"}, got[2])
	assert.Equal(t, "", got[3][3])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"CHARGE_PENDING", "2", "250000"}, summary[1])
	assert.Equal(t, []string{"ORDER_CREATED", "1", "-100000"}, summary[2])
}

func TestWriteTransactions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(transactionsSheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
