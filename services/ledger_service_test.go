package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concert-ticketing/models"
)

func TestLedgerService_AppendRejectsDuplicateID(t *testing.T) {
	ledger := NewLedgerService()
	amount := models.NewMoney(100, "USD")

	txn := models.NewPaymentTransaction("t1", "o1", "MP-1", models.PaymentCharge, amount, models.PaymentSuccess)
	require.NoError(t, ledger.Append(txn))

	dup := models.NewPaymentTransaction("t1", "o2", "MP-2", models.PaymentCharge, amount, models.PaymentSuccess)
	assert.Error(t, ledger.Append(dup))
	assert.Len(t, ledger.All(), 1)
}

func TestLedgerService_ChargeAndRefundLookup(t *testing.T) {
	ledger := NewLedgerService()
	amount := models.NewMoney(100, "USD")

	failed := models.NewPaymentTransaction("t1", "o1", "MP-1", models.PaymentCharge, amount, models.PaymentFailed)
	charge := models.NewPaymentTransaction("t2", "o1", "MP-2", models.PaymentCharge, amount, models.PaymentSuccess)
	refund := models.NewPaymentTransaction("t3", "o1", "MP-3", models.PaymentRefund, amount, models.PaymentSuccess)
	require.NoError(t, ledger.Append(failed))
	require.NoError(t, ledger.Append(charge))
	require.NoError(t, ledger.Append(refund))

	assert.Equal(t, "t2", ledger.ChargeFor("o1").ID)
	assert.Equal(t, "t3", ledger.RefundFor("o1").ID)
	assert.Nil(t, ledger.ChargeFor("o2"))

	entries := ledger.EntriesFor("o1")
	require.Len(t, entries, 3)
	assert.Equal(t, "t1", entries[0].ID)
}
