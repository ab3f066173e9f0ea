package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvillareal/cobraruta/internal/models"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestReconcile_PlainCollection(t *testing.T) {
	// balance 500, collect 200, no moratory
	s, err := Reconcile(d(500), d(200), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, s.Principal.Equal(d(200)))
	assert.True(t, s.Moratory.IsZero())
	assert.True(t, s.NewBalance.Equal(d(300)))
	assert.True(t, s.PreviousBalance.Equal(d(500)))
	assert.False(t, s.Settled())
}

func TestReconcile_MoratorySplit(t *testing.T) {
	// balance 300, collect 250 of which 50 is late fee
	s, err := Reconcile(d(300), d(250), d(50))
	require.NoError(t, err)
	assert.True(t, s.Principal.Equal(d(200)))
	assert.True(t, s.Moratory.Equal(d(50)))
	assert.True(t, s.NewBalance.Equal(d(100)))
}

func TestReconcile_FloorsAtZero(t *testing.T) {
	// balance 100, collect 150: overpayment floors at zero
	s, err := Reconcile(d(100), d(150), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, s.NewBalance.IsZero())
	assert.True(t, s.Settled())
}

func TestReconcile_ClampsMoratoryToTotal(t *testing.T) {
	clamped, err := Reconcile(d(300), d(100), d(250))
	require.NoError(t, err)
	explicit, err := Reconcile(d(300), d(100), d(100))
	require.NoError(t, err)

	assert.True(t, clamped.Clamped)
	assert.False(t, explicit.Clamped)
	assert.True(t, clamped.Principal.Equal(explicit.Principal))
	assert.True(t, clamped.Moratory.Equal(explicit.Moratory))
	assert.True(t, clamped.NewBalance.Equal(explicit.NewBalance))
	assert.True(t, clamped.Principal.IsZero())
}

func TestReconcile_RejectsInvalidInput(t *testing.T) {
	_, err := Reconcile(d(100), decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Reconcile(d(100), d(-10), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Reconcile(d(100), d(10), d(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Reconcile(d(-1), d(10), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestReconcile_BalanceNeverNegative(t *testing.T) {
	for _, balance := range []int64{0, 1, 99, 100, 5000} {
		for _, total := range []int64{1, 50, 100, 101, 10000} {
			for _, mora := range []int64{0, 1, 50, 100, 20000} {
				s, err := Reconcile(d(balance), d(total), d(mora))
				require.NoError(t, err)
				assert.False(t, s.NewBalance.IsNegative(),
					"balance=%d total=%d mora=%d", balance, total, mora)

				expectedMora := mora
				if mora > total {
					expectedMora = total
				}
				principal := total - expectedMora
				expected := balance - principal
				if expected < 0 {
					expected = 0
				}
				assert.True(t, s.NewBalance.Equal(d(expected)),
					"balance=%d total=%d mora=%d got=%s", balance, total, mora, s.NewBalance)
			}
		}
	}
}

func TestBuildPayments_SingleRecord(t *testing.T) {
	s, err := Reconcile(d(500), d(200), decimal.Zero)
	require.NoError(t, err)

	recs := BuildPayments(PaymentRequest{
		ClientID:      "c1",
		CollectorID:   "a1",
		Kind:          models.PaymentRegular,
		Method:        models.MethodCash,
		ReceiptNumber: "R-0042",
	}, s)

	require.Len(t, recs, 1)
	assert.Equal(t, models.PaymentRegular, recs[0].Kind)
	assert.Equal(t, "R-0042", recs[0].ReceiptNumber)
	assert.Equal(t, models.SyncPending, recs[0].SyncStatus)
	assert.NotEmpty(t, recs[0].LocalID)
	require.NoError(t, recs[0].Validate())
}

func TestBuildPayments_MoratorySplitsInTwo(t *testing.T) {
	s, err := Reconcile(d(300), d(250), d(50))
	require.NoError(t, err)

	recs := BuildPayments(PaymentRequest{
		ClientID:      "c1",
		CollectorID:   "a1",
		Kind:          models.PaymentPartial,
		Method:        models.MethodCash,
		ReceiptNumber: "R-0042",
		Offline:       true,
	}, s)

	require.Len(t, recs, 2)

	principal, mora := recs[0], recs[1]
	assert.Equal(t, models.PaymentPartial, principal.Kind)
	assert.True(t, principal.Amount.Equal(d(200)))
	assert.Equal(t, models.PaymentMoratory, mora.Kind)
	assert.True(t, mora.Amount.Equal(d(50)))

	// correlated receipts, independent local ids
	assert.Equal(t, "R-0042", principal.ReceiptNumber)
	assert.Equal(t, "R-0042-M", mora.ReceiptNumber)
	assert.NotEqual(t, principal.LocalID, mora.LocalID)
	assert.True(t, principal.CreatedOffline)
	assert.True(t, mora.CreatedOffline)
}

func TestBuildPayments_AllMoratory(t *testing.T) {
	s, err := Reconcile(d(300), d(50), d(50))
	require.NoError(t, err)

	recs := BuildPayments(PaymentRequest{
		ClientID:    "c1",
		CollectorID: "a1",
		Kind:        models.PaymentRegular,
		Method:      models.MethodCash,
	}, s)

	require.Len(t, recs, 1)
	assert.Equal(t, models.PaymentMoratory, recs[0].Kind)
	assert.Empty(t, recs[0].ReceiptNumber)
}
