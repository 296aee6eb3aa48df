package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_TransitionTable(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusPreparing}: true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusPreparing, StatusDelivered}: true,
		{StatusPreparing, StatusCancelled}: true,
	}

	for _, from := range Statuses {
		for _, to := range Statuses {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				assert.Equal(t, legal[[2]Status{from, to}], from.CanTransitionTo(to))
			})
		}
	}
}

func TestOrder_TransitionAllPairs(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	for _, from := range Statuses {
		for _, to := range Statuses {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				o := &Order{Status: from, UpdatedAt: created}
				err := o.Transition(to, now)

				if from.CanTransitionTo(to) {
					require.NoError(t, err)
					assert.Equal(t, to, o.Status)
					assert.Equal(t, now, o.UpdatedAt)
					return
				}

				var ite *InvalidTransitionError
				require.ErrorAs(t, err, &ite)
				assert.Equal(t, from, ite.From)
				assert.Equal(t, to, ite.To)
				assert.Equal(t, from, o.Status)
				assert.Equal(t, created, o.UpdatedAt)
			})
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range Statuses {
		assert.Equal(t, len(s.Next()) == 0, s.Terminal(), s.String())
	}
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestStatus_PendingCannotSkipToPreparing(t *testing.T) {
	o := &Order{Status: StatusPending}

	err := o.Transition(StatusPreparing, time.Now())

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusPending, o.Status)
}

func TestStatus_CancelThenTerminal(t *testing.T) {
	o := &Order{Status: StatusConfirmed}

	require.NoError(t, o.Transition(StatusCancelled, time.Now()))
	for _, to := range Statuses {
		require.Error(t, o.Transition(to, time.Now()))
	}
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestStatus_InvalidValue(t *testing.T) {
	var zero Status
	assert.False(t, zero.Valid())
	assert.Empty(t, zero.Next())
	assert.False(t, zero.CanTransitionTo(StatusConfirmed))
	assert.Equal(t, "Status(0)", zero.String())

	_, err := zero.MarshalText()
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("pending")
	assert.Error(t, err)
	_, err = ParseStatus("SHIPPED")
	assert.Error(t, err)

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("DELIVERED")))
	assert.Equal(t, StatusDelivered, s)
}

func TestParsePaymentMethod(t *testing.T) {
	for _, v := range []string{"CREDIT_CARD", "CASH", "PAYPAL"} {
		pm, err := ParsePaymentMethod(v)
		require.NoError(t, err)
		assert.Equal(t, v, string(pm))
	}
	_, err := ParsePaymentMethod("BITCOIN")
	assert.Error(t, err)
}
