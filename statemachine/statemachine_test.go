package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
)

func TestCanTransition(t *testing.T) {
	allowed := map[models.OrderStatus][]models.OrderStatus{
		models.StatusReceived:  {models.StatusPreparing, models.StatusCancelled},
		models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
		models.StatusReady:     {models.StatusDelivered},
	}
	all := []models.OrderStatus{
		models.StatusReceived, models.StatusPreparing, models.StatusReady,
		models.StatusDelivered, models.StatusCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			err := CanTransition(from, to)
			if contains(allowed[from], to) {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, apperrors.Is(err, apperrors.KindInvalidTransition))
		}
	}
}

func TestCanTransition_DescribesValidTargets(t *testing.T) {
	err := CanTransition(models.StatusReceived, models.StatusDelivered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preparing, cancelled")

	err = CanTransition(models.StatusDelivered, models.StatusReady)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none")
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusDelivered))
	assert.True(t, IsTerminal(models.StatusCancelled))
	assert.False(t, IsTerminal(models.StatusReceived))
	assert.False(t, IsTerminal(models.StatusReady))
	assert.Empty(t, ValidTransitionsFrom(models.StatusCancelled))
}

func TestRequiredCapability(t *testing.T) {
	assert.Equal(t, access.OwnerOrAdmin, RequiredCapability(models.StatusCancelled))
	for _, to := range []models.OrderStatus{models.StatusPreparing, models.StatusReady, models.StatusDelivered} {
		assert.Equal(t, access.AdminOnly, RequiredCapability(to))
	}
}

func TestRequiredCapability_FollowsTransitionTable(t *testing.T) {
	ownerTargets := map[models.OrderStatus]bool{}
	for _, tr := range GetAllTransitions() {
		if tr.Actor == ActorOwner {
			ownerTargets[tr.To] = true
		}
	}
	require.NotEmpty(t, ownerTargets)

	for _, tr := range GetAllTransitions() {
		want := access.AdminOnly
		if ownerTargets[tr.To] {
			want = access.OwnerOrAdmin
		}
		assert.Equal(t, want, RequiredCapability(tr.To), tr.To)
	}
	assert.Equal(t, access.AdminOnly, RequiredCapability(models.StatusReceived))
}

func TestGetAllTransitions_ReturnsCopy(t *testing.T) {
	first := GetAllTransitions()
	require.NotEmpty(t, first)
	first[0].To = models.StatusDelivered
	assert.NotEqual(t, first[0], GetAllTransitions()[0])
}

func TestCanTransitionPayment(t *testing.T) {
	tests := []struct {
		from models.PaymentStatus
		to   models.PaymentStatus
		kind apperrors.Kind
	}{
		{models.PaymentPending, models.PaymentCompleted, ""},
		{models.PaymentPending, models.PaymentFailed, ""},
		{models.PaymentCompleted, models.PaymentRefunded, ""},
		{models.PaymentPending, models.PaymentRefunded, apperrors.KindInvalidTransition},
		{models.PaymentFailed, models.PaymentCompleted, apperrors.KindInvalidTransition},
		{models.PaymentRefunded, models.PaymentPending, apperrors.KindInvalidTransition},
		{models.PaymentPending, "bogus", apperrors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CanTransitionPayment(tt.from, tt.to)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestPaymentTransitionsFrom(t *testing.T) {
	assert.Equal(t, []models.PaymentStatus{models.PaymentCompleted, models.PaymentFailed}, PaymentTransitionsFrom(models.PaymentPending))
	assert.Empty(t, PaymentTransitionsFrom(models.PaymentRefunded))
}

func contains(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
