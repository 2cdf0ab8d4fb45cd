package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsersRejectUnknownValues(t *testing.T) {
	_, err := ParsePaymentMethod("card")
	assert.Error(t, err)
	_, err = ParseSettingType("json")
	assert.Error(t, err)
	_, err = ParseUserRole("owner")
	assert.Error(t, err)
	_, err = ParseOutboxEventType("order_paid")
	assert.Error(t, err)
	_, err = ParseOutboxAggregateType("store")
	assert.Error(t, err)
}

func TestParsersAcceptKnownValues(t *testing.T) {
	pm, err := ParsePaymentMethod("bank")
	assert.NoError(t, err)
	assert.Equal(t, PaymentMethodBank, pm)

	st, err := ParseSettingType("image")
	assert.NoError(t, err)
	assert.True(t, st.IsValid())

	role, err := ParseUserRole("editor")
	assert.NoError(t, err)
	assert.Equal(t, "editor", role.String())

	assert.True(t, EventOrderStatusChanged.IsValid())
	assert.True(t, AggregateOrder.IsValid())
	assert.Equal(t, AggregateOrder, EventOrderDeleted.Aggregate())
	assert.Empty(t, OutboxEventType("order_paid").Aggregate())
}
