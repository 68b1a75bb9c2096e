package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusShipped))
	assert.True(t, CanTransition(StatusPending, StatusDeleted))
	assert.True(t, CanTransition(StatusShipped, StatusPending))

	assert.False(t, CanTransition(StatusShipped, StatusDeleted))
	assert.False(t, CanTransition(StatusDeleted, StatusPending))
	assert.False(t, CanTransition(StatusPending, StatusPending))
	assert.False(t, CanTransition(OrderStatus("亂入"), StatusShipped))
}

func TestDetectDelivery(t *testing.T) {
	tests := []struct {
		input string
		want  DeliveryMethod
		ok    bool
	}{
		{"7-11 店到店", DeliverySeven, true},
		{"請用小七", DeliverySeven, true},
		{"全家便利商店", DeliveryFamily, true},
		{"黑貓宅急便", DeliveryTCat, true},
		{"郵局掛號", DeliveryPost, true},
		{"面交", DeliverySelf, true},
		{"沒有物流關鍵字", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectDelivery(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.input)
		}
	}
}
