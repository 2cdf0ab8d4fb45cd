package slugs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeFoldsVietnamese(t *testing.T) {
	assert.Equal(t, "kem-duong-am-ban-dem", Make("Kem Dưỡng Ẩm Ban Đêm"))
	assert.Equal(t, "sua-rua-mat-diu-nhe", Make("  Sữa rửa mặt dịu nhẹ "))
	assert.Equal(t, "serum-vitamin-c-15", Make("Serum Vitamin C 15%"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("kem-duong-am"))
	assert.False(t, Valid("Kem Dưỡng"))
	assert.False(t, Valid(""))
}

func TestUniqueAppendsSuffix(t *testing.T) {
	taken := map[string]bool{"toner-hoa-hong": true, "toner-hoa-hong-2": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	got, err := Unique(context.Background(), "Toner hoa hồng", exists)
	require.NoError(t, err)
	assert.Equal(t, "toner-hoa-hong-3", got)

	got, err = Unique(context.Background(), "Mặt nạ", exists)
	require.NoError(t, err)
	assert.Equal(t, "mat-na", got)
}

func TestUniqueErrors(t *testing.T) {
	_, err := Unique(context.Background(), "   ", func(context.Context, string) (bool, error) { return false, nil })
	assert.Error(t, err)

	boom := errors.New("db down")
	_, err = Unique(context.Background(), "abc", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	_, err = Unique(context.Background(), "abc", func(context.Context, string) (bool, error) { return true, nil })
	assert.Error(t, err)
}
