package settings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/logger"
)

func newTestService(t *testing.T, kv kvStore) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Setting{}))

	svc, err := NewService(ServiceParams{
		Repository:   NewRepository(conn),
		Logger:       logger.Nop(),
		CacheTTL:     5 * time.Minute,
		ContactStore: kv,
		ContactKey:   "sf:settings:contact",
		ContactTTL:   24 * time.Hour,
		Now:          func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc, conn
}

func TestCreateRejectsInvalidTypedValueBeforePersisting(t *testing.T) {
	svc, conn := newTestService(t, nil)

	_, err := svc.Create(context.Background(), CreateSettingInput{Key: "free_shipping_threshold", Value: "abc", Type: "number"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 400, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)

	var count int64
	require.NoError(t, conn.Model(&models.Setting{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateUpdateDeleteSetting(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateSettingInput{Key: "show_banner", Value: "true", Type: "boolean", Group: group("home"), IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, enums.SettingTypeBoolean, created.Type)

	_, err = svc.Create(ctx, CreateSettingInput{Key: "show_banner", Value: "false", Type: "boolean"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Update(ctx, "show_banner", UpdateSettingInput{Value: strPtr("yes")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	updated, err := svc.Update(ctx, "show_banner", UpdateSettingInput{Value: strPtr("false")})
	require.NoError(t, err)
	assert.Equal(t, "false", updated.Value)
	require.NotNil(t, updated.Group)
	assert.Equal(t, "home", *updated.Group)

	_, err = svc.Update(ctx, "missing", UpdateSettingInput{Value: strPtr("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, "show_banner"))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, "show_banner"), pkgerrors.CodeNotFound))
}

func TestListPublicUsesCacheAndAdminWritesInvalidate(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateSettingInput{Key: "seo_title", Value: "Sona", Type: "string", Group: group("seo"), IsPublic: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateSettingInput{Key: "internal_note", Value: "x", Type: "string"})
	require.NoError(t, err)

	public, err := svc.ListPublic(ctx, "")
	require.NoError(t, err)
	require.Len(t, public, 1)

	// A write that bypasses the service is not visible until the TTL passes.
	require.NoError(t, conn.Model(&models.Setting{}).Where("key = ?", "seo_title").Update("value", "Changed").Error)
	public, err = svc.ListPublic(ctx, "seo")
	require.NoError(t, err)
	assert.Equal(t, "Sona", public[0].Value)

	_, err = svc.Update(ctx, "seo_title", UpdateSettingInput{Value: strPtr("Sona Skin")})
	require.NoError(t, err)
	public, err = svc.ListPublic(ctx, "seo")
	require.NoError(t, err)
	assert.Equal(t, "Sona Skin", public[0].Value)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestContactReadsThroughStore(t *testing.T) {
	kv := newMemoryKV()
	svc, _ := newTestService(t, kv)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateSettingInput{Key: "contact_phone", Value: "0901234567", Type: "string", Group: group(ContactGroup), IsPublic: true})
	require.NoError(t, err)

	info, err := svc.Contact(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0901234567", info.Phone)
	assert.Contains(t, kv.data["sf:settings:contact"], "0901234567")
}

func TestValidateValue(t *testing.T) {
	cases := []struct {
		typ   enums.SettingType
		value string
		ok    bool
	}{
		{enums.SettingTypeNumber, "150000", true},
		{enums.SettingTypeNumber, "1.5", true},
		{enums.SettingTypeNumber, "abc", false},
		{enums.SettingTypeNumber, "NaN", false},
		{enums.SettingTypeBoolean, "true", true},
		{enums.SettingTypeBoolean, "1", false},
		{enums.SettingTypeImage, "/uploads/logo.png", true},
		{enums.SettingTypeImage, "https://cdn.sona.vn/logo.png", true},
		{enums.SettingTypeImage, "javascript:alert(1)", false},
		{enums.SettingTypeImage, "", true},
		{enums.SettingTypeString, "anything", true},
	}
	for _, tc := range cases {
		err := ValidateValue(tc.typ, tc.value)
		if tc.ok {
			assert.NoError(t, err, "%s %q", tc.typ, tc.value)
		} else {
			assert.Error(t, err, "%s %q", tc.typ, tc.value)
		}
	}
}

func strPtr(v string) *string { return &v }
