package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

var ict = time.FixedZone("ICT", 7*60*60)

func order(status enums.OrderStatus, createdAt time.Time, phone string, items ...models.OrderItem) models.Order {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return models.Order{
		ID:            uuid.New(),
		OrderNumber:   "DH" + uuid.NewString()[:6],
		CustomerName:  "Khách " + phone,
		CustomerPhone: phone,
		StreetAddress: "1 Lê Lợi",
		PaymentMethod: enums.PaymentMethodCOD,
		Status:        status,
		Items:         types.JSONList[models.OrderItem](items),
		Total:         total,
		CreatedAt:     createdAt.Unix(),
		UpdatedAt:     createdAt.Unix(),
	}
}

func serum(qty int) models.OrderItem {
	return models.OrderItem{ID: "serum", Name: "Serum", Price: 219000, Quantity: qty}
}

func toner(qty int) models.OrderItem {
	return models.OrderItem{ID: "toner", Name: "Toner", Price: 150000, Quantity: qty}
}

func TestBuildStatusCounts(t *testing.T) {
	day := time.Date(2025, 4, 1, 10, 0, 0, 0, ict)
	orders := []models.Order{
		order(enums.OrderStatusPending, day, "0901", serum(1)),
		order(enums.OrderStatusPending, day, "0902", serum(1)),
		order(enums.OrderStatusDelivered, day, "0903", toner(1)),
	}

	table, err := Build(KindStatus, orders, Filters{})
	require.NoError(t, err)

	counts := map[string]int64{}
	for _, row := range table.Rows {
		counts[row[0].(string)] = row[1].(int64)
	}
	assert.Equal(t, map[string]int64{"pending": 2, "delivered": 1}, counts)
}

func TestBuildSalesSortsByRevenueAndSkipsCancelled(t *testing.T) {
	day := time.Date(2025, 4, 1, 10, 0, 0, 0, ict)
	orders := []models.Order{
		order(enums.OrderStatusPending, day, "0901", serum(2), toner(1)),
		order(enums.OrderStatusDelivered, day, "0902", toner(1)),
		order(enums.OrderStatusCancelled, day, "0903", toner(10)),
	}

	table, err := Build(KindSales, orders, Filters{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []any{"serum", "Serum", int64(2), int64(438000)}, table.Rows[0])
	assert.Equal(t, []any{"toner", "Toner", int64(2), int64(300000)}, table.Rows[1])
}

func TestBuildCustomerGroupsByPhone(t *testing.T) {
	day := time.Date(2025, 4, 1, 10, 0, 0, 0, ict)
	orders := []models.Order{
		order(enums.OrderStatusPending, day, "0901", serum(1)),
		order(enums.OrderStatusDelivered, day, "0901", toner(1)),
		order(enums.OrderStatusPending, day, "0902", toner(1)),
	}

	table, err := Build(KindCustomer, orders, Filters{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "0901", table.Rows[0][1])
	assert.Equal(t, int64(2), table.Rows[0][3])
	assert.Equal(t, int64(369000), table.Rows[0][4])
}

func TestBuildRevenueBucketsByLocalDay(t *testing.T) {
	// 23:30 UTC on Mar 31 is Apr 1 in Vietnam.
	lateUTC := time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC)
	orders := []models.Order{
		order(enums.OrderStatusPending, lateUTC, "0901", serum(1)),
		order(enums.OrderStatusPending, lateUTC.Add(time.Hour), "0902", toner(1)),
		order(enums.OrderStatusPending, lateUTC.Add(48*time.Hour), "0903", toner(1)),
	}

	table, err := Build(KindRevenue, orders, Filters{Location: ict})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2025-04-01", table.Rows[0][0])
	assert.Equal(t, int64(2), table.Rows[0][1])
	assert.Equal(t, int64(369000), table.Rows[0][2])
	assert.True(t, decimal.RequireFromString("184500").Equal(table.Rows[0][3].(decimal.Decimal)))
	assert.Equal(t, "2025-04-03", table.Rows[1][0])
}

func TestBuildAppliesInclusiveFilters(t *testing.T) {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, ict)
	end := start.Add(24*time.Hour - time.Second)
	orders := []models.Order{
		order(enums.OrderStatusPending, start, "0901", serum(1)),
		order(enums.OrderStatusPending, end, "0902", serum(1)),
		order(enums.OrderStatusPending, end.Add(time.Second), "0903", serum(1)),
		order(enums.OrderStatusDelivered, start, "0904", serum(1)),
	}

	table, err := Build(KindAll, orders, Filters{From: start.Unix(), To: end.Unix(), Status: enums.OrderStatusPending, Location: ict})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, "2025-04-01 00:00", table.Rows[0][1])
}

func TestParseKindAndFormat(t *testing.T) {
	kind, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAll, kind)
	kind, err = ParseKind("Revenue")
	require.NoError(t, err)
	assert.Equal(t, KindRevenue, kind)
	_, err = ParseKind("weekly")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	format, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)
	_, err = ParseFormat("pdf")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	at := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "orders-sales-20250410.csv", FileName(KindSales, FormatCSV, at))
}

func TestRenderEmptyTableIsHeaderOnly(t *testing.T) {
	table, err := Build(KindSales, nil, Filters{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatCSV, table))
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mã sản phẩm", records[0][0])

	buf.Reset()
	require.NoError(t, Render(&buf, FormatJSON, table))
	var decoded struct {
		Type string           `json:"type"`
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "sales", decoded.Type)
	assert.NotNil(t, decoded.Rows)
	assert.Empty(t, decoded.Rows)
}

func TestRenderXLSX(t *testing.T) {
	day := time.Date(2025, 4, 1, 10, 0, 0, 0, ict)
	table, err := Build(KindRevenue, []models.Order{order(enums.OrderStatusPending, day, "0901", serum(2))}, Filters{Location: ict})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatXLSX, table))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Revenue")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ngày", rows[0][0])
	assert.Equal(t, "2025-04-01", rows[1][0])
	assert.Equal(t, "438000", rows[1][2])
}

func TestRenderJSONUsesColumnKeys(t *testing.T) {
	day := time.Date(2025, 4, 1, 10, 0, 0, 0, ict)
	table, err := Build(KindRevenue, []models.Order{order(enums.OrderStatusPending, day, "0901", serum(1))}, Filters{Location: ict})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, table))
	assert.Contains(t, buf.String(), `"averageOrderValue": 219000.00`)
	assert.Contains(t, buf.String(), `"date": "2025-04-01"`)
}
