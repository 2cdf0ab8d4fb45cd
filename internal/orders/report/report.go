// Package report turns a set of orders into tabular exports: one row per order or
// aggregates by product, status, customer and day.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sonaskin/storefront-backend/pkg/db/models"
	"github.com/sonaskin/storefront-backend/pkg/enums"
	"github.com/sonaskin/storefront-backend/pkg/epoch"
	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
	"github.com/sonaskin/storefront-backend/pkg/types"
)

// Kind selects the aggregation.
type Kind string

const (
	KindAll      Kind = "all"
	KindSales    Kind = "sales"
	KindStatus   Kind = "status"
	KindCustomer Kind = "customer"
	KindRevenue  Kind = "revenue"
)

var validKinds = []Kind{KindAll, KindSales, KindStatus, KindCustomer, KindRevenue}

// ParseKind reads a report type; empty input means KindAll.
func ParseKind(raw string) (Kind, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return KindAll, nil
	}
	for _, k := range validKinds {
		if string(k) == value {
			return k, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid report type").
		WithDetails(map[string]string{"type": fmt.Sprintf("must be one of all, sales, status, customer, revenue; got %q", raw)})
}

// Filters restricts which orders feed a report. Bounds are inclusive unix seconds.
type Filters struct {
	From     int64
	To       int64
	Status   enums.OrderStatus
	Location *time.Location
}

func (f Filters) match(o models.Order) bool {
	created := epoch.Seconds(o.CreatedAt)
	if f.From > 0 && created < f.From {
		return false
	}
	if f.To > 0 && created > f.To {
		return false
	}
	return f.Status == "" || o.Status == f.Status
}

func (f Filters) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Column names one output field: Key is used by JSON, Title by xlsx and csv headers.
type Column struct {
	Key   string
	Title string
}

// Table is a rendered-agnostic report.
type Table struct {
	Kind    Kind
	Sheet   string
	Columns []Column
	Rows    [][]any
}

// Build aggregates orders into the table for kind. No matching orders yields a
// header-only table.
func Build(kind Kind, orders []models.Order, filters Filters) (*Table, error) {
	matched := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if filters.match(o) {
			matched = append(matched, o)
		}
	}
	loc := filters.location()

	switch kind {
	case KindAll, "":
		return buildAll(matched, loc), nil
	case KindSales:
		return buildSales(matched), nil
	case KindStatus:
		return buildStatus(matched), nil
	case KindCustomer:
		return buildCustomer(matched), nil
	case KindRevenue:
		return buildRevenue(matched, loc), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported report type %q", kind))
	}
}

func buildAll(orders []models.Order, loc *time.Location) *Table {
	t := &Table{
		Kind:  KindAll,
		Sheet: "Orders",
		Columns: []Column{
			{"orderNumber", "Mã đơn"},
			{"createdAt", "Ngày đặt"},
			{"customerName", "Khách hàng"},
			{"customerPhone", "Điện thoại"},
			{"customerEmail", "Email"},
			{"address", "Địa chỉ"},
			{"items", "Sản phẩm"},
			{"total", "Tổng tiền"},
			{"paymentMethod", "Thanh toán"},
			{"status", "Trạng thái"},
			{"notes", "Ghi chú"},
		},
	}
	for _, o := range orders {
		t.Rows = append(t.Rows, []any{
			o.OrderNumber,
			epoch.Time(o.CreatedAt, loc).Format("2006-01-02 15:04"),
			o.CustomerName,
			o.CustomerPhone,
			types.StringValue(o.CustomerEmail),
			o.FullAddress(),
			itemsSummary(o.Items),
			o.Total,
			string(o.PaymentMethod),
			string(o.Status),
			types.StringValue(o.Notes),
		})
	}
	return t
}

type salesRow struct {
	id       string
	name     string
	quantity int64
	revenue  int64
}

// buildSales sums quantity and revenue per product id, skipping cancelled orders.
func buildSales(orders []models.Order) *Table {
	byID := map[string]*salesRow{}
	for _, o := range orders {
		if o.Status == enums.OrderStatusCancelled {
			continue
		}
		for _, item := range o.Items {
			row, ok := byID[item.ID]
			if !ok {
				row = &salesRow{id: item.ID, name: item.Name}
				byID[item.ID] = row
			}
			row.quantity += int64(item.Quantity)
			row.revenue += item.Price * int64(item.Quantity)
		}
	}
	rows := make([]*salesRow, 0, len(byID))
	for _, r := range byID {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].revenue != rows[j].revenue {
			return rows[i].revenue > rows[j].revenue
		}
		return rows[i].id < rows[j].id
	})

	t := &Table{
		Kind:  KindSales,
		Sheet: "Sales",
		Columns: []Column{
			{"productId", "Mã sản phẩm"},
			{"name", "Tên sản phẩm"},
			{"quantity", "Số lượng"},
			{"revenue", "Doanh thu"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.id, r.name, r.quantity, r.revenue})
	}
	return t
}

// buildStatus counts orders per status in lifecycle order.
func buildStatus(orders []models.Order) *Table {
	counts := map[enums.OrderStatus]int64{}
	revenue := map[enums.OrderStatus]int64{}
	for _, o := range orders {
		counts[o.Status]++
		revenue[o.Status] += o.Total
	}
	t := &Table{
		Kind:  KindStatus,
		Sheet: "Status",
		Columns: []Column{
			{"status", "Trạng thái"},
			{"orders", "Số đơn"},
			{"revenue", "Tổng tiền"},
		},
	}
	for _, status := range enums.OrderStatuses() {
		if counts[status] == 0 {
			continue
		}
		t.Rows = append(t.Rows, []any{string(status), counts[status], revenue[status]})
	}
	return t
}

type customerRow struct {
	name   string
	phone  string
	email  string
	orders int64
	total  int64
}

// buildCustomer groups by phone, falling back to the name when no phone was captured.
func buildCustomer(orders []models.Order) *Table {
	byKey := map[string]*customerRow{}
	for _, o := range orders {
		if o.Status == enums.OrderStatusCancelled {
			continue
		}
		key := strings.TrimSpace(o.CustomerPhone)
		if key == "" {
			key = "name:" + strings.ToLower(strings.TrimSpace(o.CustomerName))
		}
		row, ok := byKey[key]
		if !ok {
			row = &customerRow{name: o.CustomerName, phone: o.CustomerPhone}
			byKey[key] = row
		}
		if row.email == "" {
			row.email = types.StringValue(o.CustomerEmail)
		}
		row.orders++
		row.total += o.Total
	}
	rows := make([]*customerRow, 0, len(byKey))
	for _, r := range byKey {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].total != rows[j].total {
			return rows[i].total > rows[j].total
		}
		return rows[i].phone+rows[i].name < rows[j].phone+rows[j].name
	})

	t := &Table{
		Kind:  KindCustomer,
		Sheet: "Customers",
		Columns: []Column{
			{"customerName", "Khách hàng"},
			{"customerPhone", "Điện thoại"},
			{"customerEmail", "Email"},
			{"orders", "Số đơn"},
			{"total", "Tổng chi tiêu"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.name, r.phone, r.email, r.orders, r.total})
	}
	return t
}

// buildRevenue buckets non-cancelled orders per local calendar day.
func buildRevenue(orders []models.Order, loc *time.Location) *Table {
	type bucket struct {
		orders  int64
		revenue int64
	}
	byDay := map[string]*bucket{}
	for _, o := range orders {
		if o.Status == enums.OrderStatusCancelled {
			continue
		}
		day := epoch.Time(o.CreatedAt, loc).Format(time.DateOnly)
		b, ok := byDay[day]
		if !ok {
			b = &bucket{}
			byDay[day] = b
		}
		b.orders++
		b.revenue += o.Total
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	t := &Table{
		Kind:  KindRevenue,
		Sheet: "Revenue",
		Columns: []Column{
			{"date", "Ngày"},
			{"orders", "Số đơn"},
			{"revenue", "Doanh thu"},
			{"averageOrderValue", "Giá trị TB/đơn"},
		},
	}
	for _, day := range days {
		b := byDay[day]
		avg := decimal.NewFromInt(b.revenue).Div(decimal.NewFromInt(b.orders)).Round(2)
		t.Rows = append(t.Rows, []any{day, b.orders, b.revenue, avg})
	}
	return t
}

func itemsSummary(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, "; ")
}
