package reporting

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/consigna/backoffice/internal/money"
)

var testNow = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rng(min, max string) money.Range {
	return money.NewRange(dec(min), dec(max))
}

func at(date string, hour int) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func requireRange(t *testing.T, min, max string, got money.Range, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, rng(min, max).Equal(got), "want (%s, %s), got %s %v", min, max, got, msgAndArgs)
}

// storeDataset is a small consignment store: two vendors, two brands, two
// categories and two clients, trading in March 2024 with one sale in the
// second half of February.
func storeDataset() Dataset {
	item := func(id, vendor, brand, category int64, status ItemStatus, cost, price money.Range, acquired string) Item {
		names := map[int64]string{1: "Atelier", 2: "Boutique", 10: "Chanel", 11: "Hermes", 100: "Bags", 101: "Shoes"}
		return Item{
			ID: id, VendorID: vendor, VendorName: names[vendor],
			BrandID: brand, BrandName: names[brand],
			CategoryID: category, CategoryName: names[category],
			Status: status, Cost: cost, SalesPrice: price,
			AcquiredAt: at(acquired, 0), CreatedAt: at(acquired, 0),
		}
	}
	return Dataset{
		Items: []Item{
			item(1, 1, 10, 100, StatusSold, rng("100", "150"), rng("600", "700"), "2024-01-01"),
			item(2, 2, 11, 101, StatusSold, rng("200", "200"), rng("400", "500"), "2024-02-01"),
			item(3, 1, 11, 100, StatusInStore, rng("50", "80"), rng("200", "250"), "2024-03-10"),
			item(4, 2, 10, 101, StatusReserved, rng("30", "30"), rng("100", "120"), "2023-11-01"),
			item(5, 1, 10, 100, StatusSold, rng("40", "60"), rng("150", "180"), "2023-12-01"),
		},
		Payments: []ClientPayment{
			{ID: 1, ItemID: 1, ClientID: 7, ClientName: "Ada", Amount: dec("500"), Method: "card", PaidAt: at("2024-03-05", 10)},
			{ID: 2, ItemID: 2, ClientID: 8, ClientName: "Bea", Amount: dec("300"), Method: "cash", PaidAt: at("2024-03-10", 9)},
			{ID: 3, ItemID: 2, ClientID: 7, ClientName: "Ada", Amount: dec("100"), Method: "Card", PaidAt: at("2024-03-12", 15)},
			{ID: 4, ItemID: 5, ClientID: 8, ClientName: "Bea", Amount: dec("150"), Method: "cash", PaidAt: at("2024-02-20", 11)},
		},
		Payouts: []VendorPayout{
			{ID: 1, ItemID: 1, Amount: dec("60"), PaidAt: at("2024-03-14", 8)},
		},
		Expenses: []ItemExpense{
			{ID: 1, ItemID: 1, Type: "cleaning", Amount: dec("20"), IncurredAt: at("2024-03-06", 12)},
			{ID: 2, ItemID: 2, Type: "repair", Amount: dec("10"), IncurredAt: at("2024-03-11", 16)},
		},
		Installments: []InstallmentPlan{
			{ID: 1, ItemID: 2, TotalAmount: dec("400"), PaidAmount: dec("300"), Status: InstallmentPending, DueDate: at("2024-03-12", 0)},
			{ID: 2, ItemID: 1, TotalAmount: dec("500"), PaidAmount: dec("500"), Status: InstallmentPaid, DueDate: at("2024-03-05", 0)},
			{ID: 3, ItemID: 2, TotalAmount: dec("100"), PaidAmount: dec("0"), Status: InstallmentPending, DueDate: at("2024-03-15", 0)},
		},
	}
}

func marchRequest() Request {
	return Request{StartDate: "2024-03-01", EndDate: "2024-03-15"}
}

// countingReader counts the reads reaching the wrapped reader.
type countingReader struct {
	Reader
	reads atomic.Int64
}

func (c *countingReader) ReadItems(ctx context.Context, f Filters) ([]Item, error) {
	c.reads.Add(1)
	return c.Reader.ReadItems(ctx, f)
}

func (c *countingReader) ReadPayments(ctx context.Context, w Window, f Filters) ([]ClientPayment, error) {
	c.reads.Add(1)
	return c.Reader.ReadPayments(ctx, w, f)
}

// blockingReader holds ReadItems until release is closed or the read's
// context ends.
type blockingReader struct {
	Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
	reads   atomic.Int64
}

func newBlockingReader(r Reader) *blockingReader {
	return &blockingReader{Reader: r, started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingReader) ReadItems(ctx context.Context, f Filters) ([]Item, error) {
	b.reads.Add(1)
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.Reader.ReadItems(ctx, f)
}

// failingReader fails every read with err.
type failingReader struct {
	err error
}

func (f failingReader) ReadItems(context.Context, Filters) ([]Item, error) { return nil, f.err }
func (f failingReader) ReadPayments(context.Context, Window, Filters) ([]ClientPayment, error) {
	return nil, f.err
}
func (f failingReader) ReadPayouts(context.Context, Window, Filters) ([]VendorPayout, error) {
	return nil, f.err
}
func (f failingReader) ReadExpenses(context.Context, Window, Filters) ([]ItemExpense, error) {
	return nil, f.err
}
func (f failingReader) ReadInstallments(context.Context, Window, Filters) ([]InstallmentPlan, error) {
	return nil, f.err
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func newTestService(t *testing.T, reader Reader, opts ...Option) *Service {
	t.Helper()
	cache, _ := newTestCache(t)
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(reader, cache, opts...)
}
