// Command seed creates the reporting schema and loads a deterministic demo
// consignment store into it.
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/app"
	"github.com/consigna/backoffice/internal/platform/db"
	"github.com/consigna/backoffice/jobs"
)

//go:embed schema.sql
var schema string

var (
	vendorNames   = []string{"Atelier Nord", "Maison Claire", "Second Closet", "Vintage Row"}
	brandNames    = []string{"Chanel", "Hermes", "Prada", "Gucci", "Celine"}
	categoryNames = []string{"Bags", "Shoes", "Jewelry", "Outerwear"}
	clientNames   = []string{"Ada", "Bea", "Cato", "Dara", "Emil", "Fen", "Gia", "Hal", "Ines", "Joss", "Kai", "Lou"}
	methods       = []string{"card", "cash", "transfer", "Card", ""}
	expenseTypes  = []string{"cleaning", "repair", "photography", "shipping"}
)

func main() {
	reset := flag.Bool("reset", false, "truncate reporting tables before seeding")
	items := flag.Int("items", 120, "number of items to generate")
	flag.Parse()

	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	if *reset {
		if _, err := pool.Exec(ctx, `TRUNCATE installment_plans, item_expenses, vendor_payouts, client_payments, items, clients, categories, brands, vendors RESTART IDENTITY`); err != nil {
			logger.Error("reset tables", slog.Any("error", err))
			os.Exit(1)
		}
	}

	started := time.Now()
	store := generate(time.Now().UTC(), *items, rand.New(rand.NewPCG(2024, 3)))
	if err := load(ctx, pool, store); err != nil {
		logger.Error("seed store", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete",
		slog.Int("items", len(store.items)),
		slog.Int("payments", len(store.payments)),
		slog.Duration("duration", time.Since(started)),
	)

	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() { _ = client.Close() }()
	if _, err := client.EnqueueCacheBump(ctx, "seed"); err != nil {
		logger.Warn("enqueue cache bump", slog.Any("error", err))
	}
}

type seedItem struct {
	vendor, brand, category int
	status                  string
	costMin, costMax        decimal.Decimal
	priceMin, priceMax      decimal.Decimal
	acquiredAt              time.Time
}

type seedPayment struct {
	item, client int
	amount       decimal.Decimal
	method       string
	paidAt       time.Time
}

type seedPayout struct {
	item   int
	amount decimal.Decimal
	paidAt time.Time
}

type seedExpense struct {
	item       int
	kind       string
	amount     decimal.Decimal
	incurredAt time.Time
}

type seedPlan struct {
	item        int
	total, paid decimal.Decimal
	status      string
	due         time.Time
}

type demoStore struct {
	items    []seedItem
	payments []seedPayment
	payouts  []seedPayout
	expenses []seedExpense
	plans    []seedPlan
}

func money(r *rand.Rand, lo, hi int) decimal.Decimal {
	return decimal.NewFromInt(int64(lo + r.IntN(hi-lo+1))).Mul(decimal.NewFromInt(5))
}

// generate builds a year of trading ending at now. Item and client
// references are 1-based positions in the name tables and item slice.
func generate(now time.Time, count int, r *rand.Rand) demoStore {
	var store demoStore
	day := 24 * time.Hour
	for i := 0; i < count; i++ {
		acquired := now.Add(-time.Duration(30+r.IntN(365)) * day).Truncate(day)
		costMin := money(r, 10, 120)
		priceMin := costMin.Mul(decimal.NewFromFloat(2.5)).Round(0)
		item := seedItem{
			vendor:     1 + r.IntN(len(vendorNames)),
			brand:      1 + r.IntN(len(brandNames)),
			category:   1 + r.IntN(len(categoryNames)),
			status:     "in-store",
			costMin:    costMin,
			costMax:    costMin.Add(money(r, 0, 10)),
			priceMin:   priceMin,
			priceMax:   priceMin.Add(money(r, 0, 20)),
			acquiredAt: acquired,
		}
		id := i + 1
		switch roll := r.IntN(10); {
		case roll < 6:
			item.status = "sold"
			soldAt := acquired.Add(time.Duration(1+r.IntN(int(now.Sub(acquired)/day))) * day).Add(time.Duration(9+r.IntN(9)) * time.Hour)
			if soldAt.After(now) {
				soldAt = now.Add(-time.Hour)
			}
			client := 1 + r.IntN(len(clientNames))
			if r.IntN(4) == 0 {
				deposit := item.priceMin.Div(decimal.NewFromInt(2)).Round(2)
				store.payments = append(store.payments, seedPayment{id, client, deposit, methods[r.IntN(len(methods))], soldAt})
				store.plans = append(store.plans, seedPlan{id, item.priceMin, deposit, "pending", soldAt.Add(30 * day).Truncate(day)})
			} else {
				store.payments = append(store.payments, seedPayment{id, client, item.priceMin, methods[r.IntN(len(methods))], soldAt})
			}
			if r.IntN(2) == 0 {
				store.payouts = append(store.payouts, seedPayout{id, item.costMin, soldAt.Add(time.Duration(3+r.IntN(10)) * day)})
			}
		case roll < 7:
			item.status = "reserved"
		case roll < 8:
			item.status = "returned"
		}
		if r.IntN(3) == 0 {
			store.expenses = append(store.expenses, seedExpense{id, expenseTypes[r.IntN(len(expenseTypes))], money(r, 1, 8), acquired.Add(2 * day)})
		}
		store.items = append(store.items, item)
	}
	return store
}

func load(ctx context.Context, pool *pgxpool.Pool, store demoStore) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		ids := make(map[string][]int64)
		for table, names := range map[string][]string{
			"vendors":    vendorNames,
			"brands":     brandNames,
			"categories": categoryNames,
			"clients":    clientNames,
		} {
			for _, name := range names {
				var id int64
				if err := tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, table), name).Scan(&id); err != nil {
					return fmt.Errorf("%s: %w", table, err)
				}
				ids[table] = append(ids[table], id)
			}
		}

		itemIDs := make([]int64, len(store.items))
		for i, it := range store.items {
			err := tx.QueryRow(ctx, `
INSERT INTO items (vendor_id, brand_id, category_id, status, cost_min, cost_max, sales_price_min, sales_price_max, acquired_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING id`,
				ids["vendors"][it.vendor-1], ids["brands"][it.brand-1], ids["categories"][it.category-1],
				it.status, it.costMin, it.costMax, it.priceMin, it.priceMax, it.acquiredAt,
			).Scan(&itemIDs[i])
			if err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}
		}

		batch := &pgx.Batch{}
		for _, p := range store.payments {
			batch.Queue(`INSERT INTO client_payments (item_id, client_id, amount, payment_method, paid_at) VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
				itemIDs[p.item-1], ids["clients"][p.client-1], p.amount, p.method, p.paidAt)
		}
		for _, p := range store.payouts {
			batch.Queue(`INSERT INTO vendor_payouts (item_id, amount, paid_at) VALUES ($1, $2, $3)`, itemIDs[p.item-1], p.amount, p.paidAt)
		}
		for _, e := range store.expenses {
			batch.Queue(`INSERT INTO item_expenses (item_id, expense_type, amount, incurred_at) VALUES ($1, $2, $3, $4)`, itemIDs[e.item-1], e.kind, e.amount, e.incurredAt)
		}
		for _, p := range store.plans {
			batch.Queue(`INSERT INTO installment_plans (item_id, total_amount, paid_amount, status, due_date) VALUES ($1, $2, $3, $4, $5)`,
				itemIDs[p.item-1], p.total, p.paid, p.status, p.due)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
