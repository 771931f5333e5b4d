// Command seeder loads a demo store into Postgres: staff accounts, a
// small cafe catalog, pricing rules and shipping methods. It is meant for
// local development and demo terminals, not production.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/mossline/pos-engine/internal/auth"
	"github.com/mossline/pos-engine/internal/catalog"
)

const storeID = "default"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedStaff(ctx, pool)
	seedCatalog(ctx, pool)
	seedPricingRules(ctx, pool)
	seedShippingMethods(ctx, pool)

	log.Println("seeding completed")
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool) {
	staff := []struct {
		Name  string
		Email string
		Role  string
		PIN   string
	}{
		{"Morgan Reyes", "morgan@mossline.test", auth.RoleManager, "193750"},
		{"Dana Whitfield", "dana@mossline.test", auth.RoleCashier, "428194"},
		{"Sam Okafor", "sam@mossline.test", auth.RoleCashier, "775031"},
	}

	log.Println("seeding staff...")
	for _, s := range staff {
		hash, err := auth.HashPIN(s.PIN)
		if err != nil {
			log.Fatalf("hash pin for %s: %v", s.Email, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO staff (store_id, name, email, role, pin_hash, active)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (store_id, email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role`,
			storeID, s.Name, s.Email, s.Role, hash)
		if err != nil {
			log.Fatalf("seed staff %s: %v", s.Email, err)
		}
	}
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	items := []catalog.Item{
		{
			ID: "espresso", CategoryID: "drinks", Name: "Espresso", Price: 350, Active: true,
			Variations: []catalog.Variation{
				{ID: "single", Name: "Single", Price: 350},
				{ID: "double", Name: "Double", Price: 450},
			},
			Modifiers: []catalog.Modifier{
				{ID: "oat-milk", Name: "Oat milk", Price: 75},
				{ID: "extra-shot", Name: "Extra shot", Price: 100},
			},
		},
		{
			ID: "latte", CategoryID: "drinks", Name: "Latte", Price: 475, Active: true,
			Modifiers: []catalog.Modifier{
				{ID: "oat-milk", Name: "Oat milk", Price: 75},
				{ID: "vanilla", Name: "Vanilla syrup", Price: 50},
			},
		},
		{ID: "croissant", CategoryID: "bakery", Name: "Croissant", Price: 425, Active: true},
		{ID: "day-old-scone", CategoryID: "bakery", Name: "Day-old scone", Price: 300, Active: true},
		{ID: "house-blend-beans", CategoryID: "retail", Name: "House blend beans", Price: 1599, SoldByWeight: true, Active: true},
	}

	log.Println("seeding catalog...")
	for _, item := range items {
		variations, err := json.Marshal(item.Variations)
		if err != nil {
			log.Fatalf("encode variations for %s: %v", item.ID, err)
		}
		modifiers, err := json.Marshal(item.Modifiers)
		if err != nil {
			log.Fatalf("encode modifiers for %s: %v", item.ID, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO catalog_items (id, store_id, category_id, name, price, sold_by_weight, active, variations, modifiers)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (store_id, id) DO UPDATE SET
				name = EXCLUDED.name, price = EXCLUDED.price,
				variations = EXCLUDED.variations, modifiers = EXCLUDED.modifiers,
				active = EXCLUDED.active`,
			item.ID, storeID, item.CategoryID, item.Name, int64(item.Price), item.SoldByWeight, item.Active, variations, modifiers)
		if err != nil {
			log.Fatalf("seed catalog item %s: %v", item.ID, err)
		}
	}
}

func seedPricingRules(ctx context.Context, pool *pgxpool.Pool) {
	rules := []struct {
		ID            string
		Name          string
		Kind          string
		MultiplierBps int64
		StartTime     string
		EndTime       string
		Days          []string
		CategoryIDs   []string
		ItemIDs       []string
		Position      int
	}{
		{"happy-hour", "Happy hour drinks", "happy_hour", 8000, "15:00", "17:00", []string{"mon", "tue", "wed", "thu", "fri"}, []string{"drinks"}, nil, 0},
		{"day-old-bakery", "Day-old bakery markdown", "custom", 5000, "", "", nil, nil, []string{"day-old-scone"}, 1},
		{"weekend-surcharge", "Weekend service", "surge", 10500, "", "", []string{"sat", "sun"}, nil, nil, 2},
	}

	log.Println("seeding pricing rules...")
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO pricing_rules (id, store_id, name, kind, multiplier_bps, start_time, end_time, days, category_ids, item_ids, active, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true, $11)
			ON CONFLICT (store_id, id) DO UPDATE SET
				name = EXCLUDED.name, kind = EXCLUDED.kind,
				multiplier_bps = EXCLUDED.multiplier_bps, position = EXCLUDED.position`,
			r.ID, storeID, r.Name, r.Kind, r.MultiplierBps, r.StartTime, r.EndTime,
			orEmpty(r.Days), orEmpty(r.CategoryIDs), orEmpty(r.ItemIDs), r.Position)
		if err != nil {
			log.Fatalf("seed pricing rule %s: %v", r.ID, err)
		}
	}
}

func seedShippingMethods(ctx context.Context, pool *pgxpool.Pool) {
	methods := []struct {
		ID            string
		Name          string
		Rate          int64
		FreeAbove     *int64
		EstimatedDays string
		Position      int
	}{
		{"standard", "Standard", 599, ptr(5000), "3-5", 0},
		{"express", "Express", 1499, nil, "1-2", 1},
	}

	log.Println("seeding shipping methods...")
	for _, m := range methods {
		_, err := pool.Exec(ctx, `
			INSERT INTO shipping_methods (id, store_id, name, rate, free_above, estimated_days, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (store_id, id) DO UPDATE SET
				name = EXCLUDED.name, rate = EXCLUDED.rate,
				free_above = EXCLUDED.free_above, estimated_days = EXCLUDED.estimated_days`,
			m.ID, storeID, m.Name, m.Rate, m.FreeAbove, m.EstimatedDays, m.Position)
		if err != nil {
			log.Fatalf("seed shipping method %s: %v", m.ID, err)
		}
	}
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func ptr(v int64) *int64 { return &v }
