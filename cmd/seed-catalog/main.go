// seed-catalog upserts the LPG product catalog and, optionally, prints a signed
// development token for a role.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-catalog -token-role ADMIN
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	code        string
	displaySize string
	sizeKg      string
	price       string
	subsidized  bool
	isDefault   bool
}

var catalog = []seedProduct{
	{"LPG_3KG", "3kg", "3", "20000", true, true},
	{"LPG_5_5KG", "5.5kg", "5.5", "90000", false, false},
	{"LPG_12KG", "12kg", "12", "190000", false, false},
	{"LPG_50KG", "50kg", "50", "750000", false, false},
}

func main() {
	tokenRole := flag.String("token-role", "", "Optional: print a dev token for ADMIN, AGENT or PANGKALAN")
	tokenTenant := flag.Int("token-tenant-id", 0, "Tenant id embedded in the dev token (required for PANGKALAN)")
	skipMigrate := flag.Bool("skip-migrate", false, "Do not run AutoMigrate before seeding")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if !*skipMigrate {
		models.MigrateTable()
	}

	ctx := utils.WithSkipTenantScope(context.Background())
	for _, s := range catalog {
		p := &models.Product{
			Code:         s.code,
			DisplaySize:  s.displaySize,
			SizeKg:       decimal.RequireFromString(s.sizeKg),
			UnitPrice:    decimal.RequireFromString(s.price),
			IsSubsidized: &s.subsidized,
			IsDefault:    &s.isDefault,
		}
		if err := models.UpsertProduct(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "upsert %s: %v\n", s.code, err)
			os.Exit(1)
		}
		fmt.Printf("product %s id=%d\n", p.Code, p.ID)
	}

	role := models.Role(strings.ToUpper(strings.TrimSpace(*tokenRole)))
	if role == "" {
		return
	}
	if role == models.RolePangkalan && *tokenTenant <= 0 {
		fmt.Fprintln(os.Stderr, "--token-tenant-id is required for PANGKALAN")
		os.Exit(1)
	}
	token, err := utils.JwtGenerate(utils.JwtCustomClaim{
		UserName: "seed-" + strings.ToLower(string(role)),
		TenantId: *tokenTenant,
		Role:     string(role),
	}, 24*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
