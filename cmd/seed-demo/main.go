// seed-demo creates a demo business with income sources, suppliers, a month of
// daily entries and a few invoices, plus a fixed session token ("Token:demo")
// so the API is usable immediately after startup.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... REDIS_ADDRESS=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	demoBusinessName = "Demo Bakery"
	demoToken        = "demo"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "SeedDemo")

	var existing models.Business
	err := db.WithContext(ctx).Model(&models.Business{}).Where("name = ?", demoBusinessName).First(&existing).Error
	if err == nil {
		fmt.Printf("Demo business already exists: id=%s\n", existing.ID)
		storeToken(existing.ID.String())
		return
	}
	if err != gorm.ErrRecordNotFound {
		fmt.Fprintf(os.Stderr, "failed to lookup business: %v\n", err)
		os.Exit(1)
	}

	business, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:               demoBusinessName,
		ContactName:        "Dana",
		Email:              "demo@example.com",
		OpeningBalance:     decimal.NewFromInt(5000),
		OpeningBalanceDate: time.Now().UTC().AddDate(0, -1, 0),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create demo business: %v\n", err)
		os.Exit(1)
	}
	businessId := business.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessId)
	fmt.Printf("Created demo business: id=%s\n", businessId)

	// CreateBusiness seeds default income sources; fetch them for entries.
	sources, err := models.GetIncomeSources(ctx)
	if err != nil || len(sources) == 0 {
		fmt.Fprintf(os.Stderr, "failed to fetch seeded income sources: %v\n", err)
		os.Exit(1)
	}

	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{
		Name:        "Flour & Co",
		ContactName: "Avi",
		Phone:       "03-1234567",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create supplier: %v\n", err)
		os.Exit(1)
	}

	// A month of entries, rotating through the seeded sources.
	start := time.Now().UTC().AddDate(0, -1, 0)
	for i := 0; i < 30; i++ {
		entryDate := start.AddDate(0, 0, i)
		source := sources[i%len(sources)]
		amount := decimal.NewFromInt(int64(300 + 40*(i%7)))
		if _, err := models.CreateDailyEntry(ctx, &models.NewDailyEntry{
			EntryDate:      entryDate,
			IncomeSourceId: source.ID,
			Amount:         amount,
			Description:    "daily takings",
		}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create entry %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	for i := 0; i < 3; i++ {
		if _, err := models.CreateInvoice(ctx, &models.NewInvoice{
			SupplierId:    supplier.ID,
			InvoiceDate:   start.AddDate(0, 0, 7*i),
			PaymentTerms:  models.PaymentTermsNet15,
			PaymentMethod: models.PaymentMethodBankTransfer,
			Notes:         "weekly flour delivery",
			TotalAmount:   decimal.NewFromInt(int64(800 + 100*i)),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create invoice %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	if _, err := models.RebuildDailySummary(ctx, businessId, start, time.Now().UTC()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to rebuild daily summaries: %v\n", err)
		os.Exit(1)
	}

	storeToken(businessId)
	fmt.Println("Demo data seeded")
}

func storeToken(businessId string) {
	if err := config.SetRedisValue("Token:"+demoToken, businessId, 0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store demo session token: %v\n", err)
		return
	}
	fmt.Printf("Session token ready: send header token=%s\n", demoToken)
}
