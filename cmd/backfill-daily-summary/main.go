package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
)

func main() {
	businessID := flag.String("business-id", "", "Optional: backfill only one business (uuid string). If empty, backfills all businesses.")
	from := flag.String("from", "", "Optional: start date (YYYY-MM-DD). Defaults to the business opening balance date.")
	to := flag.String("to", "", "Optional: end date (YYYY-MM-DD). Defaults to today in business timezone.")
	flag.Parse()

	ctx := context.Background()
	// Explicit DB connect (config no longer connects DB in init()).
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Ensure schema is up-to-date (creates daily_summaries if missing).
	models.MigrateTable()

	ctx = context.WithValue(ctx, utils.ContextKeyUserId, 0)
	ctx = context.WithValue(ctx, utils.ContextKeyUserName, "BackfillDailySummary")

	var businesses []models.Business
	bizQuery := db.WithContext(ctx).Model(&models.Business{})
	if strings.TrimSpace(*businessID) != "" {
		bizQuery = bizQuery.Where("id = ?", strings.TrimSpace(*businessID))
	}
	if err := bizQuery.Find(&businesses).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list businesses: %v\n", err)
		os.Exit(1)
	}
	if len(businesses) == 0 {
		fmt.Fprintln(os.Stderr, "no businesses found to backfill")
		return
	}

	for _, b := range businesses {
		bid := b.ID.String()
		tz := strings.TrimSpace(b.Timezone)

		start := strings.TrimSpace(*from)
		if start == "" {
			d, err := utils.ConvertToDate(b.OpeningBalanceDate, tz)
			if err != nil {
				fmt.Fprintf(os.Stderr, "business %s: failed to convert opening balance date: %v\n", bid, err)
				continue
			}
			start = d.Format("2006-01-02")
		}

		end := strings.TrimSpace(*to)
		if end == "" {
			d, err := utils.ConvertToDate(time.Now().UTC(), tz)
			if err != nil {
				fmt.Fprintf(os.Stderr, "business %s: failed to convert now(): %v\n", bid, err)
				continue
			}
			end = d.Format("2006-01-02")
		}

		// Interpret the flag dates in the business timezone, like the API does.
		startDate, err := models.ParseDateString(start, tz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "business %s: bad start date %q\n", bid, start)
			continue
		}
		endDate, err := models.ParseDateString(end, tz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "business %s: bad end date %q\n", bid, end)
			continue
		}
		// inclusive end of day
		endDate = endDate.AddDate(0, 0, 1).Add(-time.Second)

		fmt.Printf("Backfilling daily_summaries business=%s from=%s to=%s\n", bid, start, end)

		rows, err := models.RebuildDailySummary(ctx, bid, startDate, endDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "business %s backfill failed: %v\n", bid, err)
			continue
		}
		fmt.Printf("business=%s rebuilt %d summary rows\n", bid, rows)
	}

	fmt.Println("Backfill complete")
}
