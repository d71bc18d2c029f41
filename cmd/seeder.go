package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	invoicemodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample invoices for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			log.Fatalf("failed to open gorm connection: %v", err)
		}

		samples := []invoicemodel.Invoice{
			{OrderID: "ORDER-DEV-001", Amount: 100000, Status: invoicemodel.StatusPending},
			{OrderID: "ORDER-DEV-002", Amount: 250000, Status: invoicemodel.StatusPending},
			{OrderID: "ORDER-DEV-003", Amount: 1500000, Status: invoicemodel.StatusPending},
		}

		for _, sample := range samples {
			var count int64
			if err := db.Model(&invoicemodel.Invoice{}).Where("order_id = ?", sample.OrderID).Count(&count).Error; err != nil {
				log.Fatalf("failed to check existing invoice: %v", err)
			}
			if count > 0 {
				fmt.Printf("invoice %s already exists, skipping\n", sample.OrderID)
				continue
			}

			inv := sample
			if err := db.Create(&inv).Error; err != nil {
				log.Fatalf("failed to seed invoice %s: %v", sample.OrderID, err)
			}
			fmt.Printf("seeded invoice %s (amount %d)\n", inv.OrderID, inv.Amount)
		}
	},
}
