// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"doku-template-store/internal/client"
	"doku-template-store/internal/config"
	"doku-template-store/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])

	db, err := client.InitMigratedDB(config.Database{Driver: "sqlite", URL: dsn})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func Product(slug string) *model.Product {
	return &model.Product{
		Slug:        slug,
		Name:        "Template " + slug,
		Price:       299000,
		Currency:    "IDR",
		DownloadURL: "https://downloads.example.com/" + slug + ".zip",
		Active:      true,
	}
}

// PendingOrder builds an order the way checkout does before the vendor call.
func PendingOrder(invoice, email, slug string) *model.Order {
	return &model.Order{
		InvoiceNumber:      invoice,
		Provider:           model.ProviderDoku,
		BuyerID:            "buyer-1",
		BuyerEmail:         email,
		BuyerName:          "Buyer One",
		ProductSlug:        slug,
		ProductName:        "Template " + slug,
		ProductDownloadURL: "https://downloads.example.com/" + slug + ".zip",
		Amount:             299000,
		Currency:           "IDR",
	}
}
