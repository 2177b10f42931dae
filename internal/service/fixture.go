package service

import (
	"time"

	"github.com/ovela/onboard-service/internal/domain"
)

// TestData returns a fixture snapshot shaped like a real sync result. Used
// by the test_data action to smoke-test the pipeline without a linked
// account.
func (s *catalogService) TestData() *domain.BusinessData {
	return &domain.BusinessData{
		PrimaryLocationID: "LTEST0001",
		Locations: []domain.Location{
			{
				ID:       "LTEST0001",
				Name:     "Main Street Salon",
				Address:  "123 Main St, Springfield, IL, 62701",
				Timezone: "America/Chicago",
				Status:   "ACTIVE",
				Phone:    "+1 217 555 0134",
			},
			{
				ID:       "LTEST0002",
				Name:     "Downtown Studio",
				Address:  "48 Oak Ave, Springfield, IL, 62704",
				Timezone: "America/Chicago",
				Status:   "ACTIVE",
			},
		},
		Items: []domain.CatalogItem{
			{
				ID:         "ITEST0001",
				Name:       "Haircut",
				CategoryID: "CTEST0001",
				Variations: []domain.ItemVariation{
					{ID: "VTEST0001", Name: "Standard", PriceAmount: 4500, PriceCurrency: "USD", DurationMillis: 1_800_000, Version: 1},
					{ID: "VTEST0002", Name: "Deluxe", PriceAmount: 7500, PriceCurrency: "USD", DurationMillis: 3_600_000, Version: 1},
				},
			},
			{
				ID:         "ITEST0002",
				Name:       "Color Treatment",
				CategoryID: "CTEST0001",
				Variations: []domain.ItemVariation{
					{ID: "VTEST0003", Name: "Full", PriceAmount: 12000, PriceCurrency: "USD", DurationMillis: 5_400_000, Version: 1},
				},
			},
			{
				ID:         "ITEST0003",
				Name:       "Beard Trim",
				CategoryID: "CTEST0002",
				Variations: []domain.ItemVariation{
					{ID: "VTEST0004", Name: "Standard", PriceAmount: 2000, PriceCurrency: "USD", DurationMillis: 900_000, Version: 1},
				},
			},
		},
		Categories: []domain.Category{
			{ID: "CTEST0001", Name: "Hair"},
			{ID: "CTEST0002", Name: "Grooming"},
		},
		LastSyncedAt: time.Now(),
	}
}
