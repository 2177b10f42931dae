package domain

import "time"

// UserProfile represents a business owner going through onboarding.
// BusinessData is overwritten wholesale by the catalog sync; nothing else
// mutates it.
type UserProfile struct {
	ID           string        `json:"id" db:"id"`
	Email        string        `json:"email" db:"email"`
	BusinessData *BusinessData `json:"business_data" db:"business_data"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// BusinessData is the denormalized snapshot of the merchant's Square
// account, stored as a JSON blob on the profile row.
type BusinessData struct {
	PrimaryLocationID string         `json:"primary_location_id,omitempty"`
	Locations         []Location     `json:"locations"`
	Items             []CatalogItem  `json:"items"`
	Categories        []Category     `json:"categories"`
	LastSyncedAt      time.Time      `json:"last_synced_at"`
}

// Location is a flattened merchant location.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Status   string `json:"status,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CatalogItem is a flattened catalog item with its variations.
type CatalogItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Variations  []ItemVariation `json:"variations"`
}

// ItemVariation is one purchasable/bookable variant of an item. Prices are
// in the currency's smallest unit, mirroring Square.
type ItemVariation struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PriceAmount    int64  `json:"price_amount,omitempty"`
	PriceCurrency  string `json:"price_currency,omitempty"`
	DurationMillis int64  `json:"duration_ms,omitempty"`
	Version        int64  `json:"version,omitempty"`
}

// Category is a flattened catalog category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
