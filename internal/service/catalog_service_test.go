package service

import (
	"context"
	"testing"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/square"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture(t *testing.T, sq *fakeSquare) (CatalogService, *fakeUserRepo, *fakeConnectionRepo, *fakeNango) {
	t.Helper()

	users := newFakeUserRepo()
	connections := newFakeConnectionRepo()
	integrations := &fakeIntegrationRepo{integrations: []*domain.Integration{
		{ID: "int-1", ProviderKey: "square-sandbox", Enabled: true},
	}}
	broker := &fakeNango{connection: &nango.Connection{
		Credentials: nango.Credentials{Type: "OAUTH2", AccessToken: "sq-token"},
	}}

	factory := func(accessToken string) SquareAPI {
		assert.Equal(t, "sq-token", accessToken)
		return sq
	}

	svc := NewCatalogService(
		users, connections, integrations, broker, factory,
		"square-sandbox", nopLogger(), testMetrics(t),
	)

	return svc, users, connections, broker
}

func activeConnection(connections *fakeConnectionRepo, userID string) *domain.Connection {
	conn := &domain.Connection{
		UserID:               userID,
		IntegrationID:        "int-1",
		ExternalConnectionID: "nango-conn-1",
		Status:               domain.ConnectionStatusActive,
	}
	_ = connections.Upsert(context.Background(), conn)
	return conn
}

func TestFetchAndStoreBusinessData(t *testing.T) {
	sq := &fakeSquare{
		locations: []square.Location{
			{ID: "L1", Name: "Closed Branch", Status: "INACTIVE"},
			{ID: "L2", Name: "Main Branch", Status: "ACTIVE", Address: &square.Address{
				AddressLine1: "123 Main St",
				Locality:     "Springfield",
				PostalCode:   "62701",
			}},
		},
		catalog: []square.CatalogObject{
			{
				Type: square.CatalogTypeItem,
				ID:   "I1",
				ItemData: &square.ItemData{
					Name:       "Haircut",
					CategoryID: "C1",
					Variations: []square.CatalogObject{
						{
							ID:      "V1",
							Version: 7,
							ItemVariationData: &square.ItemVariationData{
								Name:            "Standard",
								PriceMoney:      &square.Money{Amount: 4500, Currency: "USD"},
								ServiceDuration: 1_800_000,
							},
						},
					},
				},
			},
			{Type: square.CatalogTypeCategory, ID: "C1", CategoryData: &square.CategoryData{Name: "Hair"}},
		},
	}

	svc, users, connections, _ := newCatalogFixture(t, sq)
	users.users["u1"] = &domain.UserProfile{ID: "u1", Email: "owner@example.com"}
	conn := activeConnection(connections, "u1")

	data, err := svc.FetchAndStoreBusinessData(context.Background(), "u1", "")
	require.NoError(t, err)

	assert.Equal(t, "L2", data.PrimaryLocationID, "first ACTIVE location wins")
	require.Len(t, data.Locations, 2)
	assert.Equal(t, "123 Main St, Springfield, 62701", data.Locations[1].Address)

	require.Len(t, data.Items, 1)
	require.Len(t, data.Items[0].Variations, 1)
	v := data.Items[0].Variations[0]
	assert.Equal(t, int64(4500), v.PriceAmount)
	assert.Equal(t, int64(1_800_000), v.DurationMillis)
	assert.Equal(t, int64(7), v.Version)

	require.Len(t, data.Categories, 1)
	assert.Equal(t, "Hair", data.Categories[0].Name)

	assert.Same(t, data, users.updatedData["u1"], "snapshot is persisted")
	assert.Contains(t, connections.syncStamped, conn.ID)
}

func TestFetchAndStoreBusinessData_NoConnection(t *testing.T) {
	sq := &fakeSquare{}
	svc, _, _, broker := newCatalogFixture(t, sq)

	_, err := svc.FetchAndStoreBusinessData(context.Background(), "u1", "")
	require.ErrorIs(t, err, repository.ErrNotFound)

	assert.Zero(t, broker.getCalls, "no broker call without a connection")
	assert.Zero(t, sq.locationCalls, "no platform call without a connection")
}

func TestFetchAndStoreBusinessData_ForeignConnection(t *testing.T) {
	sq := &fakeSquare{}
	svc, _, connections, broker := newCatalogFixture(t, sq)
	conn := activeConnection(connections, "someone-else")

	_, err := svc.FetchAndStoreBusinessData(context.Background(), "u1", conn.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, broker.getCalls)
}

func TestFetchAndStoreBusinessData_FetchErrorStoresNothing(t *testing.T) {
	sq := &fakeSquare{err: &square.Error{StatusCode: 500}}
	svc, users, connections, _ := newCatalogFixture(t, sq)
	activeConnection(connections, "u1")

	_, err := svc.FetchAndStoreBusinessData(context.Background(), "u1", "")
	require.Error(t, err)
	assert.Empty(t, users.updatedData, "nothing is stored on a fetch error")
}

func TestTestData(t *testing.T) {
	svc, _, _, _ := newCatalogFixture(t, &fakeSquare{})

	data := svc.TestData()
	require.NotNil(t, data)

	assert.Len(t, data.Locations, 2)
	assert.Len(t, data.Items, 3)
	assert.Len(t, data.Categories, 2)
	assert.Equal(t, data.Locations[0].ID, data.PrimaryLocationID)
	assert.False(t, data.LastSyncedAt.IsZero())

	for _, item := range data.Items {
		assert.NotEmpty(t, item.Variations, "every fixture item is bookable")
	}
}
