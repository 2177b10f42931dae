package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/square"
	"github.com/ovela/onboard-service/pkg/observability"
	"go.uber.org/zap"
)

// catalogService implements CatalogService
type catalogService struct {
	userRepo          repository.UserRepository
	connectionRepo    repository.ConnectionRepository
	integrationRepo   repository.IntegrationRepository
	nango             NangoAPI
	squareFactory     SquareClientFactory
	providerConfigKey string
	logger            *zap.Logger
	metrics           *observability.Metrics
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	userRepo repository.UserRepository,
	connectionRepo repository.ConnectionRepository,
	integrationRepo repository.IntegrationRepository,
	nangoClient NangoAPI,
	squareFactory SquareClientFactory,
	providerConfigKey string,
	logger *zap.Logger,
	metrics *observability.Metrics,
) CatalogService {
	return &catalogService{
		userRepo:          userRepo,
		connectionRepo:    connectionRepo,
		integrationRepo:   integrationRepo,
		nango:             nangoClient,
		squareFactory:     squareFactory,
		providerConfigKey: providerConfigKey,
		logger:            logger,
		metrics:           metrics,
	}
}

// FetchAndStoreBusinessData syncs locations and catalog into the profile.
// All-or-nothing: any fetch error aborts before anything is stored.
func (s *catalogService) FetchAndStoreBusinessData(ctx context.Context, userID, connectionID string) (*domain.BusinessData, error) {
	conn, err := s.resolveConnection(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}

	s.metrics.CatalogSyncs.Add(ctx, 1)

	creds, err := s.nango.GetConnection(ctx, conn.ExternalConnectionID, s.providerConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve platform credentials: %w", err)
	}

	sq := s.squareFactory(creds.Credentials.AccessToken)

	locations, err := sq.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}

	objects, err := sq.ListCatalog(ctx, square.CatalogTypeItem, square.CatalogTypeCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	data := reshapeBusinessData(locations, objects)

	if err := s.userRepo.UpdateBusinessData(ctx, userID, data); err != nil {
		return nil, fmt.Errorf("failed to store business data: %w", err)
	}

	if err := s.connectionRepo.UpdateLastSync(ctx, conn.ID); err != nil {
		// Snapshot is stored; a missing sync stamp only skews reporting.
		s.logger.Warn("failed to stamp connection sync time",
			zap.String("connection_id", conn.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("business data synced",
		zap.String("user_id", userID),
		zap.Int("locations", len(data.Locations)),
		zap.Int("items", len(data.Items)),
		zap.Int("categories", len(data.Categories)),
	)

	return data, nil
}

// resolveConnection finds the connection to sync from. This runs before
// any external call, so a missing connection fails fast with not-found.
func (s *catalogService) resolveConnection(ctx context.Context, userID, connectionID string) (*domain.Connection, error) {
	if connectionID != "" {
		conn, err := s.connectionRepo.GetByID(ctx, connectionID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve connection: %w", err)
		}
		if conn.UserID != userID {
			return nil, fmt.Errorf("connection %s does not belong to user: %w", connectionID, repository.ErrNotFound)
		}
		return conn, nil
	}

	integration, err := s.integrationRepo.GetByProviderKey(ctx, s.providerConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve integration: %w", err)
	}

	conn, err := s.connectionRepo.GetActiveByUser(ctx, userID, integration.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active connection: %w", err)
	}

	return conn, nil
}

// reshapeBusinessData flattens the platform's nested catalog schema into
// the profile snapshot.
func reshapeBusinessData(locations []square.Location, objects []square.CatalogObject) *domain.BusinessData {
	data := &domain.BusinessData{
		Locations:    make([]domain.Location, 0, len(locations)),
		Items:        []domain.CatalogItem{},
		Categories:   []domain.Category{},
		LastSyncedAt: time.Now(),
	}

	for _, loc := range locations {
		flattened := domain.Location{
			ID:       loc.ID,
			Name:     loc.Name,
			Timezone: loc.Timezone,
			Status:   loc.Status,
			Phone:    loc.PhoneNumber,
		}
		if loc.Address != nil {
			flattened.Address = formatAddress(loc.Address)
		}
		data.Locations = append(data.Locations, flattened)

		if data.PrimaryLocationID == "" && loc.Status == "ACTIVE" {
			data.PrimaryLocationID = loc.ID
		}
	}
	if data.PrimaryLocationID == "" && len(locations) > 0 {
		data.PrimaryLocationID = locations[0].ID
	}

	for _, obj := range objects {
		switch obj.Type {
		case square.CatalogTypeItem:
			if obj.ItemData == nil {
				continue
			}
			item := domain.CatalogItem{
				ID:          obj.ID,
				Name:        obj.ItemData.Name,
				Description: obj.ItemData.Description,
				CategoryID:  obj.ItemData.CategoryID,
				Variations:  make([]domain.ItemVariation, 0, len(obj.ItemData.Variations)),
			}
			for _, v := range obj.ItemData.Variations {
				if v.ItemVariationData == nil {
					continue
				}
				variation := domain.ItemVariation{
					ID:             v.ID,
					Name:           v.ItemVariationData.Name,
					DurationMillis: v.ItemVariationData.ServiceDuration,
					Version:        v.Version,
				}
				if v.ItemVariationData.PriceMoney != nil {
					variation.PriceAmount = v.ItemVariationData.PriceMoney.Amount
					variation.PriceCurrency = v.ItemVariationData.PriceMoney.Currency
				}
				item.Variations = append(item.Variations, variation)
			}
			data.Items = append(data.Items, item)

		case square.CatalogTypeCategory:
			if obj.CategoryData == nil {
				continue
			}
			data.Categories = append(data.Categories, domain.Category{
				ID:   obj.ID,
				Name: obj.CategoryData.Name,
			})
		}
	}

	return data
}

func formatAddress(addr *square.Address) string {
	parts := []string{}
	for _, p := range []string{addr.AddressLine1, addr.Locality, addr.AdministrativeArea, addr.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
