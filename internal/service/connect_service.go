package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/pkg/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// webhookDedupeTTL bounds how long delivery keys are remembered. The
// connections upsert stays idempotent beyond it.
const webhookDedupeTTL = 24 * time.Hour

// importTimeout bounds the fire-and-forget catalog import.
const importTimeout = 2 * time.Minute

// connectService implements ConnectService
type connectService struct {
	userRepo        repository.UserRepository
	integrationRepo repository.IntegrationRepository
	connectionRepo  repository.ConnectionRepository
	catalog         CatalogService
	nango           NangoAPI
	redis           *redis.Client
	logger          *zap.Logger
	metrics         *observability.Metrics
	webhookSecret   string
}

// NewConnectService creates a new connect service
func NewConnectService(
	userRepo repository.UserRepository,
	integrationRepo repository.IntegrationRepository,
	connectionRepo repository.ConnectionRepository,
	catalog CatalogService,
	nangoClient NangoAPI,
	redisClient *redis.Client,
	logger *zap.Logger,
	metrics *observability.Metrics,
	webhookSecret string,
) ConnectService {
	return &connectService{
		userRepo:        userRepo,
		integrationRepo: integrationRepo,
		connectionRepo:  connectionRepo,
		catalog:         catalog,
		nango:           nangoClient,
		redis:           redisClient,
		logger:          logger,
		metrics:         metrics,
		webhookSecret:   webhookSecret,
	}
}

// CreateSession requests a short-lived connect session token from the
// OAuth broker for the given user and integration
func (s *connectService) CreateSession(ctx context.Context, userID, integrationID string) (*dto.ConnectSessionResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	integration, err := s.integrationRepo.GetByID(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve integration: %w", err)
	}

	if !integration.Enabled {
		return nil, fmt.Errorf("integration %s is disabled: %w", integration.ProviderKey, repository.ErrNotFound)
	}

	session, err := s.nango.CreateConnectSession(ctx, nango.EndUser{
		ID:    user.ID,
		Email: user.Email,
	}, integration.ProviderKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create connect session: %w", err)
	}

	return &dto.ConnectSessionResponse{
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
		Integration:  integration,
	}, nil
}

// HandleWebhook processes an asynchronous auth callback from the broker
func (s *connectService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !nango.VerifySignature(s.webhookSecret, body, signature) {
		return ErrInvalidSignature
	}

	hook, err := nango.ParseAuthWebhook(body)
	if err != nil {
		return fmt.Errorf("failed to parse webhook: %w", err)
	}

	s.metrics.WebhooksReceived.Add(ctx, 1)

	// Pure error notifications may omit end-user context. Accept them
	// without touching any connection record.
	if hook.EndUser == nil || hook.EndUser.EndUserID == "" {
		s.metrics.WebhooksSkipped.Add(ctx, 1)
		s.logger.Warn("webhook without end user identity, skipping",
			zap.String("provider_config_key", hook.ProviderConfigKey),
			zap.String("connection_id", hook.ConnectionID),
			zap.Bool("success", hook.Success),
		)
		return nil
	}

	// Fast path for repeated delivery; the upsert below is the actual
	// idempotency guarantee. The key is only written after the upsert
	// succeeds, so a delivery that fails mid-flight stays retryable.
	seen, err := s.alreadyDelivered(ctx, hook)
	if err != nil {
		s.logger.Warn("webhook dedupe check failed", zap.Error(err))
	} else if seen {
		s.logger.Info("duplicate webhook delivery, skipping",
			zap.String("connection_id", hook.ConnectionID),
		)
		return nil
	}

	integration, err := s.integrationRepo.GetByProviderKey(ctx, hook.ProviderConfigKey)
	if err != nil {
		return fmt.Errorf("failed to resolve integration for provider key %s: %w", hook.ProviderConfigKey, err)
	}

	status := domain.ConnectionStatusActive
	metadata := map[string]string{"auth_mode": hook.AuthMode}
	if !hook.Success {
		status = domain.ConnectionStatusError
		if hook.Error != nil {
			metadata["error"] = hook.Error.Description
		}
	}

	conn := &domain.Connection{
		UserID:               hook.EndUser.EndUserID,
		IntegrationID:        integration.ID,
		ExternalConnectionID: hook.ConnectionID,
		Status:               status,
		Metadata:             metadata,
	}

	if err := s.connectionRepo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	s.markDelivered(ctx, hook)

	s.logger.Info("connection upserted from webhook",
		zap.String("user_id", conn.UserID),
		zap.String("integration_id", conn.IntegrationID),
		zap.String("status", status),
	)

	if hook.Success && isSquareProvider(hook.ProviderConfigKey) {
		s.triggerImport(conn.UserID, conn.ID)
	}

	return nil
}

// triggerImport starts the catalog sync in the background. The connection
// itself already succeeded, so import failures are logged, not surfaced.
func (s *connectService) triggerImport(userID, connectionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		if _, err := s.catalog.FetchAndStoreBusinessData(ctx, userID, connectionID); err != nil {
			s.logger.Error("background catalog import failed",
				zap.String("user_id", userID),
				zap.String("connection_id", connectionID),
				zap.Error(err),
			)
			return
		}

		s.logger.Info("background catalog import completed",
			zap.String("user_id", userID),
			zap.String("connection_id", connectionID),
		)
	}()
}

func (s *connectService) alreadyDelivered(ctx context.Context, hook *nango.AuthWebhook) (bool, error) {
	err := s.redis.Get(ctx, deliveryRedisKey(hook)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// markDelivered records a processed delivery. Best effort: a miss here
// means the next redelivery hits the upsert again, which is harmless.
func (s *connectService) markDelivered(ctx context.Context, hook *nango.AuthWebhook) {
	if err := s.redis.Set(ctx, deliveryRedisKey(hook), "1", webhookDedupeTTL).Err(); err != nil {
		s.logger.Warn("failed to record webhook delivery", zap.Error(err))
	}
}

func deliveryRedisKey(hook *nango.AuthWebhook) string {
	return fmt.Sprintf("webhook:delivery:%s", hook.DeliveryKey())
}

func isSquareProvider(providerConfigKey string) bool {
	return strings.HasPrefix(providerConfigKey, "square")
}
