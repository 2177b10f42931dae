package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func signBody(secret string, body []byte) string {
	sum := sha256.Sum256(append([]byte(secret), body...))
	return hex.EncodeToString(sum[:])
}

func newConnectFixture(t *testing.T) (*connectService, *fakeUserRepo, *fakeIntegrationRepo, *fakeConnectionRepo, *fakeCatalog, *fakeNango) {
	t.Helper()

	users := newFakeUserRepo()
	integrations := &fakeIntegrationRepo{integrations: []*domain.Integration{
		{ID: "int-1", ProviderKey: "square-sandbox", DisplayName: "Square (Sandbox)", Enabled: true},
		{ID: "int-2", ProviderKey: "hubspot", DisplayName: "HubSpot", Enabled: true},
		{ID: "int-3", ProviderKey: "square", DisplayName: "Square", Enabled: false},
	}}
	connections := newFakeConnectionRepo()
	catalog := newFakeCatalog()
	broker := &fakeNango{session: &nango.ConnectSession{Token: "sess-token", ExpiresAt: "2026-01-01T00:00:00Z"}}

	svc := NewConnectService(
		users, integrations, connections, catalog, broker,
		liveRedis(t), nopLogger(), testMetrics(t), testWebhookSecret,
	).(*connectService)

	return svc, users, integrations, connections, catalog, broker
}

func TestCreateSession(t *testing.T) {
	svc, users, _, _, _, _ := newConnectFixture(t)
	users.users["u1"] = &domain.UserProfile{ID: "u1", Email: "owner@example.com"}

	resp, err := svc.CreateSession(context.Background(), "u1", "int-1")
	require.NoError(t, err)

	assert.Equal(t, "sess-token", resp.SessionToken)
	assert.Equal(t, "square-sandbox", resp.Integration.ProviderKey)
}

func TestCreateSession_UnknownUser(t *testing.T) {
	svc, _, _, _, _, broker := newConnectFixture(t)

	_, err := svc.CreateSession(context.Background(), "missing", "int-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, broker.sessionCalls, "no broker call for an unknown user")
}

func TestCreateSession_DisabledIntegration(t *testing.T) {
	svc, users, _, _, _, broker := newConnectFixture(t)
	users.users["u1"] = &domain.UserProfile{ID: "u1", Email: "owner@example.com"}

	_, err := svc.CreateSession(context.Background(), "u1", "int-3")
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, broker.sessionCalls)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	svc, _, _, connections, _, _ := newConnectFixture(t)

	body := []byte(`{"type":"auth","operation":"creation","success":true}`)
	err := svc.HandleWebhook(context.Background(), body, "deadbeef")
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Zero(t, connections.upsertCalls)
}

func TestHandleWebhook_CreatesActiveConnection(t *testing.T) {
	svc, _, _, connections, catalog, _ := newConnectFixture(t)

	body := []byte(`{
		"type": "auth",
		"operation": "creation",
		"connectionId": "nango-conn-1",
		"providerConfigKey": "square-sandbox",
		"authMode": "OAUTH2",
		"success": true,
		"endUser": {"endUserId": "u1", "email": "owner@example.com"}
	}`)

	err := svc.HandleWebhook(context.Background(), body, signBody(testWebhookSecret, body))
	require.NoError(t, err)

	conn, err := connections.GetActiveByUser(context.Background(), "u1", "int-1")
	require.NoError(t, err)
	assert.Equal(t, "nango-conn-1", conn.ExternalConnectionID)
	assert.Equal(t, domain.ConnectionStatusActive, conn.Status)
	assert.Equal(t, "OAUTH2", conn.Metadata["auth_mode"])

	select {
	case userID := <-catalog.imported:
		assert.Equal(t, "u1", userID)
	case <-time.After(2 * time.Second):
		t.Fatal("catalog import was not triggered")
	}
}

func TestHandleWebhook_MissingEndUserSkips(t *testing.T) {
	svc, _, _, connections, catalog, _ := newConnectFixture(t)

	body := []byte(`{
		"type": "auth",
		"operation": "creation",
		"connectionId": "nango-conn-9",
		"providerConfigKey": "square-sandbox",
		"success": false,
		"error": {"type": "oauth_error", "description": "user denied access"}
	}`)

	err := svc.HandleWebhook(context.Background(), body, signBody(testWebhookSecret, body))
	require.NoError(t, err, "webhook without end user is accepted")

	assert.Zero(t, connections.upsertCalls, "no connection row is written")
	select {
	case <-catalog.imported:
		t.Fatal("import should not run without an end user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleWebhook_RepeatedDeliveryIsIdempotent(t *testing.T) {
	svc, _, _, connections, _, _ := newConnectFixture(t)

	body := []byte(`{
		"type": "auth",
		"operation": "creation",
		"connectionId": "nango-conn-1",
		"providerConfigKey": "square-sandbox",
		"authMode": "OAUTH2",
		"success": true,
		"endUser": {"endUserId": "u1"}
	}`)
	sig := signBody(testWebhookSecret, body)

	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))

	assert.Len(t, connections.rows, 1, "second delivery updates the same row")
	assert.Equal(t, 1, connections.upsertCalls, "repeat delivery is short-circuited")
}

func TestHandleWebhook_FailedDeliveryIsRetryable(t *testing.T) {
	svc, _, _, connections, _, _ := newConnectFixture(t)
	connections.upsertErr = errors.New("db unavailable")

	body := []byte(`{
		"type": "auth",
		"operation": "creation",
		"connectionId": "nango-conn-1",
		"providerConfigKey": "square-sandbox",
		"authMode": "OAUTH2",
		"success": true,
		"endUser": {"endUserId": "u1"}
	}`)
	sig := signBody(testWebhookSecret, body)

	err := svc.HandleWebhook(context.Background(), body, sig)
	require.Error(t, err)
	assert.Empty(t, connections.rows)

	// The broker retries failed deliveries. A delivery that died before
	// the upsert must not be remembered as processed.
	require.NoError(t, svc.HandleWebhook(context.Background(), body, sig))
	assert.Len(t, connections.rows, 1, "redelivery after a failure creates the row")
}

func TestHandleWebhook_FailureRecordsErrorStatus(t *testing.T) {
	svc, _, _, connections, catalog, _ := newConnectFixture(t)

	body := []byte(`{
		"type": "auth",
		"operation": "creation",
		"connectionId": "nango-conn-2",
		"providerConfigKey": "square-sandbox",
		"authMode": "OAUTH2",
		"success": false,
		"endUser": {"endUserId": "u2"},
		"error": {"type": "oauth_error", "description": "token exchange failed"}
	}`)

	err := svc.HandleWebhook(context.Background(), body, signBody(testWebhookSecret, body))
	require.NoError(t, err)

	conn := connections.rows[connKey("u2", "int-1")]
	require.NotNil(t, conn)
	assert.Equal(t, domain.ConnectionStatusError, conn.Status)
	assert.Equal(t, "token exchange failed", conn.Metadata["error"])

	select {
	case <-catalog.imported:
		t.Fatal("import should not run for a failed flow")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleWebhook_NonSquareProviderSkipsImport(t *testing.T) {
	svc, _, _, connections, catalog, _ := newConnectFixture(t)

	body := []byte(`{
		"type": "auth",
		"operation": "creation",
		"connectionId": "nango-conn-3",
		"providerConfigKey": "hubspot",
		"authMode": "OAUTH2",
		"success": true,
		"endUser": {"endUserId": "u3"}
	}`)

	err := svc.HandleWebhook(context.Background(), body, signBody(testWebhookSecret, body))
	require.NoError(t, err)
	assert.Equal(t, 1, connections.upsertCalls, "connection is still recorded")

	select {
	case <-catalog.imported:
		t.Fatal("import should only run for square providers")
	case <-time.After(50 * time.Millisecond):
	}
}
