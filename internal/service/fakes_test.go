package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/square"
	"github.com/ovela/onboard-service/pkg/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dedupe and cache lookups against this client fail fast; both paths fall
// through to correct behavior without Redis.
func testRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

// liveRedis backs tests that exercise the Redis paths for real, like the
// webhook delivery bookkeeping.
func liveRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testMetrics(t interface{ Fatalf(string, ...any) }) *observability.Metrics {
	m, err := observability.NewMetrics("onboard-service-test")
	if err != nil {
		t.Fatalf("failed to build metrics: %v", err)
	}
	return m
}

type fakeUserRepo struct {
	users       map[string]*domain.UserProfile
	updatedData map[string]*domain.BusinessData
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       make(map[string]*domain.UserProfile),
		updatedData: make(map[string]*domain.BusinessData),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.UserProfile) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, fmt.Errorf("email %s: %w", email, repository.ErrNotFound)
}

func (f *fakeUserRepo) UpsertByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	if user, err := f.GetByEmail(ctx, email); err == nil {
		return user, nil
	}
	user := &domain.UserProfile{ID: "user-" + email, Email: email}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateBusinessData(ctx context.Context, userID string, data *domain.BusinessData) error {
	f.updatedData[userID] = data
	if user, ok := f.users[userID]; ok {
		user.BusinessData = data
	}
	return nil
}

type fakeConnectionRepo struct {
	// rows keyed by (user_id, integration_id), mirroring the table's
	// unique constraint.
	rows        map[string]*domain.Connection
	upsertCalls int
	upsertErr   error // consumed by the next Upsert
	syncStamped []string
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{rows: make(map[string]*domain.Connection)}
}

func connKey(userID, integrationID string) string {
	return userID + "|" + integrationID
}

func (f *fakeConnectionRepo) Upsert(ctx context.Context, conn *domain.Connection) error {
	f.upsertCalls++
	if f.upsertErr != nil {
		err := f.upsertErr
		f.upsertErr = nil
		return err
	}
	key := connKey(conn.UserID, conn.IntegrationID)
	if existing, ok := f.rows[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
	} else {
		conn.ID = fmt.Sprintf("conn-%d", len(f.rows)+1)
		conn.CreatedAt = time.Now()
	}
	f.rows[key] = conn
	return nil
}

func (f *fakeConnectionRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	for _, conn := range f.rows {
		if conn.ID == id {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("connection %s: %w", id, repository.ErrNotFound)
}

func (f *fakeConnectionRepo) GetActiveByUser(ctx context.Context, userID, integrationID string) (*domain.Connection, error) {
	conn, ok := f.rows[connKey(userID, integrationID)]
	if !ok || conn.Status != domain.ConnectionStatusActive {
		return nil, fmt.Errorf("active connection for user %s: %w", userID, repository.ErrNotFound)
	}
	return conn, nil
}

func (f *fakeConnectionRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error) {
	var out []*domain.Connection
	for _, conn := range f.rows {
		if conn.UserID == userID {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (f *fakeConnectionRepo) UpdateLastSync(ctx context.Context, id string) error {
	f.syncStamped = append(f.syncStamped, id)
	return nil
}

func (f *fakeConnectionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	for _, conn := range f.rows {
		if conn.ID == id {
			conn.Status = status
			return nil
		}
	}
	return fmt.Errorf("connection %s: %w", id, repository.ErrNotFound)
}

type fakeIntegrationRepo struct {
	integrations []*domain.Integration
}

func (f *fakeIntegrationRepo) GetByID(ctx context.Context, id string) (*domain.Integration, error) {
	for _, integ := range f.integrations {
		if integ.ID == id {
			return integ, nil
		}
	}
	return nil, fmt.Errorf("integration %s: %w", id, repository.ErrNotFound)
}

func (f *fakeIntegrationRepo) GetByProviderKey(ctx context.Context, providerKey string) (*domain.Integration, error) {
	for _, integ := range f.integrations {
		if integ.ProviderKey == providerKey {
			return integ, nil
		}
	}
	return nil, fmt.Errorf("provider %s: %w", providerKey, repository.ErrNotFound)
}

func (f *fakeIntegrationRepo) List(ctx context.Context) ([]*domain.Integration, error) {
	return f.integrations, nil
}

type fakeNango struct {
	session      *nango.ConnectSession
	connection   *nango.Connection
	sessionCalls int
	getCalls     int
	err          error
}

func (f *fakeNango) CreateConnectSession(ctx context.Context, endUser nango.EndUser, providerConfigKey string) (*nango.ConnectSession, error) {
	f.sessionCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeNango) GetConnection(ctx context.Context, connectionID, providerConfigKey string) (*nango.Connection, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.connection, nil
}

type fakeSquare struct {
	locations      []square.Location
	catalog        []square.CatalogObject
	availabilities []square.Availability
	booking        *square.Booking
	bookingPages   [][]square.Booking
	endlessCursor  bool
	err            error

	locationCalls int
	catalogCalls  int
	searchCalls   int
	createCalls   int
	retrieveCalls int
	listCalls     int

	lastCreated square.Booking
	lastUpdated square.Booking
}

func (f *fakeSquare) ListLocations(ctx context.Context) ([]square.Location, error) {
	f.locationCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.locations, nil
}

func (f *fakeSquare) ListCatalog(ctx context.Context, types ...string) ([]square.CatalogObject, error) {
	f.catalogCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func (f *fakeSquare) SearchAvailability(ctx context.Context, startAt, endAt time.Time, locationID string, filters []square.SegmentFilter) ([]square.Availability, error) {
	f.searchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.availabilities, nil
}

func (f *fakeSquare) CreateBooking(ctx context.Context, booking square.Booking) (*square.Booking, error) {
	f.createCalls++
	f.lastCreated = booking
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeSquare) RetrieveBooking(ctx context.Context, bookingID string) (*square.Booking, error) {
	f.retrieveCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeSquare) UpdateBooking(ctx context.Context, bookingID string, booking square.Booking) (*square.Booking, error) {
	f.lastUpdated = booking
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeSquare) CancelBooking(ctx context.Context, bookingID string, version int64) (*square.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeSquare) ListBookings(ctx context.Context, params square.ListBookingsParams, cursor string) ([]square.Booking, string, error) {
	f.listCalls++
	if f.err != nil {
		return nil, "", f.err
	}
	if f.endlessCursor {
		return []square.Booking{{ID: fmt.Sprintf("bk-%d", f.listCalls)}}, fmt.Sprintf("cursor-%d", f.listCalls), nil
	}
	if len(f.bookingPages) == 0 {
		return nil, "", nil
	}
	page := f.listCalls - 1
	if page >= len(f.bookingPages) {
		page = len(f.bookingPages) - 1
	}
	next := ""
	if page < len(f.bookingPages)-1 {
		next = fmt.Sprintf("cursor-%d", page+1)
	}
	return f.bookingPages[page], next, nil
}

type fakeCatalog struct {
	imported chan string
	data     *domain.BusinessData
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{imported: make(chan string, 4)}
}

func (f *fakeCatalog) FetchAndStoreBusinessData(ctx context.Context, userID, connectionID string) (*domain.BusinessData, error) {
	f.imported <- userID
	return f.data, nil
}

func (f *fakeCatalog) TestData() *domain.BusinessData {
	return f.data
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}
