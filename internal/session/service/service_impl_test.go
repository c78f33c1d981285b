package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/attachment"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/hooks"
	"github.com/smallbiznis/kassa/internal/locker"
	"github.com/smallbiznis/kassa/internal/orderline"
	"github.com/smallbiznis/kassa/internal/payload"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	quoterepo "github.com/smallbiznis/kassa/internal/quote/repository"
	"github.com/smallbiznis/kassa/internal/session/domain"
	sessionrepo "github.com/smallbiznis/kassa/internal/session/repository"
	sgdomain "github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	sgrepo "github.com/smallbiznis/kassa/internal/shippinggateway/repository"
	sgservice "github.com/smallbiznis/kassa/internal/shippinggateway/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeProvider is a scriptable stand-in for the remote checkout API.
type fakeProvider struct {
	mu sync.Mutex

	nextCreateID string
	createCount  int

	updateStatus int
	updateID     string
	updateBody   string
	updateCount  int

	getStatus int
	getBody   string
	getID     string
}

// script mutates the fake's behavior between calls.
func (f *fakeProvider) script(fn func(*fakeProvider)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeProvider) counts() (creates, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCount, f.updateCount
}

func (f *fakeProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/checkout/v1/sessions":
			f.createCount++
			json.NewEncoder(w).Encode(provider.Session{
				ID:          f.nextCreateID,
				Status:      provider.StatusIncomplete,
				HTMLSnippet: "<div id=\"checkout\"></div>",
			})
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/checkout/v1/sessions/"):
			f.updateCount++
			if f.updateStatus != 0 && f.updateStatus != http.StatusOK {
				w.WriteHeader(f.updateStatus)
				if f.updateBody != "" {
					w.Write([]byte(f.updateBody))
				}
				return
			}
			id := f.updateID
			if id == "" {
				id = strings.TrimPrefix(r.URL.Path, "/checkout/v1/sessions/")
			}
			json.NewEncoder(w).Encode(provider.Session{ID: id, Status: provider.StatusIncomplete})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/checkout/v1/sessions/"):
			if f.getStatus != 0 && f.getStatus != http.StatusOK {
				w.WriteHeader(f.getStatus)
				if f.getBody != "" {
					w.Write([]byte(f.getBody))
				}
				return
			}
			id := f.getID
			if id == "" {
				id = strings.TrimPrefix(r.URL.Path, "/checkout/v1/sessions/")
			}
			json.NewEncoder(w).Encode(provider.Session{ID: id, Status: provider.StatusIncomplete})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

type testEnv struct {
	db     *gorm.DB
	svc    domain.Service
	repo   domain.Repository
	quotes quotedomain.Repository
	locks  locker.Locker
	fake   *fakeProvider
}

func newTestEnv(t *testing.T, dsn string) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.SessionLink{},
		&sgdomain.Record{},
		&quoterepo.CartRecord{},
		&quoterepo.OrderRecord{},
	))

	fake := &fakeProvider{nextCreateID: "sess-1"}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	providerCfg := config.ProviderConfig{
		BaseURL:        srv.URL,
		Username:       "merchant",
		Password:       "secret",
		APIVariant:     config.APIVariantStandard,
		TimeoutSeconds: 5,
	}
	client, err := provider.NewClient(providerCfg, zap.NewNop())
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	quotes := quoterepo.Provide(db, node, config.NewStaticMerchantConfigHolder(config.DefaultMerchantConfig()))
	locks := locker.NewMemoryLocker()

	overrides := sgservice.NewService(sgservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   sgrepo.Provide(),
		Quotes: quotes,
		Locks:  locks,
	})

	builder := payload.NewBuilder(
		providerCfg,
		config.NewStaticMerchantConfigHolder(config.DefaultMerchantConfig()),
		orderline.NewRegistry(),
		attachment.NewRegistry(),
		hooks.NewRegistry(),
		zap.NewNop(),
	)

	repo := sessionrepo.Provide()
	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repo,
		Quotes:    quotes,
		Client:    client,
		Builder:   builder,
		Overrides: overrides,
		Locks:     locks,
	})

	return &testEnv{db: db, svc: svc, repo: repo, quotes: quotes, locks: locks, fake: fake}
}

func (e *testEnv) saveCart(t *testing.T, cartID string) {
	t.Helper()
	items := []quotedomain.Item{
		{
			ItemID:          "1",
			SKU:             "sku-1",
			Name:            "Widget",
			Qty:             decimal.NewFromInt(1),
			PriceInclTax:    decimal.NewFromFloat(125.00),
			RowTotal:        decimal.NewFromFloat(100.00),
			RowTotalInclTax: decimal.NewFromFloat(125.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(25.00),
		},
	}
	store := quotedomain.Store{Code: "default", Currency: "SEK", Country: "SE", Locale: "sv-SE"}
	quote := quotedomain.NewQuote(cartID, store, items, nil, decimal.NewFromFloat(125.00),
		quotedomain.WithTax(decimal.NewFromFloat(25.00), true))
	require.NoError(t, e.quotes.Save(context.Background(), quote))
}

func (e *testEnv) activeLinks(t *testing.T, cartID string) []domain.SessionLink {
	t.Helper()
	var links []domain.SessionLink
	err := e.db.Raw(
		`SELECT id, cart_id, session_id, is_active, is_changed FROM checkout_session_links WHERE cart_id = ? AND is_active = ?`,
		cartID, true,
	).Scan(&links).Error
	require.NoError(t, err)
	return links
}

func TestEnsureSession_CreatesWhenNoLink(t *testing.T) {
	env := newTestEnv(t, "file:ensure_create?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	session, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)

	links := env.activeLinks(t, "cart-1")
	require.Len(t, links, 1)
	assert.Equal(t, "sess-1", links[0].SessionID)
	creates, _ := env.fake.counts()
	assert.Equal(t, 1, creates)
}

func TestEnsureSession_NoLinkAndNoCreate(t *testing.T) {
	env := newTestEnv(t, "file:ensure_nocreate?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", false, false)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestEnsureSession_EmptyCartNotPriceable(t *testing.T) {
	env := newTestEnv(t, "file:ensure_empty?mode=memory&cache=shared")
	store := quotedomain.Store{Code: "default", Currency: "SEK"}
	require.NoError(t, env.quotes.Save(context.Background(),
		quotedomain.NewQuote("cart-empty", store, nil, nil, decimal.Zero)))

	_, err := env.svc.EnsureSession(context.Background(), "cart-empty", true, true)
	assert.ErrorIs(t, err, domain.ErrCartNotPriceable)
}

// A remote id change on resync replaces the link row; exactly one active link
// per cart survives.
func TestEnsureSession_RemoteIDChangeReplacesLink(t *testing.T) {
	env := newTestEnv(t, "file:ensure_replace?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)

	env.fake.script(func(f *fakeProvider) { f.updateID = "sess-2" })
	session, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)
	assert.Equal(t, "sess-2", session.ID)

	links := env.activeLinks(t, "cart-1")
	require.Len(t, links, 1)
	assert.Equal(t, "sess-2", links[0].SessionID)
}

// An ambiguous update failure (no error code) with creation allowed falls
// back to a fresh session instead of failing the checkout.
func TestEnsureSession_AmbiguousUpdateFallsBackToCreate(t *testing.T) {
	env := newTestEnv(t, "file:ensure_ambiguous?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)

	env.fake.script(func(f *fakeProvider) {
		f.updateStatus = http.StatusNotFound
		f.nextCreateID = "sess-fresh"
	})
	session, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)
	assert.Equal(t, "sess-fresh", session.ID)

	links := env.activeLinks(t, "cart-1")
	require.Len(t, links, 1)
	assert.Equal(t, "sess-fresh", links[0].SessionID)
	creates, _ := env.fake.counts()
	assert.Equal(t, 2, creates)
}

func TestEnsureSession_ReadOnlyWithoutCreateFails(t *testing.T) {
	env := newTestEnv(t, "file:ensure_readonly?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)

	env.fake.script(func(f *fakeProvider) {
		f.updateStatus = http.StatusForbidden
		f.updateBody = `{"error_code":"READ_ONLY_ORDER"}`
	})
	require.NoError(t, env.svc.MarkCartChanged(context.Background(), "cart-1"))

	_, err = env.svc.EnsureSession(context.Background(), "cart-1", false, false)
	assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
	creates, _ := env.fake.counts()
	assert.Equal(t, 1, creates)
}

// A concrete rejection code on the read path is a real failure, not a dead
// session. No replacement may be created for it, with or without permission.
func TestEnsureSession_ReadRejectionSurfaces(t *testing.T) {
	env := newTestEnv(t, "file:ensure_read_reject?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)

	env.fake.script(func(f *fakeProvider) {
		f.getStatus = http.StatusForbidden
		f.getBody = `{"error_code":"UNAUTHORIZED_ORDER"}`
	})

	_, err = env.svc.EnsureSession(context.Background(), "cart-1", true, false)
	assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
	creates, _ := env.fake.counts()
	assert.Equal(t, 1, creates)
}

func TestEnsureSession_AmbiguousReadFallsBackToCreate(t *testing.T) {
	env := newTestEnv(t, "file:ensure_read_ambiguous?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)

	env.fake.script(func(f *fakeProvider) {
		f.getStatus = http.StatusNotFound
		f.nextCreateID = "sess-replacement"
	})

	session, err := env.svc.EnsureSession(context.Background(), "cart-1", true, false)
	require.NoError(t, err)
	assert.Equal(t, "sess-replacement", session.ID)
	creates, _ := env.fake.counts()
	assert.Equal(t, 2, creates)
}

// The changed flag forces a resync on the next read and clears only after a
// successful round-trip.
func TestMarkCartChanged_ForcesResync(t *testing.T) {
	env := newTestEnv(t, "file:ensure_changed?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)
	_, updatesBefore := env.fake.counts()

	require.NoError(t, env.svc.MarkCartChanged(context.Background(), "cart-1"))

	_, err = env.svc.EnsureSession(context.Background(), "cart-1", false, false)
	require.NoError(t, err)
	_, updatesAfter := env.fake.counts()
	assert.Greater(t, updatesAfter, updatesBefore)

	links := env.activeLinks(t, "cart-1")
	require.Len(t, links, 1)
	assert.False(t, links[0].IsChanged)
}

func TestEnsureSession_CartBusy(t *testing.T) {
	env := newTestEnv(t, "file:ensure_busy?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	release, ok, err := env.locks.Acquire(context.Background(), "cart:cart-1", cartLockTTL)
	require.NoError(t, err)
	require.True(t, ok)
	defer release(context.Background())

	_, err = env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	assert.ErrorIs(t, err, domain.ErrCartBusy)
}

func TestInitCheckout_ReturnsSnippet(t *testing.T) {
	env := newTestEnv(t, "file:init_snippet?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	snippet, err := env.svc.InitCheckout(context.Background(), "cart-1")
	require.NoError(t, err)
	require.NotNil(t, snippet)
	assert.Equal(t, "sess-1", snippet.SessionID)
	assert.Contains(t, snippet.HTML, "checkout")
}

func TestLinkBySession(t *testing.T) {
	env := newTestEnv(t, "file:link_by_session?mode=memory&cache=shared")
	env.saveCart(t, "cart-1")

	_, err := env.svc.EnsureSession(context.Background(), "cart-1", true, true)
	require.NoError(t, err)

	link, err := env.svc.LinkBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", link.CartID)

	_, err = env.svc.LinkBySession(context.Background(), "sess-unknown")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}
