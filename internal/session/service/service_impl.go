package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kassa/internal/locker"
	"github.com/smallbiznis/kassa/internal/payload"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	"github.com/smallbiznis/kassa/internal/session/domain"
	sgdomain "github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cartLockTTL = 10 * time.Second

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Quotes    quotedomain.Repository
	Client    *provider.Client
	Builder   *payload.Builder
	Overrides sgdomain.Service
	Locks     locker.Locker
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	quotes    quotedomain.Repository
	client    *provider.Client
	builder   *payload.Builder
	overrides sgdomain.Service
	locks     locker.Locker
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("session.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		quotes:    p.Quotes,
		client:    p.Client,
		builder:   p.Builder,
		overrides: p.Overrides,
		locks:     p.Locks,
	}
}

// InitCheckout prepares the checkout page. Session failures are swallowed so
// the page still renders; the storefront retries via EnsureSession on the next
// interaction.
func (s *service) InitCheckout(ctx context.Context, cartID string) (*domain.Snippet, error) {
	quote, err := s.quotes.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if quote == nil || len(quote.LineItems()) == 0 {
		return nil, domain.ErrCartNotPriceable
	}

	session, err := s.EnsureSession(ctx, cartID, true, true)
	if err != nil {
		s.log.Warn("checkout init without live session",
			zap.String("cart_id", cartID),
			zap.Error(err),
		)
		return nil, nil
	}

	return &domain.Snippet{
		SessionID: session.ID,
		HTML:      session.HTMLSnippet,
	}, nil
}

func (s *service) EnsureSession(ctx context.Context, cartID string, createIfMissing, updateItems bool) (*provider.Session, error) {
	release, ok, err := s.locks.Acquire(ctx, "cart:"+cartID, cartLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrCartBusy
	}
	defer release(ctx)

	quote, err := s.quotes.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if quote == nil || len(quote.LineItems()) == 0 {
		return nil, domain.ErrCartNotPriceable
	}

	link, err := s.repo.FindActiveByCart(ctx, s.db, cartID)
	if err != nil {
		return nil, err
	}

	if link == nil {
		if !createIfMissing {
			return nil, domain.ErrNoSession
		}
		return s.create(ctx, quote, nil)
	}

	if updateItems || link.IsChanged {
		return s.update(ctx, quote, link, createIfMissing)
	}
	return s.fetch(ctx, quote, link, createIfMissing)
}

// update resyncs the remote session with the cart. A read-only or ambiguous
// failure means the remote session is dead or locked; when creation is allowed
// the stale link is replaced with a fresh session instead of failing the
// checkout.
func (s *service) update(ctx context.Context, quote *quotedomain.Quote, link *domain.SessionLink, createIfMissing bool) (*provider.Session, error) {
	override, err := s.overrides.ActiveOverride(ctx, link.SessionID)
	if err != nil {
		return nil, err
	}
	req, err := s.builder.Generate(ctx, payload.ModeUpdate, quote, override)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.UpdateSession(ctx, link.SessionID, req)
	if err != nil {
		// A timeout leaves the remote state unknown. Never replace the
		// session here or the shopper can end up with two authorizations.
		return nil, err
	}

	if resp.IsSuccessful() {
		return s.adopt(ctx, quote, link, &resp.Session)
	}

	if (resp.ReadOnly() || resp.Ambiguous()) && createIfMissing {
		s.log.Info("session not updatable, creating replacement",
			zap.String("cart_id", link.CartID),
			zap.String("session_id", link.SessionID),
			zap.String("error_code", resp.ErrorCode),
			zap.Int("http_status", resp.HTTPStatus),
		)
		return s.create(ctx, quote, link)
	}

	s.log.Warn("session update rejected",
		zap.String("cart_id", link.CartID),
		zap.String("session_id", link.SessionID),
		zap.String("error_code", resp.ErrorCode),
		zap.Strings("error_messages", resp.ErrorMessages),
	)
	return nil, domain.ErrSessionUnavailable
}

func (s *service) fetch(ctx context.Context, quote *quotedomain.Quote, link *domain.SessionLink, createIfMissing bool) (*provider.Session, error) {
	resp, err := s.client.GetSession(ctx, link.SessionID)
	if err != nil {
		return nil, err
	}
	if resp.IsSuccessful() {
		return s.adopt(ctx, quote, link, &resp.Session)
	}
	// Same gate as update: only a read-only order or an empty error code
	// means the session is gone and replaceable. A concrete other code is a
	// real rejection and must surface.
	if (resp.ReadOnly() || resp.Ambiguous()) && createIfMissing {
		return s.create(ctx, quote, link)
	}
	s.log.Warn("session read rejected",
		zap.String("cart_id", link.CartID),
		zap.String("session_id", link.SessionID),
		zap.String("error_code", resp.ErrorCode),
		zap.Strings("error_messages", resp.ErrorMessages),
	)
	return nil, domain.ErrSessionUnavailable
}

// create opens a fresh remote session and persists its link. A previous link,
// when given, is deactivated first so exactly one stays active per cart.
func (s *service) create(ctx context.Context, quote *quotedomain.Quote, previous *domain.SessionLink) (*provider.Session, error) {
	req, err := s.builder.Generate(ctx, payload.ModeCreate, quote, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessful() || resp.Session.ID == "" {
		s.log.Warn("session create rejected",
			zap.String("cart_id", quote.PriceableID()),
			zap.String("error_code", resp.ErrorCode),
			zap.Strings("error_messages", resp.ErrorMessages),
		)
		return nil, domain.ErrSessionUnavailable
	}

	now := time.Now().UTC()
	if previous != nil {
		if err := s.repo.Deactivate(ctx, s.db, int64(previous.ID), now); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, s.db, &domain.SessionLink{
		ID:        s.genID.Generate(),
		CartID:    quote.PriceableID(),
		SessionID: resp.Session.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	s.log.Info("session created",
		zap.String("cart_id", quote.PriceableID()),
		zap.String("session_id", resp.Session.ID),
	)
	return &resp.Session, nil
}

// adopt reconciles the stored link with the remote session after a successful
// round-trip. A changed remote id replaces the link rather than rewriting it,
// and the stale flag clears only here so a failed resync stays marked.
func (s *service) adopt(ctx context.Context, quote *quotedomain.Quote, link *domain.SessionLink, session *provider.Session) (*provider.Session, error) {
	now := time.Now().UTC()

	if session.ID != "" && session.ID != link.SessionID {
		if err := s.repo.Deactivate(ctx, s.db, int64(link.ID), now); err != nil {
			return nil, err
		}
		if err := s.repo.Create(ctx, s.db, &domain.SessionLink{
			ID:        s.genID.Generate(),
			CartID:    quote.PriceableID(),
			SessionID: session.ID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
		return session, nil
	}

	if link.IsChanged {
		if _, err := s.repo.SetChanged(ctx, s.db, link.CartID, false, now); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *service) MarkCartChanged(ctx context.Context, cartID string) error {
	// No active link is fine: the next EnsureSession builds from scratch.
	_, err := s.repo.SetChanged(ctx, s.db, cartID, true, time.Now().UTC())
	return err
}

func (s *service) ActiveLink(ctx context.Context, cartID string) (*domain.SessionLink, error) {
	return s.repo.FindActiveByCart(ctx, s.db, cartID)
}

func (s *service) LinkBySession(ctx context.Context, sessionID string) (*domain.SessionLink, error) {
	link, err := s.repo.FindBySession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNoSession
	}
	return link, nil
}
