package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/hooks"
	"github.com/smallbiznis/kassa/internal/money"
	"github.com/smallbiznis/kassa/internal/ordersync/domain"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	sessiondomain "github.com/smallbiznis/kassa/internal/session/domain"
	"github.com/smallbiznis/kassa/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Cfg      config.Config
	Repo     domain.Repository
	Quotes   quotedomain.Repository
	Orders   quotedomain.OrderWriter
	Client   *provider.Client
	Sessions sessiondomain.Service
	Hooks    *hooks.Registry
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	cfg      config.ProviderConfig
	repo     domain.Repository
	quotes   quotedomain.Repository
	orders   quotedomain.OrderWriter
	client   *provider.Client
	sessions sessiondomain.Service
	hooks    *hooks.Registry
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("ordersync.service"),
		genID:    p.GenID,
		cfg:      p.Cfg.Provider,
		repo:     p.Repo,
		quotes:   p.Quotes,
		orders:   p.Orders,
		client:   p.Client,
		sessions: p.Sessions,
		hooks:    p.Hooks,
	}
}

// Reconcile turns a completed remote session into a local order exactly once.
// Both delivery paths call it; the durable link lookup immediately before
// creation is the only guard against the confirmation/push race.
func (s *service) Reconcile(ctx context.Context, sessionID string, path domain.Path, payload []byte) (*domain.Result, error) {
	if path == domain.PathPush {
		if err := s.hooks.PrePushReconcile(ctx, sessionID); err != nil {
			return nil, err
		}
	}

	link, err := s.repo.FindLinkBySession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		return &domain.Result{OrderID: link.OrderID, AlreadyExists: true}, nil
	}

	resp, err := s.client.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccessful() {
		s.log.Warn("session fetch rejected during reconcile",
			zap.String("session_id", sessionID),
			zap.String("error_code", resp.ErrorCode),
		)
		return nil, sessiondomain.ErrSessionUnavailable
	}
	session := &resp.Session

	if !provider.CompletedStatus(session.Status) {
		return nil, s.handleIncomplete(ctx, sessionID, path, payload, session)
	}

	slink, err := s.sessions.LinkBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	quote, err := s.reconcileAddresses(ctx, slink.CartID, session)
	if err != nil {
		return nil, err
	}

	localTotal := money.ToMinor(quote.GrandTotalInclTax())
	if diff := session.OrderAmount - localTotal; abs(diff) > s.cfg.TotalTolerance && !quote.Recurring() {
		s.log.Error("order total mismatch, aborting reconcile",
			zap.String("session_id", sessionID),
			zap.Int64("remote_total", session.OrderAmount),
			zap.Int64("local_total", localTotal),
			zap.Int64("tolerance", s.cfg.TotalTolerance),
		)
		s.releaseReservation(ctx, sessionID, "")
		return nil, domain.ErrTotalMismatch
	}

	if err := s.hooks.PreOrderSave(ctx, quote, session); err != nil {
		return nil, err
	}

	orderID, err := s.orders.CreateFromQuote(ctx, quote, sessionID)
	if err != nil {
		s.releaseReservation(ctx, sessionID, "")
		return nil, err
	}

	now := time.Now().UTC()
	newLink := &domain.OrderLink{
		ID:            s.genID.Generate(),
		SessionID:     sessionID,
		ReservationID: session.ReservationID,
		OrderID:       orderID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateLink(ctx, s.db, newLink); err != nil {
		// Another delivery path won the race between lookup and insert.
		// That path owns the order; this one reports it as already created.
		if db.IsDuplicateKeyErr(err) {
			existing, lookupErr := s.repo.FindLinkBySession(ctx, s.db, sessionID)
			if lookupErr == nil && existing != nil {
				s.releaseReservation(ctx, sessionID, orderID)
				return &domain.Result{OrderID: existing.OrderID, AlreadyExists: true}, nil
			}
		}
		s.releaseReservation(ctx, sessionID, orderID)
		return nil, err
	}

	s.hooks.PostOrderSave(ctx, orderID, session)
	s.acknowledge(ctx, newLink)

	s.log.Info("order created from session",
		zap.String("session_id", sessionID),
		zap.String("order_id", orderID),
		zap.String("path", string(path)),
	)
	return &domain.Result{OrderID: orderID}, nil
}

// handleIncomplete aborts reconciliation for a session that is not in a
// completed state. On the push path the attempt is counted and, once the
// threshold is reached, the reservation is cancelled instead of retried.
func (s *service) handleIncomplete(ctx context.Context, sessionID string, path domain.Path, payload []byte, session *provider.Session) error {
	s.log.Warn("session not complete, no order created",
		zap.String("session_id", sessionID),
		zap.String("status", session.Status),
		zap.String("path", string(path)),
	)
	if path != domain.PathPush {
		return domain.ErrSessionNotComplete
	}

	now := time.Now().UTC()
	attempts, err := s.repo.RecordPushAttempt(ctx, s.db, &domain.PushRecord{
		ID:          s.genID.Generate(),
		SessionID:   sessionID,
		LastPayload: payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return err
	}

	if attempts >= s.cfg.PushAttemptThreshold {
		s.log.Warn("push attempts exhausted, cancelling reservation",
			zap.String("session_id", sessionID),
			zap.Int("attempts", attempts),
		)
		if resp, err := s.client.Cancel(ctx, sessionID); err != nil {
			s.log.Error("reservation cancel failed", zap.String("session_id", sessionID), zap.Error(err))
		} else if !resp.IsSuccessful() {
			s.log.Error("reservation cancel rejected",
				zap.String("session_id", sessionID),
				zap.String("error_code", resp.ErrorCode),
			)
		}
		return domain.ErrAttemptsExhausted
	}
	return domain.ErrSessionNotComplete
}

// reconcileAddresses writes the provider-confirmed addresses back to the cart
// and recollects totals so the tolerance check compares like with like.
func (s *service) reconcileAddresses(ctx context.Context, cartID string, session *provider.Session) (*quotedomain.Quote, error) {
	if session.BillingAddress != nil || session.ShippingAddress != nil {
		if err := s.quotes.UpdateAddresses(ctx, cartID, session.BillingAddress, session.ShippingAddress); err != nil {
			return nil, err
		}
	}
	return s.quotes.CollectTotals(ctx, cartID)
}

// releaseReservation is the best-effort cleanup after a late failure. A
// timeout leaves the remote state unknown, so it is logged and never escalated
// into a destructive retry.
func (s *service) releaseReservation(ctx context.Context, sessionID, orderID string) {
	if resp, err := s.client.Release(ctx, sessionID); err != nil {
		s.log.Error("reservation release failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	} else if !resp.IsSuccessful() {
		if cancelResp, cancelErr := s.client.Cancel(ctx, sessionID); cancelErr != nil {
			s.log.Error("reservation cancel failed",
				zap.String("session_id", sessionID),
				zap.Error(cancelErr),
			)
		} else if !cancelResp.IsSuccessful() {
			s.log.Error("reservation cancel rejected",
				zap.String("session_id", sessionID),
				zap.String("error_code", cancelResp.ErrorCode),
			)
		}
	}

	if orderID == "" {
		return
	}
	if err := s.orders.MarkPaymentFailed(ctx, orderID); err != nil {
		s.log.Error("mark payment failed errored",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// acknowledge confirms receipt to the provider and stamps the local order id
// on the remote order. Failures are logged; the order already exists locally
// and a later push retries nothing destructive.
func (s *service) acknowledge(ctx context.Context, link *domain.OrderLink) {
	resp, err := s.client.Acknowledge(ctx, link.SessionID)
	if err != nil {
		s.log.Warn("order acknowledge failed", zap.String("session_id", link.SessionID), zap.Error(err))
		return
	}
	if !resp.IsSuccessful() {
		s.log.Warn("order acknowledge rejected",
			zap.String("session_id", link.SessionID),
			zap.String("error_code", resp.ErrorCode),
		)
		return
	}

	if _, err := s.client.UpdateReferences(ctx, link.SessionID, &provider.UpdateReferencesRequest{
		MerchantReference1: link.OrderID,
	}); err != nil {
		s.log.Warn("merchant reference update failed", zap.String("session_id", link.SessionID), zap.Error(err))
	}

	if err := s.repo.MarkAcknowledged(ctx, s.db, int64(link.ID), time.Now().UTC()); err != nil {
		s.log.Warn("acknowledge flag update failed", zap.String("session_id", link.SessionID), zap.Error(err))
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
