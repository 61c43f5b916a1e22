package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/metrics"
	"superpos/backend/internal/report"
	"superpos/backend/internal/store"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role for this operation")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Identity) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Identity, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Identity)
	return actor, ok
}

// ReceiptProfile is the merchant header and print settings put on receipts.
type ReceiptProfile struct {
	Company  domain.CompanyInfo
	Settings domain.ReceiptSettings
}

func DefaultReceiptProfile() ReceiptProfile {
	return ReceiptProfile{
		Company: domain.CompanyInfo{
			Name:    "DilmaSuperPOS",
			Address: "Dubai, UAE",
		},
		Settings: domain.ReceiptSettings{
			TaxRate:        decimal.RequireFromString("0.05"),
			Currency:       "AED",
			CurrencySymbol: "AED",
			PrintWidth:     80,
		},
	}
}

type Service struct {
	repo    store.Repository
	reports *report.Engine
	metrics *metrics.Recorder
	profile ReceiptProfile
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = recorder }
}

func WithReceiptProfile(profile ReceiptProfile) Option {
	return func(s *Service) { s.profile = profile }
}

func New(repo store.Repository, reports *report.Engine, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		reports: reports,
		profile: DefaultReceiptProfile(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reports == nil {
		s.reports = report.NewEngine(repo, nil, 0, s.metrics)
	}
	return s
}

// requireRole returns the caller when it holds one of roles. An empty roles
// list admits any authenticated caller.
func requireRole(ctx context.Context, roles ...domain.Role) (domain.Identity, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID == 0 {
		return domain.Identity{}, ErrUnauthenticated
	}
	if len(roles) == 0 {
		return actor, nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return domain.Identity{}, ErrForbidden
}

func normalizePage(offset, limit, fallback, max int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = fallback
	}
	if limit > max {
		limit = max
	}
	return offset, limit
}
