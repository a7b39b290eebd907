package web

import (
	"context"
	"net/http"
	"time"

	"clubledger/internal/adapters/http/middleware"
	"clubledger/internal/adapters/http/perf"
	accountStore "clubledger/internal/adapters/storage/account"
	catalogStore "clubledger/internal/adapters/storage/catalog"
	ledgerStore "clubledger/internal/adapters/storage/ledger"
	milestoneStore "clubledger/internal/adapters/storage/milestone"
	notificationStore "clubledger/internal/adapters/storage/notification"
	outboxStore "clubledger/internal/adapters/storage/outbox"
	streakStore "clubledger/internal/adapters/storage/streak"
	"clubledger/internal/application/orchestrators"
	"clubledger/internal/config"
)

// Stores holds the read-side storage dependencies.
type Stores struct {
	AccountStore      accountStore.Store
	LedgerStore       ledgerStore.Store
	StreakStore       streakStore.Store
	MilestoneStore    milestoneStore.Store
	CatalogStore      catalogStore.Store
	NotificationStore notificationStore.Store
	OutboxStore       outboxStore.Store
}

// Services holds the write side: the atomic-unit runner, the outbox
// processor and the reward policy.
type Services struct {
	Runner orchestrators.TxRunner
	Outbox *orchestrators.OutboxProcessor
	Policy config.Policy
	Env    orchestrators.LedgerEnv
	// Health reports database reachability for /healthz. Nil means healthy.
	Health func(ctx context.Context) error
}

// Options tunes the middleware chain.
type Options struct {
	RateLimitPerMinute int // 0 disables rate limiting
	SlowRequestMs      int
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global services instance (set by NewMux)
var services Services

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the ledger API.
// ctx bounds background work such as the rate limiter's visitor sweep.
func NewMux(ctx context.Context, s *Stores, svc Services, collector *perf.Collector, opts Options) http.Handler {
	stores = s
	services = svc
	perfCollector = collector

	mux := http.NewServeMux()
	registerRoutes(mux)

	var limiter *middleware.RateLimiter
	if opts.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(ctx, opts.RateLimitPerMinute, time.Minute)
	}

	// Request order: Timing -> Recover -> RateLimit -> SecurityHeaders -> RequireJSON -> Mux
	return middleware.Chain(mux,
		middleware.RequireJSON,
		middleware.SecurityHeaders,
		middleware.RateLimit(limiter),
		middleware.Recover,
		middleware.Timing(collector, opts.SlowRequestMs),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealthz)

	mux.HandleFunc("POST /api/attendance", handleApplyAttendance)
	mux.HandleFunc("POST /api/rewards", handleApplyReward)
	mux.HandleFunc("POST /api/rewards/batch", handleApplyRewardBatch)

	mux.HandleFunc("GET /api/items", handleListItems)
	mux.HandleFunc("GET /api/milestones/progress", handleMilestoneProgress)
	mux.HandleFunc("GET /api/players", handlePlayerList)
	mux.HandleFunc("GET /api/players/{id}/history", handlePlayerHistory)
	mux.HandleFunc("GET /api/players/{id}/rank", handlePlayerRank)
	mux.HandleFunc("GET /api/players/{id}/notifications", handlePlayerNotifications)
	mux.HandleFunc("POST /api/players/{id}/notifications/{notificationID}/read", handleNotificationRead)

	mux.HandleFunc("GET /api/admin/outbox", handleAdminOutboxList)
	mux.HandleFunc("POST /api/admin/outbox/{id}/retry", handleAdminOutboxRetry)
	mux.HandleFunc("POST /api/admin/outbox/{id}/abandon", handleAdminOutboxAbandon)
	mux.HandleFunc("GET /api/admin/perf", handleAdminPerf)
}
