package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/lifelink/donor-gateway/internal/repository"
	"github.com/lifelink/donor-gateway/pkg/logger"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultClientTTL = 10 * time.Minute
)

// ClientScope distinguishes the system-default client from tenant-scoped
// ones, so callers can branch (skip tenant branding, quota accounting)
// without reference-identity tricks.
type ClientScope int

const (
	ScopeDefault ClientScope = iota
	ScopeTenant
)

// Client pairs a delivery provider with its scope tag.
type Client struct {
	Scope     ClientScope
	TenantID  int64
	ProjectID string

	provider PushProvider
}

func (c *Client) IsDefault() bool {
	return c.Scope == ScopeDefault
}

// ConfigStore is the persistence surface the gateway needs for tenant push
// configs. Counter updates are atomic in the store, not read-modify-write
// here.
type ConfigStore interface {
	Get(ctx context.Context, tenantID int64) (*model.TenantPushConfig, error)
	IncrementCounters(ctx context.Context, tenantID int64, attempted int64) error
	ResetDailyIfDue(ctx context.Context, tenantID int64, now time.Time) (bool, error)
	ResetMonthlyIfDue(ctx context.Context, tenantID int64, now time.Time) (bool, error)
}

// Decrypter opens the credential blob. Satisfied by vault.Vault.
type Decrypter interface {
	Decrypt(blob string) (string, error)
}

type Config struct {
	ClientTTL   time.Duration
	BatchLimit  int
	SendTimeout time.Duration
}

// Gateway owns the tenant-client cache and quota enforcement. It is an
// explicit dependency of dispatch paths, injected, never a process-wide
// singleton.
type Gateway struct {
	store   ConfigStore
	vault   Decrypter
	factory ProviderFactory

	cache  *gocache.Cache
	flight singleflight.Group

	defaultClient *Client
	config        Config
	now           func() time.Time
}

func New(store ConfigStore, vault Decrypter, factory ProviderFactory, defaultProvider PushProvider, config Config) *Gateway {
	if config.ClientTTL <= 0 {
		config.ClientTTL = DefaultClientTTL
	}
	if config.BatchLimit <= 0 || config.BatchLimit > MaxTokensPerCall {
		config.BatchLimit = MaxTokensPerCall
	}
	if defaultProvider == nil {
		defaultProvider = NewNoopProvider()
	}
	return &Gateway{
		store:   store,
		vault:   vault,
		factory: factory,
		cache:   gocache.New(config.ClientTTL, config.ClientTTL),
		defaultClient: &Client{
			Scope:    ScopeDefault,
			provider: defaultProvider,
		},
		config: config,
		now:    time.Now,
	}
}

func cacheKey(tenantID int64) string {
	return strconv.FormatInt(tenantID, 10)
}

// ResolveClient returns the delivery client for a tenant: the cached one
// when fresh, otherwise a newly built tenant client, or the system default
// when the tenant is unconfigured, inactive, over quota, or its credentials
// cannot be opened. Construction is single-flight per tenant: concurrent
// callers racing past an expired entry wait for one build and share it.
func (g *Gateway) ResolveClient(ctx context.Context, tenantID int64) (*Client, error) {
	key := cacheKey(tenantID)
	if v, ok := g.cache.Get(key); ok {
		return v.(*Client), nil
	}

	v, err, _ := g.flight.Do(key, func() (interface{}, error) {
		// Losers of the race land here after the winner populated the cache.
		if v, ok := g.cache.Get(key); ok {
			return v, nil
		}
		return g.buildClient(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

func (g *Gateway) buildClient(ctx context.Context, tenantID int64) (*Client, error) {
	cfg, err := g.store.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrPushConfigNotFound) {
			logger.Debug("no push config for tenant, using default client", "tenant_id", tenantID)
			return g.defaultClient, nil
		}
		return nil, fmt.Errorf("load tenant push config: %w", err)
	}

	if !cfg.IsConfigured || !cfg.IsActive {
		logger.Debug("tenant push config disabled, using default client", "tenant_id", tenantID)
		return g.defaultClient, nil
	}

	cfg, err = g.resetCountersIfDue(ctx, tenantID, cfg)
	if err != nil {
		return nil, err
	}

	if overQuota(cfg) {
		logger.Warn("tenant push quota exceeded, degrading to default client",
			"tenant_id", tenantID,
			"daily_sent", cfg.DailySent, "daily_limit", cfg.DailyLimit,
			"monthly_sent", cfg.MonthlySent, "monthly_limit", cfg.MonthlyLimit)
		return g.defaultClient, nil
	}

	credential, err := g.vault.Decrypt(cfg.Credentials)
	if err != nil {
		logger.Error("tenant credential decrypt failed, falling back to default client",
			"tenant_id", tenantID, "error", err)
		return g.defaultClient, nil
	}

	provider, err := g.factory(ProviderSettings{
		ProjectID:  cfg.ProjectID,
		Credential: credential,
		URL:        cfg.ProviderURL,
		Timeout:    g.config.SendTimeout,
	})
	if err != nil {
		logger.Error("tenant push provider init failed, falling back to default client",
			"tenant_id", tenantID, "error", err)
		return g.defaultClient, nil
	}

	client := &Client{
		Scope:     ScopeTenant,
		TenantID:  tenantID,
		ProjectID: cfg.ProjectID,
		provider:  provider,
	}
	g.cache.Set(cacheKey(tenantID), client, g.config.ClientTTL)
	logger.Info("tenant push client built", "tenant_id", tenantID, "project_id", cfg.ProjectID)
	return client, nil
}

func (g *Gateway) resetCountersIfDue(ctx context.Context, tenantID int64, cfg *model.TenantPushConfig) (*model.TenantPushConfig, error) {
	now := g.now()
	dailyReset, err := g.store.ResetDailyIfDue(ctx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("reset daily counter: %w", err)
	}
	monthlyReset, err := g.store.ResetMonthlyIfDue(ctx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("reset monthly counter: %w", err)
	}
	if !dailyReset && !monthlyReset {
		return cfg, nil
	}
	return g.store.Get(ctx, tenantID)
}

func overQuota(cfg *model.TenantPushConfig) bool {
	if cfg.DailyLimit > 0 && cfg.DailySent >= cfg.DailyLimit {
		return true
	}
	if cfg.MonthlyLimit > 0 && cfg.MonthlySent >= cfg.MonthlyLimit {
		return true
	}
	return false
}

// InvalidateTenant drops the tenant's cached client immediately. Called on
// configuration updates; the next ResolveClient rebuilds from scratch.
func (g *Gateway) InvalidateTenant(tenantID int64) {
	g.cache.Delete(cacheKey(tenantID))
}

// SendToTokens fans one payload out to a recipient token set, chunking to
// the provider ceiling. Per-batch transport failures are transient: the
// whole chunk counts failed and the send moves on. Tenant counters are
// incremented by recipients attempted, not recipients delivered, matching
// how providers bill.
func (g *Gateway) SendToTokens(ctx context.Context, client *Client, tokens []string, msg *PushMessage) (*MulticastResult, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	total := &MulticastResult{}
	for start := 0; start < len(tokens); start += g.config.BatchLimit {
		end := start + g.config.BatchLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		res, err := client.provider.SendMulticast(ctx, chunk, msg)
		if err != nil {
			logger.Warn("multicast batch failed, counting as transient failures",
				"tenant_id", client.TenantID, "batch_size", len(chunk), "error", err)
			total.FailureCount += len(chunk)
			for _, tok := range chunk {
				total.Results = append(total.Results, TokenResult{Token: tok, ErrorCode: "TRANSIENT"})
			}
			continue
		}

		total.SuccessCount += res.SuccessCount
		total.FailureCount += res.FailureCount
		total.InvalidTokens = append(total.InvalidTokens, res.InvalidTokens...)
		total.Results = append(total.Results, res.Results...)
	}

	if client.Scope == ScopeTenant {
		if err := g.store.IncrementCounters(ctx, client.TenantID, int64(len(tokens))); err != nil {
			logger.Error("failed to record tenant send counters",
				"tenant_id", client.TenantID, "attempted", len(tokens), "error", err)
		}
	}

	return total, nil
}

// SendToTopic namespaces the topic by the requesting tenant so a topic name
// in one tenant can never reach another tenant's subscribers. The tenant id
// comes from the caller, not the client: a tenant degraded to the default
// client keeps its own namespace instead of sharing the default one.
func (g *Gateway) SendToTopic(ctx context.Context, client *Client, tenantID int64, topic string, msg *PushMessage) error {
	if client == nil {
		return errors.New("client is required")
	}
	return client.provider.SendToTopic(ctx, TenantTopic(tenantID, topic), msg)
}

// TenantTopic is the cross-tenant isolation boundary for topic sends.
func TenantTopic(tenantID int64, topic string) string {
	return fmt.Sprintf("t%d~%s", tenantID, topic)
}

var ErrTenantNotConfigured = errors.New("tenant push configuration did not produce a client")

// TestTenant verifies a tenant's stored push configuration end to end:
// resolve the tenant's client and deliver a short message to the tenant's
// config-test topic through it. A tenant that resolves to the default
// client, whether unconfigured or degraded, has nothing of its own to
// test.
func (g *Gateway) TestTenant(ctx context.Context, tenantID int64) error {
	client, err := g.ResolveClient(ctx, tenantID)
	if err != nil {
		return err
	}
	if client.IsDefault() {
		return ErrTenantNotConfigured
	}
	msg := &PushMessage{
		Title: "Push configuration test",
		Body:  "Your push credentials are working.",
	}
	return g.SendToTopic(ctx, client, tenantID, "config-test", msg)
}
