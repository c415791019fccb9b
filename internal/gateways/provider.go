package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lifelink/donor-gateway/pkg/logger"
	"github.com/valyala/fasthttp"
)

// MaxTokensPerCall is the provider-side multicast ceiling. Callers must
// chunk larger recipient sets.
const MaxTokensPerCall = 500

var (
	ErrTooManyTokens = errors.New("multicast exceeds provider token limit")
	ErrNoTokens      = errors.New("no tokens to send to")
)

// PushMessage is one rendered payload delivered to every token in a call.
type PushMessage struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// TokenResult is the per-recipient outcome of a multicast.
type TokenResult struct {
	Token     string `json:"token"`
	OK        bool   `json:"ok"`
	ErrorCode string `json:"error_code,omitempty"`
}

// MulticastResult aggregates a multicast call. Partial success is a normal,
// reportable outcome, not an error. InvalidTokens holds tokens the provider
// reported unregistered; everything else that failed is transient.
type MulticastResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Results       []TokenResult
}

// PushProvider is the pluggable delivery capability. Concrete SDKs live
// behind this interface; the gateway never depends on one directly.
type PushProvider interface {
	Send(ctx context.Context, token string, msg *PushMessage) error
	SendMulticast(ctx context.Context, tokens []string, msg *PushMessage) (*MulticastResult, error)
	SendToTopic(ctx context.Context, topic string, msg *PushMessage) error
}

// invalidTokenCodes are provider error codes meaning the token is dead and
// must be deactivated in the directory. Anything else is transient.
var invalidTokenCodes = map[string]bool{
	"UNREGISTERED":       true,
	"INVALID_TOKEN":      true,
	"INVALID_ARGUMENT":   true,
	"REGISTRATION_GONE":  true,
	"SENDER_ID_MISMATCH": true,
}

func IsInvalidTokenCode(code string) bool {
	return invalidTokenCodes[code]
}

// ProviderSettings carries everything needed to build a concrete provider
// for one tenant: decrypted credential included, so it must never be logged
// or persisted.
type ProviderSettings struct {
	ProjectID  string
	Credential string
	URL        string
	Timeout    time.Duration
}

// ProviderFactory builds a provider from tenant settings. Injected into the
// gateway so tests can substitute fakes.
type ProviderFactory func(settings ProviderSettings) (PushProvider, error)

// HTTPProvider speaks to a push relay over HTTP. One instance per tenant,
// carrying that tenant's project id and credential.
type HTTPProvider struct {
	projectID  string
	credential string
	url        string
	timeout    time.Duration
	client     *fasthttp.Client
}

func NewHTTPProvider(settings ProviderSettings) (PushProvider, error) {
	if settings.URL == "" {
		return nil, errors.New("provider url is required")
	}
	timeout := settings.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		projectID:  settings.ProjectID,
		credential: settings.Credential,
		url:        settings.URL,
		timeout:    timeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:     256,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}, nil
}

type multicastRequest struct {
	ProjectID string       `json:"project_id"`
	Tokens    []string     `json:"tokens"`
	Message   *PushMessage `json:"message"`
}

type multicastResponse struct {
	Results []TokenResult `json:"results"`
}

type topicRequest struct {
	ProjectID string       `json:"project_id"`
	Topic     string       `json:"topic"`
	Message   *PushMessage `json:"message"`
}

func (p *HTTPProvider) Send(ctx context.Context, token string, msg *PushMessage) error {
	res, err := p.SendMulticast(ctx, []string{token}, msg)
	if err != nil {
		return err
	}
	if res.FailureCount > 0 {
		return fmt.Errorf("push rejected: %s", res.Results[0].ErrorCode)
	}
	return nil
}

func (p *HTTPProvider) SendMulticast(ctx context.Context, tokens []string, msg *PushMessage) (*MulticastResult, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	if len(tokens) > MaxTokensPerCall {
		return nil, ErrTooManyTokens
	}

	body, err := json.Marshal(multicastRequest{
		ProjectID: p.projectID,
		Tokens:    tokens,
		Message:   msg,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal multicast request: %w", err)
	}

	raw, err := p.doRequest(ctx, "POST", "/v1/push/multicast", body)
	if err != nil {
		return nil, err
	}

	var resp multicastResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal multicast response: %w", err)
	}

	result := &MulticastResult{Results: resp.Results}
	for _, r := range resp.Results {
		if r.OK {
			result.SuccessCount++
			continue
		}
		result.FailureCount++
		if IsInvalidTokenCode(r.ErrorCode) {
			result.InvalidTokens = append(result.InvalidTokens, r.Token)
		}
	}
	return result, nil
}

func (p *HTTPProvider) SendToTopic(ctx context.Context, topic string, msg *PushMessage) error {
	body, err := json.Marshal(topicRequest{
		ProjectID: p.projectID,
		Topic:     topic,
		Message:   msg,
	})
	if err != nil {
		return fmt.Errorf("marshal topic request: %w", err)
	}
	_, err = p.doRequest(ctx, "POST", "/v1/push/topic", body)
	return err
}

func (p *HTTPProvider) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+p.credential)
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(p.timeout)
	}

	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected provider status code: %d", statusCode)
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

// NoopProvider accepts everything without touching the network. Used as the
// system-default client in environments without push credentials.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (NoopProvider) Send(_ context.Context, token string, _ *PushMessage) error {
	logger.Debug("noop push send", "token", token)
	return nil
}

func (NoopProvider) SendMulticast(_ context.Context, tokens []string, _ *PushMessage) (*MulticastResult, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	if len(tokens) > MaxTokensPerCall {
		return nil, ErrTooManyTokens
	}
	results := make([]TokenResult, len(tokens))
	for i, tok := range tokens {
		results[i] = TokenResult{Token: tok, OK: true}
	}
	return &MulticastResult{SuccessCount: len(tokens), Results: results}, nil
}

func (NoopProvider) SendToTopic(_ context.Context, topic string, _ *PushMessage) error {
	logger.Debug("noop push topic send", "topic", topic)
	return nil
}
