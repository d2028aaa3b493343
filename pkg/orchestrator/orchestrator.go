package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/providers"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/telemetry/logging"
	"mercator-hq/sketch/pkg/telemetry/metrics"
	"mercator-hq/sketch/pkg/usage"
)

// DefaultSystemPrompt instructs the provider to answer with diagram source
// only.
const DefaultSystemPrompt = "You are a diagram generator. Reply with Mermaid diagram source only: " +
	"no explanations, no prose, no markdown outside the diagram. " +
	"Choose the diagram type (flowchart, sequenceDiagram, classDiagram, stateDiagram-v2, erDiagram, gantt) " +
	"that best fits the request."

// DefaultTimeout bounds one outbound call.
const DefaultTimeout = 60 * time.Second

// maxMessageBody caps how much of a provider error body reaches a message.
const maxMessageBody = 300

// Registry resolves provider descriptors.
type Registry interface {
	Get(id string) (registry.Descriptor, error)
}

// Adapters resolves the adapter of a provider.
type Adapters interface {
	Adapter(id string) (providers.Adapter, bool)
}

// Limiter is the local per-provider quota.
type Limiter interface {
	TryReserve(ctx context.Context, providerID string) (ratelimit.Status, bool)
	Remaining(ctx context.Context, providerID string) int
	ResetAt(ctx context.Context, providerID string) time.Time
	Status(ctx context.Context, providerID string) ratelimit.Status
}

// Ledger records generation outcomes.
type Ledger interface {
	Record(ctx context.Context, providerID string, succeeded bool, u *usage.Usage)
	Snapshot(ctx context.Context) usage.Ledger
	Reset(ctx context.Context)
}

// Transport performs the outbound exchange.
type Transport interface {
	Do(ctx context.Context, provider string, req *http.Request) (*providers.Response, error)
}

// Recorder receives metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordGeneration(g metrics.Generation)
	RecordError(provider, kind string)
	UpdateQuota(provider string, remaining int)
	RecordQuotaDenied(provider string)
}

// Dependencies are the services the orchestrator sequences.
type Dependencies struct {
	Registry  Registry
	Adapters  Adapters
	Limiter   Limiter
	Ledger    Ledger
	Transport Transport

	// Metrics is optional.
	Metrics Recorder
}

// Config configures the orchestrator.
type Config struct {
	// SystemPrompt is sent with every call. Default: DefaultSystemPrompt.
	SystemPrompt string

	// Timeout bounds each outbound call. Default: DefaultTimeout.
	Timeout time.Duration

	// MaxTokens caps completion length. Zero lets each adapter choose.
	MaxTokens int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator sequences quota, provider call and ledger per generation.
// It holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	config   Config
	deps     Dependencies
	logger   *slog.Logger
	newID    func() string
	recorder Recorder
}

// New creates an orchestrator. Every dependency except Metrics is required.
func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("orchestrator: registry is required")
	case deps.Adapters == nil:
		return nil, errors.New("orchestrator: adapters are required")
	case deps.Limiter == nil:
		return nil, errors.New("orchestrator: limiter is required")
	case deps.Ledger == nil:
		return nil, errors.New("orchestrator: ledger is required")
	case deps.Transport == nil:
		return nil, errors.New("orchestrator: transport is required")
	}

	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := deps.Metrics
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Orchestrator{
		config:   cfg,
		deps:     deps,
		logger:   logger.With("component", "orchestrator"),
		newID:    uuid.NewString,
		recorder: recorder,
	}, nil
}

// Generate runs one generation. It always returns a Result with exactly one
// of Success or Failure set.
func (o *Orchestrator) Generate(ctx context.Context, req Request) Result {
	requestID := o.newID()
	ctx = logging.WithRequestID(ctx, requestID)
	ctx = logging.WithProvider(ctx, req.ProviderID)

	desc, err := o.deps.Registry.Get(req.ProviderID)
	adapter, ok := o.deps.Adapters.Adapter(req.ProviderID)
	if err != nil || !ok {
		o.logger.WarnContext(ctx, "unsupported provider")
		o.recorder.RecordError(metrics.UnknownProvider, string(providers.KindProviderUnsupported))
		return o.fail(requestID, req.ProviderID, providers.KindProviderUnsupported,
			fmt.Sprintf("provider %q is not supported", req.ProviderID))
	}

	model := req.ModelID
	if model == "" {
		model = desc.DefaultModel()
	}
	ctx = logging.WithModel(ctx, model)

	status, reserved := o.deps.Limiter.TryReserve(ctx, desc.ID)
	o.recorder.UpdateQuota(desc.ID, status.Remaining)
	if !reserved {
		o.logger.InfoContext(ctx, "local quota exhausted",
			"limit", status.Limit,
			"reset_at", status.ResetAt,
		)
		o.recorder.RecordQuotaDenied(desc.ID)
		o.recorder.RecordGeneration(metrics.Generation{
			Provider: desc.ID,
			Model:    model,
			Status:   metrics.StatusRateLimited,
		})

		res := o.fail(requestID, desc.ID, providers.KindRateLimited, rateLimitedMessage(desc, status))
		res.Failure.ResetAt = status.ResetAt
		return res
	}

	// Quota is spent from here on, so the outcome is recorded even if the
	// caller goes away.
	recordCtx := context.WithoutCancel(ctx)

	start := time.Now()
	text, tokens, err := o.call(ctx, desc, adapter, model, req)
	duration := time.Since(start)

	if err != nil {
		kind := adapter.ClassifyError(err)
		o.deps.Ledger.Record(recordCtx, desc.ID, false, nil)

		o.logger.WarnContext(ctx, "generation failed",
			"kind", kind,
			"duration", duration,
			"error", err,
		)
		o.recorder.RecordError(desc.ID, string(kind))
		o.recorder.RecordGeneration(metrics.Generation{
			Provider: desc.ID,
			Model:    model,
			Status:   metrics.StatusFailure,
			Duration: duration,
		})

		res := o.fail(requestID, desc.ID, kind, failureMessage(desc, kind, err))
		var rateErr *providers.RateLimitError
		if errors.As(err, &rateErr) {
			res.Failure.RetryAfter = rateErr.RetryAfter
		}
		return res
	}

	est := adapter.EstimateCost(model, tokens.InputTokens, tokens.OutputTokens)
	o.deps.Ledger.Record(recordCtx, desc.ID, true, &usage.Usage{
		InputTokens:  tokens.InputTokens,
		OutputTokens: tokens.OutputTokens,
		Cost:         est.TotalCost,
	})

	if text == "" {
		o.logger.WarnContext(ctx, "provider response matched no known envelope")
	}
	o.logger.InfoContext(ctx, "generation succeeded",
		"input_tokens", tokens.InputTokens,
		"output_tokens", tokens.OutputTokens,
		"cost", est.TotalCost,
		"duration", duration,
	)
	o.recorder.RecordGeneration(metrics.Generation{
		Provider:        desc.ID,
		Model:           model,
		Status:          metrics.StatusSuccess,
		Duration:        duration,
		InputTokens:     tokens.InputTokens,
		OutputTokens:    tokens.OutputTokens,
		Cost:            est.TotalCost,
		PricingFallback: est.Fallback,
	})

	return Result{Success: &Success{
		RequestID:       requestID,
		Provider:        desc.ID,
		Model:           model,
		DiagramText:     text,
		Usage:           tokens,
		Cost:            est.TotalCost,
		PricingFallback: est.Fallback,
		Duration:        duration,
	}}
}

// call builds and sends the request under the per-call deadline and returns
// the stripped text and token usage.
func (o *Orchestrator) call(ctx context.Context, desc registry.Descriptor, adapter providers.Adapter, model string, req Request) (string, providers.TokenUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	httpReq, err := adapter.BuildRequest(ctx, providers.Call{
		SystemPrompt: o.config.SystemPrompt,
		UserPrompt:   req.Prompt,
		Model:        model,
		Secret:       req.Secret,
		Endpoint:     desc.Endpoint,
		MaxTokens:    o.config.MaxTokens,
	})
	if err != nil {
		return "", providers.TokenUsage{}, err
	}

	resp, err := o.deps.Transport.Do(ctx, desc.ID, httpReq)
	if err != nil {
		return "", providers.TokenUsage{}, err
	}

	text := StripFences(adapter.ParseResponse(resp.Body))
	return text, adapter.ExtractUsage(resp.Body), nil
}

func (o *Orchestrator) fail(requestID, provider string, kind providers.ErrorKind, message string) Result {
	return Result{Failure: &Failure{
		RequestID: requestID,
		Provider:  provider,
		Kind:      kind,
		Message:   message,
	}}
}

// Remaining returns the requests left in providerID's current window.
func (o *Orchestrator) Remaining(ctx context.Context, providerID string) int {
	return o.deps.Limiter.Remaining(ctx, providerID)
}

// ResetAt returns when providerID's current window ends, or the zero time.
func (o *Orchestrator) ResetAt(ctx context.Context, providerID string) time.Time {
	return o.deps.Limiter.ResetAt(ctx, providerID)
}

// QuotaStatus returns the full quota status of providerID.
func (o *Orchestrator) QuotaStatus(ctx context.Context, providerID string) ratelimit.Status {
	return o.deps.Limiter.Status(ctx, providerID)
}

// LedgerSnapshot returns a copy of the usage ledger.
func (o *Orchestrator) LedgerSnapshot(ctx context.Context) usage.Ledger {
	return o.deps.Ledger.Snapshot(ctx)
}

// ResetLedger zeroes the usage ledger.
func (o *Orchestrator) ResetLedger(ctx context.Context) {
	o.logger.InfoContext(ctx, "resetting usage ledger")
	o.deps.Ledger.Reset(ctx)
}

type nopRecorder struct{}

func (nopRecorder) RecordGeneration(metrics.Generation) {}
func (nopRecorder) RecordError(string, string)          {}
func (nopRecorder) UpdateQuota(string, int)             {}
func (nopRecorder) RecordQuotaDenied(string)            {}
