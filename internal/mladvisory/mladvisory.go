// Package mladvisory implements the ML advisory client from spec.md §4.12:
// selectAlgorithm/predictWaste/predictTime, each wrapped in its own
// circuit breaker, prompting a configured mlmodel.Client for a small JSON
// answer. On failure predictWaste/predictTime report
// modelVersion="fallback"; selectAlgorithm returns the error and leaves
// the fallback choice to its caller.
// recordOutcome is fire-and-forget and never blocks the caller.
//
// Grounded on features/model's provider-adapter boundary (a small client
// interface callers construct once and pass around) combined with
// features/model/middleware's wrap-and-observe decorator shape, here
// applied per-operation instead of per-client so one slow provider call
// (e.g. predictTime) cannot trip the breaker guarding another
// (selectAlgorithm).
package mladvisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/cutstock/optima/internal/breaker"
	"github.com/cutstock/optima/internal/domain"
	"github.com/cutstock/optima/internal/mlmodel"
	"github.com/cutstock/optima/internal/optimizer"
	"github.com/cutstock/optima/internal/telemetry"
)

// defaultAdvisoryRateLimit caps how many ML-advisory calls (across all
// three operations) may leave the process per second, so a burst of
// concurrently-optimized jobs cannot overrun the configured model
// provider's own rate limit.
const defaultAdvisoryRateLimit = 20

// Outcome is one production result fed back via RecordOutcome, matching
// spec.md §4.14's feedback handler inputs.
type Outcome struct {
	PlanID           string
	Algorithm        domain.Algorithm
	PredictedWaste   float64
	ActualWaste      float64
	PredictedTimeSec float64
	ActualTimeSec    float64
}

// Client is the ML advisory client. It satisfies internal/optimizer.Advisor
// via SelectAlgorithm.
type Client struct {
	model mlmodel.Client

	selectBreaker *breaker.Breaker
	wasteBreaker  *breaker.Breaker
	timeBreaker   *breaker.Breaker

	// limiter paces all ML-advisory calls combined (token-bucket, shared
	// across the three operations) so a burst of concurrently-optimized
	// jobs cannot overrun the configured model provider's own rate limit.
	limiter *rate.Limiter

	logger telemetry.Logger
}

// Options configures a Client.
type Options struct {
	Model   mlmodel.Client
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	// RateLimit caps combined ML-advisory calls per second across all
	// three operations. Zero means defaultAdvisoryRateLimit.
	RateLimit float64
}

// New constructs a Client with one breaker per operation, per spec.md
// §4.12's "each behind its own breaker".
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	mk := func(name string) *breaker.Breaker {
		return breaker.New(breaker.Config{Name: name, Logger: logger, Metrics: opts.Metrics})
	}
	rateLimit := opts.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultAdvisoryRateLimit
	}
	return &Client{
		model:         opts.Model,
		selectBreaker: mk("ml.select-algorithm"),
		wasteBreaker:  mk("ml.predict-waste"),
		timeBreaker:   mk("ml.predict-time"),
		limiter:       rate.NewLimiter(rate.Limit(rateLimit), int(rateLimit)),
		logger:        logger,
	}
}

// Snapshot reports each operation breaker's state, keyed by the breaker
// name set in New, for an observability surface (out of scope here) to
// poll.
func (c *Client) Snapshot() map[string]breaker.Snapshot {
	return map[string]breaker.Snapshot{
		"selectAlgorithm": c.selectBreaker.Snapshot(),
		"predictWaste":    c.wasteBreaker.Snapshot(),
		"predictTime":     c.timeBreaker.Snapshot(),
	}
}

// SelectAlgorithm asks the model for an algorithm suggestion. On any
// failure (breaker open, provider error, malformed JSON) it returns an
// error; internal/optimizer.Run treats that as "use the dimensionality
// default" rather than retrying.
func (c *Client) SelectAlgorithm(ctx context.Context, features optimizer.Features) (optimizer.Suggestion, error) {
	if c.model == nil {
		return optimizer.Suggestion{}, domain.New(domain.CodeUpstreamUnavailable, "ml advisory: no model configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return optimizer.Suggestion{}, domain.Wrap(domain.CodeUpstreamUnavailable, "ml advisory: rate limited", err)
	}
	return breaker.Do(ctx, c.selectBreaker, func(ctx context.Context) (optimizer.Suggestion, error) {
		resp, err := c.model.Complete(ctx, mlmodel.Request{
			System: selectAlgorithmSystemPrompt,
			Prompt: featuresPrompt(features),
		})
		if err != nil {
			return optimizer.Suggestion{}, err
		}
		var decoded struct {
			Algorithm  string  `json:"algorithm"`
			Confidence float64 `json:"confidence"`
		}
		if err := decodeJSON(resp.Text, &decoded); err != nil {
			return optimizer.Suggestion{}, err
		}
		if decoded.Algorithm == "" {
			return optimizer.Suggestion{}, fmt.Errorf("ml advisory: empty algorithm suggestion")
		}
		return optimizer.Suggestion{
			Name:         domain.Algorithm(decoded.Algorithm),
			Confidence:   decoded.Confidence,
			ModelVersion: "advisory-v1",
		}, nil
	})
}

// PredictWaste asks the model to predict waste percentage for the given
// features and chosen algorithm.
func (c *Client) PredictWaste(ctx context.Context, features optimizer.Features, algorithm domain.Algorithm) (float64, string, error) {
	if c.model == nil {
		return 0, domain.AlgorithmFallbackModel, domain.New(domain.CodeUpstreamUnavailable, "ml advisory: no model configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, domain.AlgorithmFallbackModel, domain.Wrap(domain.CodeUpstreamUnavailable, "ml advisory: rate limited", err)
	}
	type prediction struct {
		value float64
	}
	p, err := breaker.Do(ctx, c.wasteBreaker, func(ctx context.Context) (prediction, error) {
		resp, err := c.model.Complete(ctx, mlmodel.Request{
			System: predictWasteSystemPrompt,
			Prompt: fmt.Sprintf("%s\nalgorithm: %s", featuresPrompt(features), algorithm),
		})
		if err != nil {
			return prediction{}, err
		}
		var decoded struct {
			WastePercentage float64 `json:"wastePercentage"`
		}
		if err := decodeJSON(resp.Text, &decoded); err != nil {
			return prediction{}, err
		}
		return prediction{value: decoded.WastePercentage}, nil
	})
	if err != nil {
		return 0, domain.AlgorithmFallbackModel, err
	}
	return p.value, "advisory-v1", nil
}

// PredictTime asks the model to predict processing time in seconds.
func (c *Client) PredictTime(ctx context.Context, features optimizer.Features, algorithm domain.Algorithm) (float64, string, error) {
	if c.model == nil {
		return 0, domain.AlgorithmFallbackModel, domain.New(domain.CodeUpstreamUnavailable, "ml advisory: no model configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, domain.AlgorithmFallbackModel, domain.Wrap(domain.CodeUpstreamUnavailable, "ml advisory: rate limited", err)
	}
	type prediction struct {
		value float64
	}
	p, err := breaker.Do(ctx, c.timeBreaker, func(ctx context.Context) (prediction, error) {
		resp, err := c.model.Complete(ctx, mlmodel.Request{
			System: predictTimeSystemPrompt,
			Prompt: fmt.Sprintf("%s\nalgorithm: %s", featuresPrompt(features), algorithm),
		})
		if err != nil {
			return prediction{}, err
		}
		var decoded struct {
			TimeSeconds float64 `json:"timeSeconds"`
		}
		if err := decodeJSON(resp.Text, &decoded); err != nil {
			return prediction{}, err
		}
		return prediction{value: decoded.TimeSeconds}, nil
	})
	if err != nil {
		return 0, domain.AlgorithmFallbackModel, err
	}
	return p.value, "advisory-v1", nil
}

// RecordOutcome logs the difference between an actual production result
// and its predictions; nothing is stored, and later prompts do not use
// it. Per
// spec.md §4.14 this is fire-and-forget: callers do not wait for it and
// its failure never surfaces to the production-completed handler.
// internal/feedback's handler is the only caller in this scope; no
// training-data persistence happens here.
func (c *Client) RecordOutcome(ctx context.Context, outcome Outcome) {
	if c.model == nil {
		return
	}
	go func() {
		wasteErr := outcome.ActualWaste - outcome.PredictedWaste
		timeErr := outcome.ActualTimeSec - outcome.PredictedTimeSec
		c.logger.Info(ctx, "ml advisory outcome recorded",
			"plan_id", outcome.PlanID,
			"algorithm", string(outcome.Algorithm),
			"waste_error", wasteErr,
			"time_error_seconds", timeErr,
		)
	}()
}

const selectAlgorithmSystemPrompt = "You select the best cutting-stock packing algorithm for the given job. " +
	"Respond with strict JSON: {\"algorithm\": one of 1D_FFD|1D_BFD|2D_BOTTOM_LEFT|2D_GUILLOTINE, \"confidence\": 0..1}."

const predictWasteSystemPrompt = "You predict material waste percentage for a cutting-stock job and algorithm. " +
	"Respond with strict JSON: {\"wastePercentage\": number 0..100}."

const predictTimeSystemPrompt = "You predict processing time in seconds for a cutting-stock job and algorithm. " +
	"Respond with strict JSON: {\"timeSeconds\": number}."

func featuresPrompt(f optimizer.Features) string {
	return fmt.Sprintf(
		"pieceCount: %d\nstockCount: %d\nareaVarianceMM2: %.4f\naspectRatioMean: %.4f",
		f.PieceCount, f.StockCount, f.AreaVarianceMM2, f.AspectRatioMean,
	)
}

// decodeJSON extracts the first top-level JSON object from text and
// decodes it. Models sometimes wrap JSON in prose or code fences despite
// being asked for strict JSON, so this tolerates a surrounding ```json
// fence instead of failing the whole call.
func decodeJSON(text string, v any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return fmt.Errorf("ml advisory: no JSON object in response")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}
