// Package intent turns a finalized transcript into an actionable command.
//
// Interpretation runs through a fixed-priority strategy chain:
//
//  1. Rule shortcut — ask the rules engine to interpret and persist the
//     transcript in one call. A created rule ends resolution immediately.
//  2. Classification — ask the NLU service for an intent plus slot data.
//     Transfers need an amount to be actionable; balance queries stand alone.
//  3. Heuristic — a transcript shaped like "if ... then ..." is a rule
//     definition even when the services upstream failed to see it.
//  4. Literal — persist the raw transcript as a rule; if even that fails the
//     utterance is unknown.
//
// A failure in any strategy falls through to the next one. The chain itself
// never fails: step 4 absorbs the terminal case.
package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aurafin/aura/internal/observe"
	"github.com/aurafin/aura/internal/payee"
	"github.com/aurafin/aura/internal/resilience"
	"github.com/aurafin/aura/pkg/collab/nlu"
	"github.com/aurafin/aura/pkg/collab/rules"
	"github.com/aurafin/aura/pkg/types"
)

// Kind identifies the actionable interpretation of an utterance.
type Kind string

const (
	// KindRuleCreated means a rule was already persisted during resolution.
	KindRuleCreated Kind = "rule_created"

	// KindTransfer is a money transfer awaiting confirmation.
	KindTransfer Kind = "transfer"

	// KindBalance is a balance query.
	KindBalance Kind = "balance_query"

	// KindCreateRule is a rule definition that still needs persisting.
	KindCreateRule Kind = "create_rule"

	// KindUnknown means no strategy could act on the utterance.
	KindUnknown Kind = "unknown"
)

// Resolution is the outcome of resolving one transcript.
type Resolution struct {
	Kind Kind

	// Rule is set for [KindRuleCreated].
	Rule types.Rule

	// Amount and Payee are set for [KindTransfer]. Payee is the canonical
	// directory name when the spoken name matched one; otherwise the spoken
	// name verbatim.
	Amount float64
	Payee  string

	// Text is set for [KindCreateRule]: the transcript to persist.
	Text string
}

// rulePattern recognises conditional rule phrasing in a transcript.
var rulePattern = regexp.MustCompile(`(?i)\bif\b.+\bthen\b`)

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithBreakerConfig overrides the circuit breaker settings protecting the
// remote strategies. The Name field is set per breaker.
func WithBreakerConfig(cfg resilience.BreakerConfig) Option {
	return func(r *Resolver) {
		r.breakerCfg = cfg
	}
}

// Resolver applies the strategy chain to transcripts. Safe for concurrent
// use after construction.
type Resolver struct {
	rules   rules.Client
	nlu     nlu.Client
	payees  *payee.Directory
	metrics *observe.Metrics

	breakerCfg   resilience.BreakerConfig
	rulesBreaker *resilience.CircuitBreaker
	nluBreaker   *resilience.CircuitBreaker
	chain        *resilience.Chain[string, Resolution]
}

// New creates a [Resolver] over the given collaborators. directory may be
// nil, in which case spoken payee names are used verbatim.
func New(rulesClient rules.Client, nluClient nlu.Client, directory *payee.Directory, opts ...Option) *Resolver {
	r := &Resolver{
		rules:  rulesClient,
		nlu:    nluClient,
		payees: directory,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}

	rulesCfg := r.breakerCfg
	rulesCfg.Name = "rules"
	r.rulesBreaker = resilience.NewCircuitBreaker(rulesCfg)
	nluCfg := r.breakerCfg
	nluCfg.Name = "nlu"
	r.nluBreaker = resilience.NewCircuitBreaker(nluCfg)

	r.chain = resilience.NewChain(
		resilience.Step[string, Resolution]{Name: "rule-shortcut", Run: r.ruleShortcut},
		resilience.Step[string, Resolution]{Name: "classification", Run: r.classify},
		resilience.Step[string, Resolution]{Name: "heuristic", Run: r.heuristic},
		resilience.Step[string, Resolution]{Name: "literal", Run: r.literal},
	)
	return r
}

// Resolve interprets transcript. The returned error is non-nil only on
// context cancellation: every other failure mode degrades to
// [KindUnknown].
func (r *Resolver) Resolve(ctx context.Context, transcript string) (Resolution, error) {
	if strings.TrimSpace(transcript) == "" {
		return Resolution{Kind: KindUnknown}, nil
	}

	res, strategy, err := r.chain.Run(ctx, transcript)
	if err != nil {
		if ctx.Err() != nil {
			return Resolution{}, ctx.Err()
		}
		// The literal step absorbs failures, so an exhausted chain here
		// means something unexpected; degrade rather than crash the flow.
		slog.Error("intent chain exhausted unexpectedly", "error", err)
		return Resolution{Kind: KindUnknown}, nil
	}

	r.metrics.RecordIntentResolution(ctx, strategy)
	slog.Info("intent resolved",
		"kind", string(res.Kind), "strategy", strategy)
	return res, nil
}

// ruleShortcut asks the rules engine to interpret and persist in one call.
func (r *Resolver) ruleShortcut(ctx context.Context, transcript string) (Resolution, error) {
	var rule types.Rule
	err := r.rulesBreaker.Execute(func() error {
		var inner error
		rule, inner = r.rules.ParseAndCreate(ctx, transcript)
		return inner
	})
	if err != nil {
		r.metrics.RecordCollaboratorRequest(ctx, "rules", "parse_and_create", "error")
		if errors.Is(err, rules.ErrNotParsed) {
			// The engine understood the request but saw no rule in it.
			return Resolution{}, resilience.ErrNoMatch
		}
		return Resolution{}, fmt.Errorf("rule shortcut: %w", err)
	}
	r.metrics.RecordCollaboratorRequest(ctx, "rules", "parse_and_create", "ok")
	return Resolution{Kind: KindRuleCreated, Rule: rule}, nil
}

// classify asks the NLU service for an intent and slots.
func (r *Resolver) classify(ctx context.Context, transcript string) (Resolution, error) {
	var cls nlu.Classification
	err := r.nluBreaker.Execute(func() error {
		var inner error
		cls, inner = r.nlu.Parse(ctx, transcript)
		return inner
	})
	if err != nil {
		r.metrics.RecordCollaboratorRequest(ctx, "nlu", "parse", "error")
		return Resolution{}, fmt.Errorf("classification: %w", err)
	}
	r.metrics.RecordCollaboratorRequest(ctx, "nlu", "parse", "ok")

	switch {
	case cls.Intent == nlu.IntentTransfer && cls.Amount != nil:
		return Resolution{
			Kind:   KindTransfer,
			Amount: *cls.Amount,
			Payee:  r.normalizePayee(cls.Name),
		}, nil
	case cls.Intent == nlu.IntentBalance:
		return Resolution{Kind: KindBalance}, nil
	}
	return Resolution{}, resilience.ErrNoMatch
}

// heuristic recognises conditional rule phrasing locally.
func (r *Resolver) heuristic(_ context.Context, transcript string) (Resolution, error) {
	if rulePattern.MatchString(transcript) {
		return Resolution{Kind: KindCreateRule, Text: transcript}, nil
	}
	return Resolution{}, resilience.ErrNoMatch
}

// literal persists the raw transcript as a rule. This step never errors: a
// failed persist is the chain's terminal unknown.
func (r *Resolver) literal(ctx context.Context, transcript string) (Resolution, error) {
	rule, err := r.rules.Create(ctx, transcript)
	if err != nil {
		r.metrics.RecordCollaboratorRequest(ctx, "rules", "create", "error")
		slog.Warn("literal rule persist failed", "error", err)
		return Resolution{Kind: KindUnknown}, nil
	}
	r.metrics.RecordCollaboratorRequest(ctx, "rules", "create", "ok")
	return Resolution{Kind: KindRuleCreated, Rule: rule}, nil
}

// normalizePayee maps a spoken name onto the payee directory when possible.
func (r *Resolver) normalizePayee(spoken string) string {
	if r.payees == nil || spoken == "" {
		return spoken
	}
	canonical, score, matched := r.payees.Match(spoken)
	if matched && canonical != spoken {
		slog.Info("payee normalised",
			"spoken", spoken, "canonical", canonical, "score", score)
	}
	return canonical
}
