// Package failover drives a complete conversational turn: append the user
// message, await the active response service, and always complete the
// exchange with a bot message, error or not. When a remote service fails it
// offers (never forces) a switch back to the local fallback.
package failover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cexll/chatkit-go/pkg/chat"
	"github.com/cexll/chatkit-go/pkg/respond"
	"github.com/cexll/chatkit-go/pkg/telemetry"
)

var (
	// ErrInFlight indicates a previous submission has not completed yet.
	// Nothing is appended to the log.
	ErrInFlight = errors.New("failover: a submission is already in flight")
	// ErrEmptyMessage indicates the submitted text was empty after trimming.
	// Nothing is appended to the log.
	ErrEmptyMessage = errors.New("failover: message text is empty")
)

// Prompter asks, out of band, whether the active service should be switched
// to the fallback after a failure. Returning false (or not answering before
// ctx is done) declines the switch.
type Prompter interface {
	Offer(ctx context.Context, serviceName string, cause error) bool
}

// PromptFunc adapts a function to the Prompter interface.
type PromptFunc func(ctx context.Context, serviceName string, cause error) bool

// Offer calls the wrapped function.
func (f PromptFunc) Offer(ctx context.Context, serviceName string, cause error) bool {
	return f(ctx, serviceName, cause)
}

// Turn reports the outcome of one user submission.
type Turn struct {
	User chat.Message
	Bot  chat.Message
	// Failed is true when Bot carries an error description instead of a reply.
	Failed bool
	// SwitchedTo names the service activated by an accepted failover offer.
	SwitchedTo string
}

// Controller routes user turns through the active response service.
type Controller struct {
	log        *chat.Log
	registry   *respond.Registry
	fallbackID string
	prompt     Prompter
	tel        *telemetry.Manager
	logger     zerolog.Logger

	inFlight atomic.Bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithPrompter installs the failover offer mechanism. Without one, failures
// never trigger an offer.
func WithPrompter(p Prompter) Option {
	return func(c *Controller) { c.prompt = p }
}

// WithTelemetry wraps responder calls in spans.
func WithTelemetry(tel *telemetry.Manager) Option {
	return func(c *Controller) { c.tel = tel }
}

// WithLogger routes failover decisions to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController binds a log and a registry. fallbackID names the service
// offered as a replacement when a non-fallback service fails; it is typically
// the local variant.
func NewController(log *chat.Log, registry *respond.Registry, fallbackID string, opts ...Option) *Controller {
	c := &Controller{
		log:        log,
		registry:   registry,
		fallbackID: fallbackID,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send submits one user turn. It appends the user message, awaits the active
// service, and appends exactly one bot message: the reply on success, an
// error description on failure. Responder errors never propagate past this
// boundary.
//
// Only one Send may be outstanding per controller; concurrent submissions
// fail with ErrInFlight before touching the log.
func (c *Controller) Send(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return Turn{}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	turn := Turn{User: c.log.Append(text, true)}

	svc := c.registry.Active()
	activeID := c.registry.ActiveID()

	spanCtx, span := c.tel.StartSpan(ctx, "chat.respond", trace.WithAttributes(
		attribute.String("service.id", activeID),
		attribute.String("service.name", svc.Name()),
	))
	reply, err := svc.Respond(spanCtx, text)
	telemetry.EndSpan(span, err)

	if err != nil {
		c.logger.Warn().Err(err).Str("service", activeID).Msg("failover: responder failed")
		turn.Failed = true
		turn.Bot = c.log.Append(fmt.Sprintf("Sorry, I encountered an error: %s", err.Error()), false)
		if switched := c.offerFallback(ctx, activeID, svc.Name(), err); switched {
			turn.SwitchedTo = c.fallbackID
		}
		return turn, nil
	}

	turn.Bot = c.log.Append(reply, false)
	return turn, nil
}

// offerFallback asks the prompter whether to revert to the fallback service.
// Declining, lacking a prompter, or already running the fallback leaves the
// active service unchanged.
func (c *Controller) offerFallback(ctx context.Context, activeID, serviceName string, cause error) bool {
	if c.prompt == nil || c.fallbackID == "" || activeID == c.fallbackID {
		return false
	}
	if _, ok := c.registry.Get(c.fallbackID); !ok {
		return false
	}
	if !c.prompt.Offer(ctx, serviceName, cause) {
		return false
	}
	if _, err := c.registry.Switch(c.fallbackID); err != nil {
		c.logger.Error().Err(err).Str("fallback", c.fallbackID).Msg("failover: switch failed")
		return false
	}
	c.logger.Info().Str("from", activeID).Str("to", c.fallbackID).Msg("failover: switched service")
	return true
}
