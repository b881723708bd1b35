// Package gateway composes the two transports behind one facade: every
// logical operation goes out over MCP or direct HTTP and comes back as the
// same envelope, with at most one silent fallback per call.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/farebridge/internal/tracing"
	"github.com/harun/farebridge/pkg/envelope"
	"github.com/harun/farebridge/pkg/mcp"
	"github.com/harun/farebridge/pkg/operation"
)

// Preference selects which transport serves a call
type Preference string

const (
	// ProtocolFirst tries MCP and falls back to direct on any failure.
	// The default mode.
	ProtocolFirst Preference = "mcp_first"
	// ProtocolOnly pins the call to MCP; no fallback
	ProtocolOnly Preference = "mcp_only"
	// DirectOnly pins the call to direct HTTP; no fallback
	DirectOnly Preference = "direct_only"
)

// ServiceClient is the capability both transports implement
type ServiceClient interface {
	Perform(ctx context.Context, op string, args map[string]interface{}) envelope.Envelope
}

// ProtocolClient is the MCP-side surface the gateway depends on
type ProtocolClient interface {
	ServiceClient
	Connected() bool
	ListTools(ctx context.Context) envelope.Envelope
	ListResources(ctx context.Context) envelope.Envelope
}

// Recorder receives call outcomes for metrics collection. All methods must
// be safe for concurrent use.
type Recorder interface {
	RecordCall(operation, transport, status string, duration time.Duration)
	RecordCallError(operation, errorKind string)
	RecordFallback(operation, errorKind string)
}

// Defaults are filled into search arguments the caller left unset
type Defaults struct {
	Currency   string
	MaxResults int
}

// Gateway is the dual-transport facade. It holds no per-call state beyond
// references to its two clients and is safe for concurrent use.
type Gateway struct {
	direct   ServiceClient
	defaults Defaults
	recorder Recorder

	mcpCommand  []string
	callTimeout time.Duration

	mu       sync.Mutex
	protocol ProtocolClient
	session  *mcp.Session
}

// Option configures a Gateway
type Option func(*Gateway)

// WithProtocolClient injects an MCP-side client directly
func WithProtocolClient(p ProtocolClient) Option {
	return func(g *Gateway) { g.protocol = p }
}

// WithMCPCommand sets the server command ConnectMCP will spawn
func WithMCPCommand(command []string) Option {
	return func(g *Gateway) { g.mcpCommand = command }
}

// WithDefaults sets the search defaults applied to unset arguments
func WithDefaults(d Defaults) Option {
	return func(g *Gateway) { g.defaults = d }
}

// WithCallTimeout sets the per-call timeout for MCP sessions the gateway
// spawns itself
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.callTimeout = d }
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// New creates a gateway over the given direct client
func New(direct ServiceClient, opts ...Option) *Gateway {
	g := &Gateway{
		direct:      direct,
		callTimeout: mcp.DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ConnectMCP spawns the configured MCP server and opens a session. A
// previously connected session is closed first.
func (g *Gateway) ConnectMCP(ctx context.Context) error {
	if len(g.mcpCommand) == 0 {
		return fmt.Errorf("no mcp server command configured")
	}

	g.DisconnectMCP()

	session := mcp.NewSession(g.mcpCommand, mcp.WithCallTimeout(g.callTimeout))
	if err := session.Open(ctx); err != nil {
		return fmt.Errorf("failed to connect mcp server: %w", err)
	}

	g.mu.Lock()
	g.session = session
	g.protocol = mcp.NewClient(session)
	g.mu.Unlock()

	return nil
}

// DisconnectMCP closes the gateway-owned session, if any
func (g *Gateway) DisconnectMCP() {
	g.mu.Lock()
	session := g.session
	g.session = nil
	if session != nil {
		g.protocol = nil
	}
	g.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
}

// MCPConnected reports whether the protocol transport is usable
func (g *Gateway) MCPConnected() bool {
	return g.protocolClient() != nil && g.protocolClient().Connected()
}

func (g *Gateway) protocolClient() ProtocolClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.protocol
}

// Perform runs one operation under the given transport preference. Invalid
// arguments fail immediately with no transport activity; under
// ProtocolFirst a failing MCP attempt triggers exactly one direct attempt.
func (g *Gateway) Perform(ctx context.Context, op string, args map[string]interface{}, pref Preference) envelope.Envelope {
	ctx, requestID := tracing.EnsureRequestID(ctx)
	ctx = tracing.WithOperation(ctx, op)

	if pref == "" {
		pref = ProtocolFirst
	}

	args = g.applyDefaults(op, args)

	normalized := operation.Normalize(op, args)
	if err := operation.Validate(op, normalized); err != nil {
		log.Debug().Str("request_id", requestID).Str("op", op).Err(err).Msg("Rejected invalid arguments")
		if g.recorder != nil {
			g.recorder.RecordCallError(op, string(envelope.KindInvalidArgument))
		}
		return envelope.Fail(envelope.KindInvalidArgument, err.Error()).WithRequestID(requestID)
	}

	started := time.Now()
	env := g.dispatch(ctx, op, normalized, pref, requestID).WithRequestID(requestID)
	g.record(op, env, time.Since(started))
	return env
}

func (g *Gateway) record(op string, env envelope.Envelope, elapsed time.Duration) {
	if g.recorder == nil {
		return
	}
	status := "success"
	if !env.Success {
		status = "failure"
		g.recorder.RecordCallError(op, string(env.ErrorKind))
	}
	g.recorder.RecordCall(op, string(env.Transport), status, elapsed)
}

func (g *Gateway) dispatch(ctx context.Context, op string, args map[string]interface{}, pref Preference, requestID string) envelope.Envelope {
	protocol := g.protocolClient()

	switch pref {
	case DirectOnly:
		return g.direct.Perform(ctx, op, args).Tagged(envelope.TransportDirect)

	case ProtocolOnly:
		if protocol == nil || !protocol.Connected() {
			return envelope.Fail(envelope.KindNotConnected, "mcp transport not connected").Tagged(envelope.TransportMCP)
		}
		return protocol.Perform(ctx, op, args).Tagged(envelope.TransportMCP)

	default: // ProtocolFirst
		if protocol == nil || !protocol.Connected() {
			log.Debug().Str("request_id", requestID).Str("op", op).Msg("MCP not connected, using direct transport")
			return g.direct.Perform(ctx, op, args).Tagged(envelope.TransportDirect)
		}

		env := protocol.Perform(ctx, op, args)
		if env.Success {
			return env.Tagged(envelope.TransportMCP)
		}

		// Invalid arguments and rejected credentials are transport
		// independent; retrying on the other transport would only repeat
		// them
		if !env.ErrorKind.Retriable() {
			return env.Tagged(envelope.TransportMCP)
		}

		log.Warn().
			Str("request_id", requestID).
			Str("op", op).
			Str("error_kind", string(env.ErrorKind)).
			Str("error", env.Error).
			Msg("MCP call failed, falling back to direct transport")

		if g.recorder != nil {
			g.recorder.RecordFallback(op, string(env.ErrorKind))
		}

		return g.direct.Perform(ctx, op, args).Tagged(envelope.TransportDirect)
	}
}

// AutocompleteLocations matches cities and airports by free text
func (g *Gateway) AutocompleteLocations(ctx context.Context, args map[string]interface{}, pref Preference) envelope.Envelope {
	return g.Perform(ctx, operation.Autocomplete, args, pref)
}

// SearchFlights searches flight offers
func (g *Gateway) SearchFlights(ctx context.Context, args map[string]interface{}, pref Preference) envelope.Envelope {
	return g.Perform(ctx, operation.Search, args, pref)
}

// PriceOffer prices a flight offer returned by SearchFlights
func (g *Gateway) PriceOffer(ctx context.Context, args map[string]interface{}, pref Preference) envelope.Envelope {
	return g.Perform(ctx, operation.Price, args, pref)
}

// ListMCPTools returns the MCP server's tool catalog
func (g *Gateway) ListMCPTools(ctx context.Context) envelope.Envelope {
	protocol := g.protocolClient()
	if protocol == nil || !protocol.Connected() {
		return envelope.Fail(envelope.KindNotConnected, "mcp transport not connected").Tagged(envelope.TransportMCP)
	}
	return protocol.ListTools(ctx).Tagged(envelope.TransportMCP)
}

// ListMCPResources returns the MCP server's resource catalog
func (g *Gateway) ListMCPResources(ctx context.Context) envelope.Envelope {
	protocol := g.protocolClient()
	if protocol == nil || !protocol.Connected() {
		return envelope.Fail(envelope.KindNotConnected, "mcp transport not connected").Tagged(envelope.TransportMCP)
	}
	return protocol.ListResources(ctx).Tagged(envelope.TransportMCP)
}

// applyDefaults fills configured search defaults into unset arguments
func (g *Gateway) applyDefaults(op string, args map[string]interface{}) map[string]interface{} {
	if op != operation.Search {
		return args
	}

	out := make(map[string]interface{}, len(args)+2)
	for k, v := range args {
		out[k] = v
	}
	if _, ok := out["currency"]; !ok && g.defaults.Currency != "" {
		out["currency"] = g.defaults.Currency
	}
	if _, ok := out["max_results"]; !ok && g.defaults.MaxResults > 0 {
		out["max_results"] = g.defaults.MaxResults
	}
	return out
}
