package mcp

import (
	"context"

	"github.com/harun/farebridge/pkg/envelope"
	"github.com/harun/farebridge/pkg/operation"
)

// Client is the typed layer over a Session, exposing the same logical
// operations as the direct transport with identical argument validation, so
// a bad argument fails the same way on either transport.
type Client struct {
	session *Session
}

// NewClient wraps a session. The session may be opened before or after.
func NewClient(session *Session) *Client {
	return &Client{session: session}
}

// Session returns the underlying protocol session
func (c *Client) Session() *Session {
	return c.session
}

// Connected reports whether the underlying session is Ready
func (c *Client) Connected() bool {
	return c.session != nil && c.session.Ready()
}

// Perform dispatches one operation by name over the protocol transport.
// Arguments are normalized and validated before anything is written to the
// server.
func (c *Client) Perform(ctx context.Context, op string, args map[string]interface{}) envelope.Envelope {
	args = operation.Normalize(op, args)
	if err := operation.Validate(op, args); err != nil {
		return envelope.Fail(envelope.KindInvalidArgument, err.Error())
	}

	if c.session == nil {
		return envelope.Fail(envelope.KindNotConnected, "no mcp session configured")
	}

	return c.session.Invoke(ctx, op, args)
}

// AutocompleteLocations matches cities and airports by free text
func (c *Client) AutocompleteLocations(ctx context.Context, args map[string]interface{}) envelope.Envelope {
	return c.Perform(ctx, operation.Autocomplete, args)
}

// SearchFlights searches flight offers
func (c *Client) SearchFlights(ctx context.Context, args map[string]interface{}) envelope.Envelope {
	return c.Perform(ctx, operation.Search, args)
}

// PriceOffer prices a flight offer previously returned by SearchFlights
func (c *Client) PriceOffer(ctx context.Context, args map[string]interface{}) envelope.Envelope {
	return c.Perform(ctx, operation.Price, args)
}

// ReadResource reads a named resource from the server
func (c *Client) ReadResource(ctx context.Context, uri string) envelope.Envelope {
	if c.session == nil {
		return envelope.Fail(envelope.KindNotConnected, "no mcp session configured")
	}
	return c.session.ReadResource(ctx, uri)
}

// ListTools fetches the server's tool catalog
func (c *Client) ListTools(ctx context.Context) envelope.Envelope {
	if c.session == nil {
		return envelope.Fail(envelope.KindNotConnected, "no mcp session configured")
	}
	return c.session.ListTools(ctx)
}

// ListResources fetches the server's resource catalog
func (c *Client) ListResources(ctx context.Context) envelope.Envelope {
	if c.session == nil {
		return envelope.Fail(envelope.KindNotConnected, "no mcp session configured")
	}
	return c.session.ListResources(ctx)
}
