// Package direct implements the HTTP transport: authenticated calls
// straight to the Amadeus API, bypassing the MCP server.
package direct

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/farebridge/internal/tracing"
	"github.com/harun/farebridge/pkg/envelope"
	"github.com/harun/farebridge/pkg/operation"
	"github.com/harun/farebridge/pkg/token"
)

const (
	testBaseURL = "https://test.api.amadeus.com"
	prodBaseURL = "https://api.amadeus.com"
)

// BaseURL maps a configured host name to the API base URL
func BaseURL(host string) string {
	if host == "prod" {
		return prodBaseURL
	}
	return testBaseURL
}

// TokenURL returns the OAuth token endpoint for a base URL
func TokenURL(baseURL string) string {
	return baseURL + "/v1/security/oauth2/token"
}

// Client calls the Amadeus API directly over HTTPS. Stateless per call
// apart from the shared credential cache; safe for concurrent use. Every
// failure path returns a failed envelope, never a Go error.
type Client struct {
	baseURL    string
	tokens     *token.Cache
	httpClient *http.Client
}

// NewClient creates a direct API client against the given base URL
func NewClient(baseURL string, tokens *token.Cache) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Perform dispatches one operation by name. Arguments are normalized and
// validated before any network activity.
func (c *Client) Perform(ctx context.Context, op string, args map[string]interface{}) envelope.Envelope {
	args = operation.Normalize(op, args)
	if err := operation.Validate(op, args); err != nil {
		return envelope.Fail(envelope.KindInvalidArgument, err.Error())
	}

	switch op {
	case operation.Autocomplete:
		return c.autocomplete(ctx, args)
	case operation.Search:
		return c.search(ctx, args)
	case operation.Price:
		return c.price(ctx, args)
	default:
		return envelope.Failf(envelope.KindInvalidArgument, "unknown operation: %s", op)
	}
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

// doJSON sends one request with a bearer token attached and decodes the
// response body. HTTP and transport failures come back as failed envelopes;
// a nil second value means the envelope carries the failure.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}) (map[string]interface{}, *envelope.Envelope) {
	cred, err := c.tokens.Credential(ctx)
	if err != nil {
		env := envelope.Fail(envelope.KindAuthError, err.Error())
		return nil, &env
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			env := envelope.Failf(envelope.KindInvalidArgument, "failed to encode request body: %v", err)
			return nil, &env
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		env := envelope.Failf(envelope.KindTransportUnavailable, "failed to build request: %v", err)
		return nil, &env
	}

	req.Header.Set("Authorization", cred.Kind+" "+cred.Value)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classifyTransportError(err)
		log.Warn().Err(err).
			Str("request_id", tracing.GetRequestID(ctx)).
			Str("operation", tracing.GetOperation(ctx)).
			Str("path", path).
			Str("kind", string(kind)).
			Msg("Direct API call failed")
		env := envelope.Fail(kind, err.Error())
		return nil, &env
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		env := envelope.Failf(envelope.KindRemoteRejected, "HTTP %d: %s", resp.StatusCode, truncate(string(data), 2048))
		return nil, &env
	}

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		env := envelope.Failf(envelope.KindRemoteRejected, "failed to decode response: %v", err)
		return nil, &env
	}

	return decoded, nil
}

func classifyTransportError(err error) envelope.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return envelope.KindTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return envelope.KindTimeout
	}
	return envelope.KindTransportUnavailable
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes total)", s[:max], len(s))
}
