package direct

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/farebridge/pkg/envelope"
	"github.com/harun/farebridge/pkg/token"
)

// amadeusStub fakes the token endpoint and the three resource endpoints
type amadeusStub struct {
	server        *httptest.Server
	resourceCalls int64

	locationsStatus int
	locationsBody   string
	offersStatus    int
	offersBody      string
	pricingStatus   int
	pricingBody     string

	lastSearchBody map[string]interface{}
	lastAuth       string
	lastQuery      string
}

func newAmadeusStub(t *testing.T) *amadeusStub {
	t.Helper()

	stub := &amadeusStub{
		locationsStatus: http.StatusOK,
		locationsBody:   `{"data":[]}`,
		offersStatus:    http.StatusOK,
		offersBody:      `{"data":[]}`,
		pricingStatus:   http.StatusOK,
		pricingBody:     `{"data":{}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"stub-token","token_type":"Bearer","expires_in":1799}`))
	})
	mux.HandleFunc("/v1/reference-data/locations", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&stub.resourceCalls, 1)
		stub.lastAuth = r.Header.Get("Authorization")
		stub.lastQuery = r.URL.RawQuery
		w.WriteHeader(stub.locationsStatus)
		_, _ = w.Write([]byte(stub.locationsBody))
	})
	mux.HandleFunc("/v2/shopping/flight-offers", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&stub.resourceCalls, 1)
		stub.lastAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&stub.lastSearchBody)
		w.WriteHeader(stub.offersStatus)
		_, _ = w.Write([]byte(stub.offersBody))
	})
	mux.HandleFunc("/v1/shopping/flight-offers/pricing", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&stub.resourceCalls, 1)
		w.WriteHeader(stub.pricingStatus)
		_, _ = w.Write([]byte(stub.pricingBody))
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *amadeusStub) client() *Client {
	tokens := token.NewCache("id", "secret", TokenURL(s.server.URL))
	return NewClient(s.server.URL, tokens)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://test.api.amadeus.com", BaseURL("test"))
	assert.Equal(t, "https://api.amadeus.com", BaseURL("prod"))
	assert.Equal(t, "https://test.api.amadeus.com", BaseURL(""))
}

func TestInvalidArgumentsSkipNetwork(t *testing.T) {
	stub := newAmadeusStub(t)
	client := stub.client()

	env := client.SearchFlights(context.Background(), map[string]interface{}{
		"origin": "NEWYORK",
	})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindInvalidArgument, env.ErrorKind)
	assert.EqualValues(t, 0, atomic.LoadInt64(&stub.resourceCalls), "validation failures must not reach the network")
}

func TestAutocomplete(t *testing.T) {
	stub := newAmadeusStub(t)
	stub.locationsBody = `{"data":[
		{"name":"JOHN F KENNEDY INTL","iataCode":"JFK","subType":"AIRPORT","timeZoneOffset":"-05:00",
		 "geoCode":{"latitude":40.63,"longitude":-73.77},"address":{"cityName":"NEW YORK"}}
	]}`
	client := stub.client()

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{
		"query": "kennedy",
		"limit": 3,
	})

	require.True(t, env.Success, "error: %s", env.Error)
	assert.Equal(t, "Bearer stub-token", stub.lastAuth)
	assert.Contains(t, stub.lastQuery, "keyword=kennedy")
	assert.Contains(t, stub.lastQuery, "3")

	assert.EqualValues(t, 1, env.Payload["count"])
	items, ok := env.Payload["items"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "JFK", items[0]["iata"])
	assert.Equal(t, "AIRPORT", items[0]["type"])
}

func TestSearchFlights(t *testing.T) {
	stub := newAmadeusStub(t)
	stub.offersBody = `{"data":[
		{"id":"1","oneWay":false,
		 "price":{"grandTotal":"423.10","currency":"USD"},
		 "itineraries":[{"duration":"PT6H30M","segments":[
			{"carrierCode":"DL","number":"401",
			 "departure":{"iataCode":"JFK","at":"2026-09-15T08:00:00"},
			 "arrival":{"iataCode":"SFO","at":"2026-09-15T11:30:00"},
			 "duration":"PT6H30M","aircraft":{"code":"321"},
			 "operating":{"carrierCode":"DL"}}]}]}
	],"meta":{"count":1}}`
	client := stub.client()

	env := client.SearchFlights(context.Background(), map[string]interface{}{
		"origin":         "jfk",
		"destination":    "sfo",
		"departure_date": "2026-09-15",
		"return_date":    "2026-09-22",
		"adults":         2,
		"currency":       "USD",
		"non_stop":       true,
	})

	require.True(t, env.Success, "error: %s", env.Error)

	// Request body carries the round trip and traveler count
	ods, ok := stub.lastSearchBody["originDestinations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, ods, 2, "round trip must produce two origin-destinations")
	travelers, ok := stub.lastSearchBody["travelers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, travelers, 2)
	assert.Equal(t, "USD", stub.lastSearchBody["currencyCode"])

	criteria, ok := stub.lastSearchBody["searchCriteria"].(map[string]interface{})
	require.True(t, ok)
	filters := criteria["flightFilters"].(map[string]interface{})
	connection := filters["connectionRestriction"].(map[string]interface{})
	assert.EqualValues(t, 0, connection["maxNumberOfConnections"])

	// Response is slimmed, with the untouched offer preserved
	assert.EqualValues(t, 1, env.Payload["count"])
	offers := env.Payload["offers"].([]map[string]interface{})
	require.Len(t, offers, 1)
	assert.Equal(t, "423.10", offers[0]["oneAdultTotal"])
	assert.Equal(t, "USD", offers[0]["currency"])

	full, ok := offers[0]["full"].(map[string]interface{})
	require.True(t, ok, "full upstream offer must be preserved for pricing")
	assert.Equal(t, "1", full["id"])

	itineraries := offers[0]["itineraries"].([]map[string]interface{})
	require.Len(t, itineraries, 1)
	segments := itineraries[0]["segments"].([]map[string]interface{})
	require.Len(t, segments, 1)
	assert.Equal(t, "JFK", segments[0]["from"])
	assert.Equal(t, "SFO", segments[0]["to"])
}

func TestPriceOffer(t *testing.T) {
	stub := newAmadeusStub(t)
	stub.pricingBody = `{"data":{"type":"flight-offers-pricing","flightOffers":[{"id":"1","price":{"grandTotal":"431.00"}}]}}`
	client := stub.client()

	env := client.PriceOffer(context.Background(), map[string]interface{}{
		"flight_offer": map[string]interface{}{"id": "1", "type": "flight-offer"},
	})

	require.True(t, env.Success, "error: %s", env.Error)
	result, ok := env.Payload["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, result, "data")
}

func TestRemoteRejection(t *testing.T) {
	stub := newAmadeusStub(t)
	stub.locationsStatus = http.StatusBadRequest
	stub.locationsBody = `{"errors":[{"code":477,"title":"INVALID FORMAT"}]}`
	client := stub.client()

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "x"})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindRemoteRejected, env.ErrorKind)
	assert.Contains(t, env.Error, "HTTP 400")
	assert.Contains(t, env.Error, "INVALID FORMAT")
}

func TestAuthFailure(t *testing.T) {
	// Token endpoint rejects, resource endpoints never see the call
	mux := http.NewServeMux()
	var resourceCalls int64
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&resourceCalls, 1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := token.NewCache("id", "wrong", TokenURL(server.URL))
	client := NewClient(server.URL, tokens)

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "x"})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindAuthError, env.ErrorKind)
	assert.EqualValues(t, 0, atomic.LoadInt64(&resourceCalls))
}

func TestTransportUnavailable(t *testing.T) {
	// Working token endpoint, dead resource host
	tokenStub := newAmadeusStub(t)
	tokens := token.NewCache("id", "secret", TokenURL(tokenStub.server.URL))
	client := NewClient("http://127.0.0.1:1", tokens)

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "x"})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindTransportUnavailable, env.ErrorKind)
}

func TestCallTimeout(t *testing.T) {
	stub := newAmadeusStub(t)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer slow.Close()

	tokens := token.NewCache("id", "secret", TokenURL(stub.server.URL))
	client := NewClient(slow.URL, tokens)
	client.httpClient.Timeout = 50 * time.Millisecond

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "x"})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindTimeout, env.ErrorKind)
}

func TestPerformUnknownOperation(t *testing.T) {
	stub := newAmadeusStub(t)
	client := stub.client()

	env := client.Perform(context.Background(), "teleport", map[string]interface{}{})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindInvalidArgument, env.ErrorKind)
	assert.EqualValues(t, 0, atomic.LoadInt64(&stub.resourceCalls))
}

func TestEnvelopeNeverPanics(t *testing.T) {
	// Malformed success body must come back as a failed envelope
	stub := newAmadeusStub(t)
	stub.locationsBody = `not json at all`
	client := stub.client()

	env := client.AutocompleteLocations(context.Background(), map[string]interface{}{"query": "x"})

	assert.False(t, env.Success)
	assert.Equal(t, envelope.KindRemoteRejected, env.ErrorKind)
}
