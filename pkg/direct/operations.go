package direct

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/harun/farebridge/pkg/envelope"
)

func (c *Client) autocomplete(ctx context.Context, args map[string]interface{}) envelope.Envelope {
	query := url.Values{}
	query.Set("keyword", strArg(args, "query"))
	query.Set("page[limit]", fmt.Sprintf("%d", intArg(args, "limit", 5)))
	if subTypes := strSliceArg(args, "sub_types"); len(subTypes) > 0 {
		query.Set("subType", strings.Join(subTypes, ","))
	}

	raw, failed := c.doJSON(ctx, http.MethodGet, "/v1/reference-data/locations", query, nil)
	if failed != nil {
		return *failed
	}

	return envelope.OK(slimLocations(raw))
}

func (c *Client) search(ctx context.Context, args map[string]interface{}) envelope.Envelope {
	origin := strArg(args, "origin")
	destination := strArg(args, "destination")

	originDestinations := []map[string]interface{}{{
		"id":                      "1",
		"originLocationCode":      origin,
		"destinationLocationCode": destination,
		"departureDateTimeRange":  map[string]interface{}{"date": strArg(args, "departure_date")},
	}}
	if returnDate := strArg(args, "return_date"); returnDate != "" {
		originDestinations = append(originDestinations, map[string]interface{}{
			"id":                      "2",
			"originLocationCode":      destination,
			"destinationLocationCode": origin,
			"departureDateTimeRange":  map[string]interface{}{"date": returnDate},
		})
	}

	adults := intArg(args, "adults", 1)
	travelers := make([]map[string]interface{}, 0, adults)
	for i := 0; i < adults; i++ {
		travelers = append(travelers, map[string]interface{}{
			"id":           fmt.Sprintf("%d", i+1),
			"travelerType": "ADULT",
		})
	}

	odIDs := make([]string, 0, len(originDestinations))
	for i := range originDestinations {
		odIDs = append(odIDs, fmt.Sprintf("%d", i+1))
	}

	searchCriteria := map[string]interface{}{
		"maxFlightOffers": intArg(args, "max_results", 10),
		"flightFilters": map[string]interface{}{
			"cabinRestrictions": []map[string]interface{}{{
				"cabin":                strArg(args, "cabin"),
				"coverage":             "MOST_SEGMENTS",
				"originDestinationIds": odIDs,
			}},
		},
	}

	if nonStop, ok := args["non_stop"].(bool); ok {
		maxConnections := 2
		if nonStop {
			maxConnections = 0
		}
		searchCriteria["flightFilters"].(map[string]interface{})["connectionRestriction"] = map[string]interface{}{
			"maxNumberOfConnections": maxConnections,
		}
	}

	if maxPrice := intArg(args, "max_price", 0); maxPrice > 0 {
		searchCriteria["pricingOptions"] = map[string]interface{}{"includedCheckedBagsOnly": false}
		searchCriteria["maxPrice"] = maxPrice
	}

	payload := map[string]interface{}{
		"originDestinations": originDestinations,
		"travelers":          travelers,
		"sources":            []string{"GDS"},
		"searchCriteria":     searchCriteria,
	}
	if currency := strArg(args, "currency"); currency != "" {
		payload["currencyCode"] = currency
	}

	raw, failed := c.doJSON(ctx, http.MethodPost, "/v2/shopping/flight-offers", nil, payload)
	if failed != nil {
		return *failed
	}

	return envelope.OK(slimOffers(raw))
}

func (c *Client) price(ctx context.Context, args map[string]interface{}) envelope.Envelope {
	offer, _ := args["flight_offer"].(map[string]interface{})

	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type":         "flight-offers-pricing",
			"flightOffers": []interface{}{offer},
		},
	}

	raw, failed := c.doJSON(ctx, http.MethodPost, "/v1/shopping/flight-offers/pricing", nil, body)
	if failed != nil {
		return *failed
	}

	return envelope.OK(map[string]interface{}{"result": raw})
}

// argument accessors tolerant of JSON-decoded numerics

func strArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func strSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
