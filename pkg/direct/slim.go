package direct

// Response slimming: the API returns deeply nested documents; agents only
// need a handful of fields per item. Search offers keep the untrimmed
// upstream offer under "full" so the pricing call can resubmit the exact
// representation the API handed out.

func slimLocations(raw map[string]interface{}) map[string]interface{} {
	items := make([]map[string]interface{}, 0)
	for _, entry := range listField(raw, "data") {
		item, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		items = append(items, map[string]interface{}{
			"name":           item["name"],
			"iata":           item["iataCode"],
			"type":           item["subType"],
			"timeZoneOffset": item["timeZoneOffset"],
			"geo":            item["geoCode"],
			"address":        item["address"],
		})
	}

	return map[string]interface{}{
		"count": len(items),
		"items": items,
	}
}

func slimOffers(raw map[string]interface{}) map[string]interface{} {
	offers := make([]map[string]interface{}, 0)
	for _, entry := range listField(raw, "data") {
		offer, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		price, _ := offer["price"].(map[string]interface{})

		itineraries := make([]map[string]interface{}, 0)
		for _, itinEntry := range listField(offer, "itineraries") {
			itin, ok := itinEntry.(map[string]interface{})
			if !ok {
				continue
			}

			segments := make([]map[string]interface{}, 0)
			for _, segEntry := range listField(itin, "segments") {
				seg, ok := segEntry.(map[string]interface{})
				if !ok {
					continue
				}
				dep, _ := seg["departure"].(map[string]interface{})
				arr, _ := seg["arrival"].(map[string]interface{})
				aircraft, _ := seg["aircraft"].(map[string]interface{})
				operating, _ := seg["operating"].(map[string]interface{})
				segments = append(segments, map[string]interface{}{
					"carrierCode": seg["carrierCode"],
					"number":      seg["number"],
					"from":        dep["iataCode"],
					"to":          arr["iataCode"],
					"depTime":     dep["at"],
					"arrTime":     arr["at"],
					"duration":    seg["duration"],
					"aircraft":    aircraft["code"],
					"operating":   operating["carrierCode"],
				})
			}

			itineraries = append(itineraries, map[string]interface{}{
				"duration": itin["duration"],
				"segments": segments,
			})
		}

		offers = append(offers, map[string]interface{}{
			"id":            offer["id"],
			"oneWay":        offer["oneWay"],
			"oneAdultTotal": price["grandTotal"],
			"currency":      price["currency"],
			"itineraries":   itineraries,
			// Keep the full offer for the pricing step
			"full": offer,
		})
	}

	result := map[string]interface{}{
		"count":  len(offers),
		"offers": offers,
	}
	if meta, ok := raw["meta"].(map[string]interface{}); ok {
		result["meta"] = meta
	}
	return result
}

func listField(m map[string]interface{}, key string) []interface{} {
	list, _ := m[key].([]interface{})
	return list
}
