package operation

// JSON Schemas for the gateway's service operations. Both transports
// validate against the same documents so a bad argument fails identically
// no matter which transport would have served the call.

const autocompleteSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {
      "type": "string",
      "minLength": 1,
      "description": "Free text to match city/airport"
    },
    "limit": {
      "type": "integer",
      "minimum": 1,
      "maximum": 20
    },
    "sub_types": {
      "type": "array",
      "items": {
        "type": "string",
        "enum": ["CITY", "AIRPORT"]
      }
    }
  }
}`

const searchSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["origin", "destination", "departure_date"],
  "properties": {
    "origin": {
      "type": "string",
      "pattern": "^[A-Za-z]{3}$",
      "description": "IATA code, e.g. JFK"
    },
    "destination": {
      "type": "string",
      "pattern": "^[A-Za-z]{3}$",
      "description": "IATA code, e.g. SFO"
    },
    "departure_date": {
      "type": "string",
      "pattern": "^\\d{4}-\\d{2}-\\d{2}$",
      "description": "YYYY-MM-DD"
    },
    "return_date": {
      "type": "string",
      "pattern": "^\\d{4}-\\d{2}-\\d{2}$",
      "description": "YYYY-MM-DD"
    },
    "adults": {
      "type": "integer",
      "minimum": 1,
      "maximum": 9
    },
    "cabin": {
      "type": "string",
      "enum": ["ECONOMY", "PREMIUM_ECONOMY", "BUSINESS", "FIRST"]
    },
    "currency": {
      "type": "string",
      "pattern": "^[A-Za-z]{3}$"
    },
    "non_stop": {
      "type": "boolean"
    },
    "max_price": {
      "type": "integer",
      "minimum": 1
    },
    "max_results": {
      "type": "integer",
      "minimum": 1,
      "maximum": 250
    }
  }
}`

const priceSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["flight_offer"],
  "properties": {
    "flight_offer": {
      "type": "object",
      "description": "Full flight offer as returned by search_flights"
    },
    "currency": {
      "type": "string",
      "pattern": "^[A-Za-z]{3}$"
    }
  }
}`
