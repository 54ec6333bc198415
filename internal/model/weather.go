package model

import "encoding/json"

// CityWeather holds the raw provider payloads fetched for one city.
// Only the sub-fields the intent asked for are populated.
type CityWeather struct {
	Current             json.RawMessage `json:"current,omitempty"`
	Forecast            json.RawMessage `json:"forecast,omitempty"`
	SpecificTimeRequest string          `json:"specific_time_request,omitempty"`
}

// WeatherBundle maps a city name to its fetched data
type WeatherBundle map[string]*CityWeather

// WeatherQueryRequest is the body of POST /api/weather/query
type WeatherQueryRequest struct {
	Query string `json:"query"`
}

// WeatherQueryResponse is the structured pipeline result
type WeatherQueryResponse struct {
	Query          string        `json:"query"`
	ProcessedQuery string        `json:"processed_query"`
	WeatherData    WeatherBundle `json:"weather_data"`
	AIExplanation  string        `json:"ai_explanation"`
	SessionID      string        `json:"session_id,omitempty"`
}
