package model

import (
	"encoding/json"
	"strings"
)

// Time contexts the extractor is asked to produce. Any other string is a
// free-text period and is passed through unchanged.
const (
	TimeCurrent = "current"
	TimeFuture  = "future"
	TimePast    = "past"
)

// ComparisonType tells the fetcher whether a query compares times or places
type ComparisonType string

const (
	ComparisonNone     ComparisonType = "none"
	ComparisonTime     ComparisonType = "time"
	ComparisonLocation ComparisonType = "location"
)

// UnmarshalJSON accepts null, "", "none" and unknown values as ComparisonNone.
func (c *ComparisonType) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		// booleans or numbers from a sloppy completion
		*c = ComparisonNone
		return nil
	}
	if raw == nil {
		*c = ComparisonNone
		return nil
	}
	*c = NormalizeComparison(*raw)
	return nil
}

// NormalizeComparison maps free text onto the three comparison kinds.
func NormalizeComparison(s string) ComparisonType {
	switch ComparisonType(strings.ToLower(strings.TrimSpace(s))) {
	case ComparisonTime:
		return ComparisonTime
	case ComparisonLocation:
		return ComparisonLocation
	default:
		return ComparisonNone
	}
}

// QueryTypes is the vocabulary offered to the model for query_types.
var QueryTypes = map[string]string{
	"current":       "Get current weather conditions",
	"forecast":      "Get weather forecast",
	"temperature":   "Get specific temperature information",
	"precipitation": "Get rainfall/snow information",
	"wind":          "Get wind conditions",
	"humidity":      "Get humidity levels",
	"comparison":    "Compare weather between times/places",
	"conditions":    "Get specific weather conditions (sunny, cloudy, etc.)",
	"alerts":        "Get weather alerts or warnings",
}

// QueryTypeNames returns the vocabulary keys in a stable order.
func QueryTypeNames() []string {
	return []string{
		"current", "forecast", "temperature", "precipitation", "wind",
		"humidity", "comparison", "conditions", "alerts",
	}
}

// QueryIntent is the structured reading of a weather question
type QueryIntent struct {
	Cities             []string       `json:"cities"`
	QueryTypes         []string       `json:"query_types"`
	TimeContext        string         `json:"time_context"`
	SpecificConditions []string       `json:"specific_conditions"`
	ComparisonType     ComparisonType `json:"comparison_type"`
	IsFollowUp         bool           `json:"is_follow_up"`
	SpecificTime       string         `json:"specific_time,omitempty"`
}

// Normalize fills nil slices and empty enums so the intent serialises the
// same way whether it came from the model or from the fallback.
func (q *QueryIntent) Normalize() {
	if q.Cities == nil {
		q.Cities = []string{}
	}
	cities := q.Cities[:0]
	for _, c := range q.Cities {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	q.Cities = cities
	if q.QueryTypes == nil {
		q.QueryTypes = []string{}
	}
	if q.SpecificConditions == nil {
		q.SpecificConditions = []string{}
	}
	q.TimeContext = strings.TrimSpace(q.TimeContext)
	if q.TimeContext == "" {
		q.TimeContext = TimeCurrent
	}
	if q.ComparisonType == "" {
		q.ComparisonType = ComparisonNone
	}
}

// HasCities reports whether at least one city is present.
func (q *QueryIntent) HasCities() bool {
	return len(q.Cities) > 0
}

// Compares reports whether the query asks for a comparison.
func (q *QueryIntent) Compares() bool {
	return q.ComparisonType != "" && q.ComparisonType != ComparisonNone
}
