package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheragent/internal/model"
)

func TestCleanCityAnswer(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Tokyo", "Tokyo", true},
		{"  Tokyo.\n", "Tokyo", true},
		{"The city is London.", "London", true},
		{"City: New York", "New York", true},
		{"The city is None.", "", false},
		{"City: None", "", false},
		{"None", "", false},
		{"none.", "", false},
		{"Sorry, I can't tell.", "", false},
		{"I don't know", "", false},
		{"The context does not mention a city", "", false},
		{"X", "", false},
		{"Llanfairpwllgwyngyllgogerychwyrndrobwllllantysiliogogogoch", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := CleanCityAnswer(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_ExtractedCitiesUpdateMemory(t *testing.T) {
	memory := NewCityMemory()
	resolver := NewContextResolver(&scriptedLLM{}, &memoryHistory{}, memory, 5, nil)

	intent := &model.QueryIntent{Cities: []string{"Paris"}}
	source, err := resolver.Resolve(context.Background(), intent, "Weather in Paris", "s1")
	require.NoError(t, err)
	assert.Equal(t, CitySourceQuery, source)

	cities, ok := memory.Get("s1")
	require.True(t, ok)
	assert.Equal(t, []string{"Paris"}, cities)
}

func TestResolve_HistoryInference(t *testing.T) {
	history := &memoryHistory{}
	require.NoError(t, history.Append(context.Background(), "s1", "How hot is Tokyo?", "It is 30°C."))

	llm := &scriptedLLM{city: "Tokyo."}
	memory := NewCityMemory()
	resolver := NewContextResolver(llm, history, memory, 5, nil)

	intent := &model.QueryIntent{Cities: []string{}, IsFollowUp: true}
	source, err := resolver.Resolve(context.Background(), intent, "And tomorrow?", "s1")
	require.NoError(t, err)

	assert.Equal(t, CitySourceHistory, source)
	assert.Equal(t, []string{"Tokyo"}, intent.Cities)
	cities, _ := memory.Get("s1")
	assert.Equal(t, []string{"Tokyo"}, cities)
}

func TestResolve_MemoryWhenInferenceInconclusive(t *testing.T) {
	tests := []struct {
		name    string
		llm     *scriptedLLM
		history *memoryHistory
	}{
		{"model says None", &scriptedLLM{city: "None"}, historyWith("Weather in Lima")},
		{"model disclaims", &scriptedLLM{city: "Sorry, I am unable to tell."}, historyWith("Weather in Lima")},
		{"history down", &scriptedLLM{city: "Quito"}, &memoryHistory{readErr: errors.New("db gone")}},
		{"no history", &scriptedLLM{city: "Quito"}, &memoryHistory{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memory := NewCityMemory()
			memory.Set("s1", []string{"Lima"})
			resolver := NewContextResolver(tt.llm, tt.history, memory, 5, nil)

			intent := &model.QueryIntent{Cities: []string{}, IsFollowUp: true}
			source, err := resolver.Resolve(context.Background(), intent, "and tomorrow?", "s1")
			require.NoError(t, err)

			assert.Equal(t, CitySourceMemory, source)
			assert.Equal(t, []string{"Lima"}, intent.Cities)
		})
	}
}

func TestResolve_InferenceErrorPropagates(t *testing.T) {
	memory := NewCityMemory()
	memory.Set("s1", []string{"Lima"})
	llm := &scriptedLLM{err: errors.New("timeout")}
	resolver := NewContextResolver(llm, historyWith("Weather in Lima"), memory, 5, nil)

	intent := &model.QueryIntent{Cities: []string{}, IsFollowUp: true}
	source, err := resolver.Resolve(context.Background(), intent, "and tomorrow?", "s1")

	require.Error(t, err)
	assert.ErrorContains(t, err, "timeout")
	assert.Equal(t, CitySourceNone, source)
	assert.Empty(t, intent.Cities)
}

func TestResolve_NotFollowUpSkipsHistory(t *testing.T) {
	llm := &scriptedLLM{city: "Tokyo"}
	resolver := NewContextResolver(llm, historyWith("Weather in Tokyo"), NewCityMemory(), 5, nil)

	intent := &model.QueryIntent{Cities: []string{}}
	source, err := resolver.Resolve(context.Background(), intent, "How's the weather?", "s1")
	require.NoError(t, err)
	assert.Equal(t, CitySourceNone, source)
	assert.Empty(t, intent.Cities)
	assert.Zero(t, llm.count("city"))
}

func TestResolve_MemoryIsPerSession(t *testing.T) {
	memory := NewCityMemory()
	memory.Set("other", []string{"Berlin"})
	resolver := NewContextResolver(&scriptedLLM{city: "None"}, &memoryHistory{}, memory, 5, nil)

	intent := &model.QueryIntent{Cities: []string{}, IsFollowUp: true}
	source, err := resolver.Resolve(context.Background(), intent, "and tomorrow?", "s1")
	require.NoError(t, err)
	assert.Equal(t, CitySourceNone, source)
}

func historyWith(userMessages ...string) *memoryHistory {
	h := &memoryHistory{}
	for _, m := range userMessages {
		_ = h.Append(context.Background(), "s1", m, "ok")
	}
	return h
}
