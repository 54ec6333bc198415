package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheragent/internal/model"
)

func TestGenerate_MessagesAndPrompt(t *testing.T) {
	ctx := context.Background()
	history := &memoryHistory{}
	require.NoError(t, history.Append(ctx, "s1", "Weather in Tokyo?", "Sunny, 25°C."))
	require.NoError(t, history.Append(ctx, "s1", "Windy?", "Light breeze."))
	require.NoError(t, history.Append(ctx, "s2", "Unrelated", "Other session."))

	llm := &scriptedLLM{explanation: "  Tomorrow in Tokyo expect rain.  \n"}
	gen := NewExplanationGenerator(llm, history, 5, nil)

	intent := &model.QueryIntent{
		Cities:       []string{"Tokyo"},
		TimeContext:  model.TimeFuture,
		IsFollowUp:   true,
		SpecificTime: "tomorrow",
	}
	bundle := model.WeatherBundle{"Tokyo": {Forecast: []byte(`{"list":[]}`), SpecificTimeRequest: "tomorrow"}}

	answer, err := gen.Generate(ctx, "And tomorrow?", intent, bundle, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Tomorrow in Tokyo expect rain.", answer)

	msgs := llm.lastChat
	require.Len(t, msgs, 5)
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "Weather in Tokyo?"}, msgs[0])
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Content: "Sunny, 25°C."}, msgs[1])
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "Windy?"}, msgs[2])
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Content: "Light breeze."}, msgs[3])

	prompt := msgs[4].Content
	assert.Equal(t, RoleUser, msgs[4].Role)
	assert.Contains(t, prompt, "Query: And tomorrow?")
	assert.Contains(t, prompt, "Previous conversation:\nUser: Weather in Tokyo?\nAI: Sunny, 25°C.\nUser: Windy?")
	assert.Contains(t, prompt, "follow-up question")
	assert.Contains(t, prompt, "Focus your response on the forecast for tomorrow.")
	assert.Contains(t, prompt, `"specific_time_request": "tomorrow"`)
	assert.NotContains(t, prompt, "Other session.")
}

func TestGenerate_NoHistoryNoFollowUp(t *testing.T) {
	llm := &scriptedLLM{explanation: "Sunny."}
	gen := NewExplanationGenerator(llm, &memoryHistory{}, 5, nil)

	_, err := gen.Generate(context.Background(), "Weather in Paris?",
		&model.QueryIntent{Cities: []string{"Paris"}, TimeContext: model.TimeCurrent},
		model.WeatherBundle{"Paris": {Current: []byte(`{}`)}}, "s1")
	require.NoError(t, err)

	require.Len(t, llm.lastChat, 1)
	assert.NotContains(t, llm.lastChat[0].Content, "Previous conversation")
	assert.NotContains(t, llm.lastChat[0].Content, "follow-up question")
}

func TestGenerate_HistoryError(t *testing.T) {
	gen := NewExplanationGenerator(&scriptedLLM{}, &memoryHistory{readErr: errors.New("db down")}, 5, nil)

	_, err := gen.Generate(context.Background(), "q", &model.QueryIntent{}, model.WeatherBundle{}, "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
