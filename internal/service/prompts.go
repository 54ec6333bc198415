package service

const extractIntentPromptTemplate = `
Analyze the following weather query and extract key information:

Query: %s

This query may be a follow-up to a previous conversation about weather.
If the query seems incomplete (like "And tomorrow?" or "What about next week?"),
it's likely referring to the previously mentioned location or weather topic.

Provide a JSON response with the following fields:
- cities: List of city names mentioned (empty if none and no context available)
- query_types: List of query types from [%s] (can be multiple)
- time_context: "current", "future", "past", or specific time period
  * For queries like "tomorrow", "next day", etc., use "future" and note the specific timeframe
  * For queries like "yesterday", "last week", etc., use "past" and note the timeframe
- specific_conditions: List of specific weather conditions asked about (temperature, rain, wind, etc.)
- comparison_type: "time" if comparing different times, "location" if comparing places, null if no comparison
- is_follow_up: true if this appears to be a follow-up query requiring previous context, false otherwise

Response should be ONLY valid JSON.
`

const explanationPromptTemplate = `
Generate a helpful explanation for the following weather query and data:

Query: %s

%s

Query Analysis: %s

Weather Data: %s

%s

Consider the following in your response:
1. If it's a comparison query, compare the relevant aspects
2. Focus on the specific conditions asked about
3. Provide relevant context based on the time period
4. If multiple cities are involved, address each one
5. If specific weather conditions were asked about, prioritize those in the response
6. If this is a follow-up query, maintain context from the previous conversation

Provide a concise, natural-sounding explanation focusing on exactly what was asked.
`

const followUpNote = `
Note: This appears to be a follow-up question to a previous weather query.
Make sure your response acknowledges the continued conversation and references
the previous information appropriately.
`

const followUpTimeNote = `
The user is specifically asking about the weather for %[1]s.
Focus your response on the forecast for %[1]s.
`

const cityFromHistoryPromptTemplate = `
%s
Current user query: "%s"

Based on the conversation history, what is the primary city being discussed or previously mentioned that the current query most likely refers to?
Respond with ONLY the city name (e.g., London, New York). If no city is clearly implied for the current query from the history, respond with the exact word 'None'.
`

const domainGuardPromptTemplate = `
You are the gatekeeper for a weather assistant. Decide whether the user's message is about
weather, climate conditions, forecasts, or a follow-up to a weather conversation
(for example "And tomorrow?" or "What about Berlin?").

Message: "%s"

Respond with ONLY one word: "yes" if the message belongs to the weather assistant, "no" otherwise.
`

// Fixed user-facing texts
const (
	emptyQueryExplanation   = "Please provide a valid weather query."
	emptyQueryProcessed     = "Empty query received."
	noCityExplanation       = "I couldn't determine which city you're asking about. Please specify a city name in your query."
	noCityProcessed         = "No city specified in query or recent context."
	offDomainExplanation    = "I'm a weather assistant, so I can only help with weather questions. Try asking about the current weather or the forecast for a city."
	offDomainProcessed      = "Query is not related to weather."
	historyContextHeader    = "Consider the following recent conversation:\n"
	explanationChatHeader   = "Previous conversation:\n"
	cityInferenceNoneAnswer = "none"
)

// Token tables. Matching is a case-insensitive substring test.
var (
	followUpTokens   = []string{"tomorrow", "next", "and"}
	futureTimeTokens = []string{"tomorrow", "week", "month"}
	cityPrefixes     = []string{"the city is ", "city: "}
	disclaimerTokens = []string{
		"sorry",
		"unable",
		"don't know",
		"cannot determine",
		"no city",
		"context does not",
		"not specified",
		"no specific city",
	}
)
