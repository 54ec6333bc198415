package model

import "time"

// Turn is one persisted user/AI message pair
type Turn struct {
	ID          int64     `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	UserMessage string    `json:"user_message" db:"user_message"`
	AIResponse  string    `json:"ai_response" db:"ai_response"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HistoryResponse lists the turns of one session, oldest first
type HistoryResponse struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}

// ClearHistoryResponse reports the outcome of a clear operation
type ClearHistoryResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}
