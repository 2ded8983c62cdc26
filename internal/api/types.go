package api

import (
	"encoding/json"
	"time"

	"github.com/hrbooteh/assessor/internal/domain"
)

// LoginResponse is returned by both the login and register endpoints.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         domain.User `json:"user"`
	ExpiresIn    int64       `json:"expires_in"`
}

// RefreshResponse is returned by the token refresh endpoint. Only the
// access token rotates; the refresh token is retained by the client.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// AIResponse is one interviewer reply from the reasoning service.
type AIResponse struct {
	Message        string `json:"message"`
	ShouldContinue bool   `json:"should_continue"`
	AnalysisReady  bool   `json:"analysis_ready,omitempty"`
}

// StartResponse is returned when a new assessment conversation opens.
type StartResponse struct {
	AssessmentID int64      `json:"assessment_id"`
	AIResponse   AIResponse `json:"ai_response"`
}

// MessageResponse is returned for each user message in a conversation.
type MessageResponse struct {
	AIResponse    AIResponse `json:"ai_response"`
	AnalysisReady bool       `json:"analysis_ready,omitempty"`
}

// Assessment is the server-side record of one conversation.
type Assessment struct {
	ID             int64           `json:"id"`
	AssessmentType string          `json:"assessment_type"`
	UserID         int64           `json:"user_id"`
	Status         string          `json:"status"`
	Analysis       json.RawMessage `json:"analysis,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AssessmentMessage is one stored message of a server-side conversation.
type AssessmentMessage struct {
	ID           int64     `json:"id"`
	AssessmentID int64     `json:"assessment_id"`
	Sender       string    `json:"sender"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResultsResponse bundles a completed assessment with its transcript and
// the produced analysis.
type ResultsResponse struct {
	Assessment Assessment          `json:"assessment"`
	Messages   []AssessmentMessage `json:"messages"`
	Analysis   json.RawMessage     `json:"analysis"`
}

// DetailsResponse bundles an assessment with its transcript, without
// requiring the analysis to exist yet.
type DetailsResponse struct {
	Assessment Assessment          `json:"assessment"`
	Messages   []AssessmentMessage `json:"messages"`
}

// HealthResponse is returned by the service health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
