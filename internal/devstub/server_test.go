package devstub_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrbooteh/assessor/internal/api"
	"github.com/hrbooteh/assessor/internal/devstub"
)

// tokenBox is a minimal TokenSource the tests update as the flow
// progresses.
type tokenBox struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (b *tokenBox) Tokens(context.Context) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.access, b.refresh, nil
}

func (b *tokenBox) set(access, refresh string) {
	b.mu.Lock()
	b.access = access
	b.refresh = refresh
	b.mu.Unlock()
}

// harness wires a stub backend to a real gateway client over loopback HTTP.
func harness(t *testing.T) (*api.Client, *tokenBox) {
	t.Helper()
	stub := devstub.NewServer(devstub.Config{
		JWTSecret: "test-secret",
		AccessTTL: time.Hour,
	}, nil)
	ts := httptest.NewServer(stub.Router())
	t.Cleanup(ts.Close)

	box := &tokenBox{}
	client := api.NewClient(api.ClientConfig{BaseURL: ts.URL + "/api/v1"}, box, nil)
	return client, box
}

func signUp(t *testing.T, client *api.Client, box *tokenBox, email string) *api.LoginResponse {
	t.Helper()
	resp, err := client.Register(context.Background(), email, "hunter2", "Test Person")
	require.NoError(t, err)
	box.set(resp.AccessToken, resp.RefreshToken)
	return resp
}

func TestRegisterLoginAndMe(t *testing.T) {
	client, box := harness(t)

	reg := signUp(t, client, box, "dana@example.com")
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)
	require.Equal(t, "bearer", reg.TokenType)
	require.Equal(t, "dana@example.com", reg.User.Email)
	require.True(t, reg.User.IsActive)

	me, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, me.ID)
	require.Equal(t, "Test Person", me.FullName)

	// Fresh login with the same credentials works and mints new tokens.
	login, err := client.Login(context.Background(), "dana@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, login.AccessToken)
}

func TestDuplicateRegisterIsBadRequest(t *testing.T) {
	client, box := harness(t)
	signUp(t, client, box, "dup@example.com")

	_, err := client.Register(context.Background(), "dup@example.com", "other", "Other Person")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "User with this email already exists", apiErr.Message)
}

func TestWrongPasswordIsUnauthorized(t *testing.T) {
	client, box := harness(t)
	signUp(t, client, box, "kim@example.com")

	_, err := client.Login(context.Background(), "kim@example.com", "wrong")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Incorrect email or password", apiErr.Message)
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	client, box := harness(t)
	reg := signUp(t, client, box, "ray@example.com")

	resp, err := client.RefreshToken(context.Background(), reg.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	// The new access token is accepted; the old refresh token still works.
	box.set(resp.AccessToken, reg.RefreshToken)
	_, err = client.CurrentUser(context.Background())
	require.NoError(t, err)
	_, err = client.RefreshToken(context.Background(), reg.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshWithGarbageIsUnauthorized(t *testing.T) {
	client, _ := harness(t)

	_, err := client.RefreshToken(context.Background(), "not-a-refresh-token")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAssessmentConversationToAnalysis(t *testing.T) {
	client, box := harness(t)
	signUp(t, client, box, "lee@example.com")

	start, err := client.StartAssessment(context.Background(), "confidence", "")
	require.NoError(t, err)
	require.NotZero(t, start.AssessmentID)
	require.Contains(t, start.AIResponse.Message, "confidence")
	require.True(t, start.AIResponse.ShouldContinue)

	// Results are refused while the conversation is still open.
	_, err = client.Results(context.Background(), start.AssessmentID)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Assessment is not completed yet", apiErr.Message)

	// Four answers keep the interview going; the fifth concludes it.
	for i := 1; i <= 4; i++ {
		reply, err := client.SendMessage(context.Background(), start.AssessmentID, fmt.Sprintf("answer %d", i))
		require.NoError(t, err)
		require.False(t, reply.AnalysisReady, "turn %d should not conclude", i)
		require.True(t, reply.AIResponse.ShouldContinue)
	}
	final, err := client.SendMessage(context.Background(), start.AssessmentID, "answer 5")
	require.NoError(t, err)
	require.True(t, final.AnalysisReady)
	require.False(t, final.AIResponse.ShouldContinue)

	results, err := client.Results(context.Background(), start.AssessmentID)
	require.NoError(t, err)
	require.Equal(t, "completed", results.Assessment.Status)
	// Greeting plus five exchanges.
	require.Len(t, results.Messages, 11)

	var analysis struct {
		Score int    `json:"score"`
		Type  string `json:"assessment_type"`
	}
	require.NoError(t, json.Unmarshal(results.Analysis, &analysis))
	require.Equal(t, "confidence", analysis.Type)
	require.Equal(t, 100, analysis.Score)
}

func TestMessageAfterCompletionRejected(t *testing.T) {
	client, box := harness(t)
	signUp(t, client, box, "sam@example.com")

	start, err := client.StartAssessment(context.Background(), "leadership", "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := client.SendMessage(context.Background(), start.AssessmentID, "answer")
		require.NoError(t, err)
	}

	_, err = client.SendMessage(context.Background(), start.AssessmentID, "one more")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Assessment is not active", apiErr.Message)
}

func TestAssessmentsAreOwnerScoped(t *testing.T) {
	client, box := harness(t)
	signUp(t, client, box, "owner@example.com")
	start, err := client.StartAssessment(context.Background(), "negotiation", "")
	require.NoError(t, err)

	// A second account cannot see the first account's assessment.
	signUp(t, client, box, "intruder@example.com")
	_, err = client.AssessmentDetails(context.Background(), start.AssessmentID)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Assessment not found", apiErr.Message)

	list, err := client.UserAssessments(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	client, _ := harness(t)

	_, err := client.StartAssessment(context.Background(), "independence", "")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestHealthNeedsNoCredentials(t *testing.T) {
	client, _ := harness(t)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", health.Status)
}

func TestCORSPreflightForAllowedOrigin(t *testing.T) {
	stub := devstub.NewServer(devstub.Config{
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"http://localhost:5173"},
	}, nil)
	ts := httptest.NewServer(stub.Router())
	t.Cleanup(ts.Close)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	// An unknown origin gets no CORS grant.
	req2, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/auth/login", nil)
	require.NoError(t, err)
	req2.Header.Set("Origin", "http://evil.example.com")
	resp2, err := ts.Client().Do(req2)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}
