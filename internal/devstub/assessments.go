package devstub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Scripted interviewer. Replies cycle deterministically so dev runs are
// reproducible; after enough user turns the analysis is declared ready,
// matching the real service's flow.
var followupReplies = []string{
	"Very interesting. Could you elaborate on that?",
	"I see. How do you usually feel in situations like that?",
	"That is an important point. What led you to that decision?",
	"Right. Have you had a similar experience before?",
	"Good. Now tell me how you act in comparable situations.",
}

// analysisReadyAfter is the number of user turns before the interviewer
// concludes the conversation.
const analysisReadyAfter = 5

type aiResponsePayload struct {
	Message        string `json:"message"`
	ShouldContinue bool   `json:"should_continue"`
	AnalysisReady  bool   `json:"analysis_ready"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var req struct {
		AssessmentType string `json:"assessment_type"`
		UserContext    string `json:"user_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AssessmentType == "" {
		Error(w, http.StatusUnprocessableEntity, "assessment_type is required")
		return
	}

	now := time.Now().UTC()
	greeting := fmt.Sprintf(
		"Hello! Welcome to the %s assessment. I will ask you a few questions so I can build an accurate analysis. Ready?",
		req.AssessmentType,
	)

	s.mu.Lock()
	s.nextSessionID++
	rec := &assessmentRecord{
		ID:             s.nextSessionID,
		AssessmentType: req.AssessmentType,
		UserID:         acct.ID,
		Status:         "active",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.appendMessageLocked(rec, "ai", greeting)
	s.assessments[rec.ID] = rec
	s.mu.Unlock()

	s.logger.Info("assessment started",
		"assessment_id", rec.ID,
		"type", req.AssessmentType,
		"user_id", acct.ID)

	JSON(w, http.StatusOK, map[string]any{
		"assessment_id": rec.ID,
		"ai_response": aiResponsePayload{
			Message:        greeting,
			ShouldContinue: true,
			AnalysisReady:  false,
		},
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	rec, ok := s.ownedAssessment(w, r, acct.ID)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		Error(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Status != "active" {
		Error(w, http.StatusBadRequest, "Assessment is not active")
		return
	}

	s.appendMessageLocked(rec, "user", req.Message)
	rec.userTurns++

	var reply string
	var shouldContinue bool
	analysisReady := rec.userTurns >= analysisReadyAfter
	if analysisReady {
		reply = "Thank you for your answers. Your analysis is ready."
		shouldContinue = false
		rec.Status = "completed"
		rec.Analysis = buildAnalysis(rec)
	} else {
		reply = followupReplies[(rec.userTurns-1)%len(followupReplies)]
		shouldContinue = true
	}
	s.appendMessageLocked(rec, "ai", reply)
	rec.UpdatedAt = time.Now().UTC()

	JSON(w, http.StatusOK, map[string]any{
		"ai_response": aiResponsePayload{
			Message:        reply,
			ShouldContinue: shouldContinue,
			AnalysisReady:  analysisReady,
		},
		"analysis_ready": analysisReady,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	rec, ok := s.ownedAssessment(w, r, acct.ID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Status != "completed" {
		Error(w, http.StatusBadRequest, "Assessment is not completed yet")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"assessment": s.assessmentPayloadLocked(rec),
		"messages":   rec.Messages,
		"analysis":   rec.Analysis,
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	rec, ok := s.ownedAssessment(w, r, acct.ID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	JSON(w, http.StatusOK, map[string]any{
		"assessment": s.assessmentPayloadLocked(rec),
		"messages":   rec.Messages,
	})
}

func (s *Server) handleUserAssessments(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0)
	for _, rec := range s.assessments {
		if rec.UserID == acct.ID {
			out = append(out, s.assessmentPayloadLocked(rec))
		}
	}
	JSON(w, http.StatusOK, out)
}

// ownedAssessment resolves the {assessmentID} path parameter to a record
// owned by userID, writing the error response itself on failure.
func (s *Server) ownedAssessment(w http.ResponseWriter, r *http.Request, userID int64) (*assessmentRecord, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "assessmentID"), 10, 64)
	if err != nil {
		Error(w, http.StatusUnprocessableEntity, "invalid assessment id")
		return nil, false
	}

	s.mu.Lock()
	rec, ok := s.assessments[id]
	s.mu.Unlock()

	if !ok || rec.UserID != userID {
		Error(w, http.StatusNotFound, "Assessment not found")
		return nil, false
	}
	return rec, true
}

func (s *Server) appendMessageLocked(rec *assessmentRecord, sender, text string) {
	s.nextMessageID++
	rec.Messages = append(rec.Messages, storedMessage{
		ID:           s.nextMessageID,
		AssessmentID: rec.ID,
		Sender:       sender,
		Message:      text,
		CreatedAt:    time.Now().UTC(),
	})
}

func (s *Server) assessmentPayloadLocked(rec *assessmentRecord) map[string]any {
	payload := map[string]any{
		"id":              rec.ID,
		"assessment_type": rec.AssessmentType,
		"user_id":         rec.UserID,
		"status":          rec.Status,
		"created_at":      rec.CreatedAt,
		"updated_at":      rec.UpdatedAt,
	}
	if rec.Analysis != nil {
		payload["analysis"] = rec.Analysis
	}
	return payload
}

// buildAnalysis fabricates a score from conversation length, the same
// placeholder heuristic the real dev backend ships with.
func buildAnalysis(rec *assessmentRecord) map[string]any {
	score := 20 + len(rec.Messages)*15
	if score > 100 {
		score = 100
	}
	return map[string]any{
		"assessment_type": rec.AssessmentType,
		"score":           score,
		"summary":         "Preliminary analysis based on the answers provided.",
		"recommendations": []string{
			"Practice fifteen minutes a day to improve focus.",
			"Attend a workshop related to the topic.",
		},
	}
}
