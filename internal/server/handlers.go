package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Quang-To/Pathwise/internal/feedback"
	"github.com/Quang-To/Pathwise/internal/server/middleware"
	"github.com/Quang-To/Pathwise/internal/types"
)

// viewerRoles may inspect other users' dashboards and mappings via the
// user_id query parameter.
var viewerRoles = map[string]struct{}{
	"manager": {},
	"hr":      {},
	"admin":   {},
	"ld":      {},
}

// subjectUser resolves which user a request operates on: the caller by
// default, or the user_id query parameter when the caller's role permits.
func subjectUser(r *http.Request) (string, error) {
	identity, err := middleware.GetIdentity(r)
	if err != nil {
		return "", err
	}
	requested := r.URL.Query().Get("user_id")
	if requested == "" || requested == identity.Username {
		return identity.Username, nil
	}
	if _, ok := viewerRoles[identity.Role]; !ok {
		return "", errors.New("role may not act on other users")
	}
	return requested, nil
}

// handleRecommend runs the recommendation pipeline for the subject user.
// force_update=true bypasses the cached result.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		s.errorResponse(w, http.StatusForbidden, err.Error())
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force_update"))

	rec, err := s.recommender.Recommend(r.Context(), userID, force)
	if err != nil {
		log.Printf("[server] recommend failed for %s: %v", userID, err)
		s.errorResponse(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleSkillsMapping returns the stored skill-to-course map without
// triggering recomputation.
func (s *Server) handleSkillsMapping(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		s.errorResponse(w, http.StatusForbidden, err.Error())
		return
	}

	mapping, err := s.recommender.SkillsMapping(r.Context(), userID)
	if err != nil {
		log.Printf("[server] skills mapping failed for %s: %v", userID, err)
		s.errorResponse(w, http.StatusInternalServerError, "skills mapping failed")
		return
	}
	s.jsonResponse(w, http.StatusOK, types.SkillMappingResponse{Mappings: mapping})
}

// handleSetGoal updates the caller's aspiration and refreshes their
// recommendation against the new goal.
func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.GetIdentity(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "aspiration is required")
		return
	}

	updated, err := s.dashboards.SetGoal(r.Context(), identity.Username, req.Aspiration)
	if err != nil {
		log.Printf("[server] goal update failed for %s: %v", identity.Username, err)
		s.errorResponse(w, http.StatusInternalServerError, "goal update failed")
		return
	}
	if !updated {
		writeError(w, &ErrNotFound{Resource: "employee profile"})
		return
	}

	// the stored recommendation is stale against the new goal
	if _, err := s.recommender.Recommend(r.Context(), identity.Username, true); err != nil {
		log.Printf("[server] recompute after goal change failed for %s: %v", identity.Username, err)
	}

	s.jsonResponse(w, http.StatusOK, types.StatusResponse{Status: "goal updated"})
}

// handleDashboard returns the subject user's learning dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectUser(r)
	if err != nil {
		s.errorResponse(w, http.StatusForbidden, err.Error())
		return
	}

	view, err := s.dashboards.Dashboard(r.Context(), userID)
	if err != nil {
		log.Printf("[server] dashboard failed for %s: %v", userID, err)
		s.errorResponse(w, http.StatusInternalServerError, "dashboard unavailable")
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

type feedbackRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Feedback string `json:"feedback" validate:"required"`
}

// handleFeedback appends feedback to one of the caller's recommended
// courses.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.GetIdentity(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "course_id and feedback are required")
		return
	}

	err = s.feedback.Submit(r.Context(), identity.Username, req.CourseID, req.Feedback)
	switch {
	case errors.Is(err, feedback.ErrNotRecommended):
		s.errorResponse(w, http.StatusForbidden, err.Error())
	case errors.Is(err, feedback.ErrCourseNotFound):
		s.errorResponse(w, http.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("[server] feedback failed for %s: %v", identity.Username, err)
		s.errorResponse(w, http.StatusInternalServerError, "feedback submission failed")
	default:
		s.jsonResponse(w, http.StatusOK, types.StatusResponse{Status: "feedback recorded"})
	}
}

// handleIngestCourses triggers a catalog ingestion run. Admin only, gated
// at the router.
func (s *Server) handleIngestCourses(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := s.ingestor.Run(r.Context(), limit)
	if err != nil {
		log.Printf("[server] ingestion failed: %v", err)
		s.errorResponse(w, http.StatusBadGateway, "catalog ingestion failed")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.StatusResponse{Status: "ok"})
}
