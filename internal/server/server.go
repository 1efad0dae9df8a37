// Package server provides the HTTP REST API for the recommendation engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/ingestion"
	"github.com/Quang-To/Pathwise/internal/server/middleware"
	"github.com/Quang-To/Pathwise/internal/server/ratelimit"
	"github.com/Quang-To/Pathwise/internal/types"
)

// Recommender is the recommendation pipeline surface the API exposes.
type Recommender interface {
	Recommend(ctx context.Context, userID string, forceUpdate bool) (*types.CourseRecommendation, error)
	SkillsMapping(ctx context.Context, userID string) (map[string][]string, error)
}

// DashboardService serves goals and learning dashboards.
type DashboardService interface {
	Dashboard(ctx context.Context, userID string) (*types.LearningDashboard, error)
	SetGoal(ctx context.Context, userID, goal string) (bool, error)
}

// FeedbackService records course feedback.
type FeedbackService interface {
	Submit(ctx context.Context, userID, courseID, text string) error
}

// Ingestor runs catalog ingestion.
type Ingestor interface {
	Run(ctx context.Context, maxCourses int) (*ingestion.Result, error)
}

// Services bundles everything the API depends on.
type Services struct {
	Recommender Recommender
	Dashboards  DashboardService
	Feedback    FeedbackService
	Ingestor    Ingestor
	Users       UserStore
}

// Server is the HTTP front of the engine.
type Server struct {
	httpServer  *http.Server
	recommender Recommender
	dashboards  DashboardService
	feedback    FeedbackService
	ingestor    Ingestor
	authHandler *AuthHandler
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
}

// New wires the router and auth stack. Configuration for JWT and password
// hashing is read from the environment.
func New(port int, services Services) (*Server, error) {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}

	s := &Server{
		recommender: services.Recommender,
		dashboards:  services.Dashboards,
		feedback:    services.Feedback,
		ingestor:    services.Ingestor,
		jwtService:  NewJWTService(jwtConfig),
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		validate:    validator.New(),
	}
	s.authHandler = NewAuthHandler(services.Users, passwordConfig, s.jwtService)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.router()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // recommendation runs call out to the LLM
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) router() http.Handler {
	authed := middleware.Authenticate(s.jwtService.AsTokenValidator())
	adminOnly := middleware.RequireRole("admin")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", s.authHandler.Login)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /ai/recommend-courses", authed(http.HandlerFunc(s.handleRecommend)))
	mux.Handle("GET /skills-mapping", authed(http.HandlerFunc(s.handleSkillsMapping)))
	mux.Handle("POST /goal/set", authed(http.HandlerFunc(s.handleSetGoal)))
	mux.Handle("GET /user/learning-dashboard", authed(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("POST /feedback", authed(http.HandlerFunc(s.handleFeedback)))
	mux.Handle("GET /external-courses", authed(adminOnly(http.HandlerFunc(s.handleIngestCourses))))

	return mux
}

// Handler exposes the fully wired handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	log.Println("Server stopped")
	return nil
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}
	log.Printf("[rate-limit] limit exceeded: limit=%d remaining=%d", info.Limit, info.Remaining)
	s.errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, HTTPStatus(err), map[string]string{"error": err.Error()})
}
