package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/topdog/internal/logger"
	"github.com/pfrederiksen/topdog/internal/storage"
)

// Response types sent in the envelope
const (
	TypeContestGoals      = "contest-goals"
	TypeTopDogs           = "top-dogs"
	TypeGlobalLeaderboard = "global-leaderboard"
)

const shutdownTimeout = 5 * time.Second

// Files reads published snapshot files by name
type Files interface {
	ReadFile(name string) ([]byte, error)
}

// Envelope wraps every API payload
type Envelope struct {
	ResponseType string          `json:"response_type"`
	Data         json.RawMessage `json:"data"`
}

var emptyList = json.RawMessage("[]")

// Server exposes snapshot files
type Server struct {
	files  Files
	engine *gin.Engine
}

// NewServer creates a Server backed by files
func NewServer(files Files) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{files: files, engine: engine}
	engine.GET("/contests", s.serveFile(TypeContestGoals, storage.ContestGoalsJSON))
	engine.GET("/dogs", s.serveFile(TypeTopDogs, storage.TopDogsJSON))
	engine.GET("/leaderboard", s.serveFile(TypeGlobalLeaderboard, storage.GlobalLeaderboardJSON))
	engine.GET("/ws/", s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// envelope loads name and wraps it. A file that has not been published yet
// gives an empty list.
func (s *Server) envelope(responseType, name string) (*Envelope, error) {
	data, err := s.files.ReadFile(name)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return &Envelope{ResponseType: responseType, Data: emptyList}, nil
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", name)
	}
	return &Envelope{ResponseType: responseType, Data: data}, nil
}

func (s *Server) serveFile(responseType, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		env, err := s.envelope(responseType, name)
		if err != nil {
			logger.Error("Unable to serve snapshot", logger.Fields{"file": name}, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot unavailable"})
			return
		}
		c.JSON(http.StatusOK, env)
	}
}

// requestLogger logs each request through the structured logger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request served", logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api: %w", err)
	}
	return nil
}
