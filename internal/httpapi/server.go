// Package httpapi exposes a small read-only status API next to the terminal UI.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/history"
	"github.com/1Eliaaaan/rugfi-ft/internal/tokenstate"
)

var log = logrus.WithField("module", "httpapi")

// FeedStatus reports the push feed connection.
type FeedStatus interface {
	State() domain.ConnectionState
	Attempts() int
}

// Config API server configuration.
type Config struct {
	Listen string
	// WalletAddress shown in /api/status, may be empty before login.
	WalletAddress string
}

// Server serves token and status endpoints.
type Server struct {
	cfg     Config
	store   *tokenstate.Store
	feed    FeedStatus
	history *history.Store

	srv *http.Server
}

// New creates the API server. history may be nil.
func New(cfg Config, store *tokenstate.Store, feed FeedStatus, hist *history.Store) *Server {
	return &Server{cfg: cfg, store: store, feed: feed, history: hist}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/tokens", s.handleTokens)
	api.GET("/status", s.handleStatus)
	api.GET("/trades", s.handleTrades)

	return r
}

func (s *Server) handleTokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tokens": s.store.Snapshot()})
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{
		"token_count": s.store.Len(),
		"wallet":      s.cfg.WalletAddress,
	}
	if s.feed != nil {
		status["feed_state"] = s.feed.State().String()
		status["reconnect_attempts"] = s.feed.Attempts()
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"trades": []domain.TradeRecord{}})
		return
	}
	recs, err := s.history.ListRecent(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []domain.TradeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": recs})
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("status API listening on %s", s.cfg.Listen)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("status API stopped: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
