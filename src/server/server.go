package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"rates-streamer/src/interfaces"
	"rates-streamer/src/logger"
	"rates-streamer/src/models"
	"rates-streamer/src/subs"
	"rates-streamer/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// StreamServer
// -----------------------------------------------------------------------------

type StreamServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Store    interfaces.IMetricStore
	Registry *subs.Registry
	Session  *utils.VenueSession
	engine   *gin.Engine

	// Connected websocket clients, for the health endpoint and shutdown.
	clients   map[*Client]struct{}
	clientsMu sync.Mutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewStreamServer(cfg *models.MConfig, log *logger.Logger, store interfaces.IMetricStore, reg *subs.Registry, session *utils.VenueSession) *StreamServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &StreamServer{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Registry: reg,
		Session:  session,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *StreamServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/assets", s.getAssets)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *StreamServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *StreamServer) Stop() error {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for client := range s.clients {
		client.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Client Tracking
// -----------------------------------------------------------------------------

func (s *StreamServer) registerClient(c *Client) {
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()
}

func (s *StreamServer) unregisterClient(c *Client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()
}

func (s *StreamServer) clientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *StreamServer) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   s.clientCount(),
		"subscriptions": s.Registry.Len(),
		"market_open":   s.Session.IsOpen(time.Now()),
	})
}

// -----------------------------------------------------------------------------

// getAssets is a REST mirror of the websocket "assets" action.
func (s *StreamServer) getAssets(c *gin.Context) {
	assets, err := s.Store.ListAssets()
	if err != nil {
		s.Logger.Error("Asset list query failed: %v", err)
		c.JSON(500, gin.H{"error": "asset list unavailable"})
		return
	}

	if assets == nil {
		assets = []models.MAsset{}
	}
	c.JSON(200, models.MAssetsPayload{Assets: assets})
}
