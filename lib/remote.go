package lib

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionState is the drawing state exposed to remote clients
type SessionState struct {
	Color     string    `json:"color"`
	Size      int       `json:"size"`
	PenDown   bool      `json:"pen_down"`
	Frames    int       `json:"frames"`
	Marker    bool      `json:"marker_found"`
	Score     *Score    `json:"score,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the last canvas image and state published by the render loop
type Snapshot struct {
	mu    sync.RWMutex
	png   []byte
	state SessionState
}

// Publish replaces the stored snapshot
func (s *Snapshot) Publish(png []byte, state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.png = png
	s.state = state
}

// PNG returns the last published canvas image, nil before the first publish
func (s *Snapshot) PNG() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.png
}

// State returns the last published state
func (s *Snapshot) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// RemoteServer lets a browser or script drive the paint session over HTTP
type RemoteServer struct {
	addr       string
	engine     *gin.Engine
	httpServer *http.Server
	commands   chan<- Command
	snapshot   *Snapshot
	logger     *logrus.Logger
}

// NewRemoteServer creates a server that queues commands on the given channel
func NewRemoteServer(addr string, commands chan<- Command, snapshot *Snapshot, logger *logrus.Logger) *RemoteServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	rs := &RemoteServer{
		addr:     addr,
		engine:   engine,
		commands: commands,
		snapshot: snapshot,
		logger:   logger,
	}
	rs.setupRoutes()

	rs.httpServer = &http.Server{
		Addr:        addr,
		Handler:     engine,
		ReadTimeout: 10 * time.Second,
	}
	return rs
}

// Handler returns the HTTP handler serving the remote API
func (rs *RemoteServer) Handler() http.Handler {
	return rs.engine
}

func (rs *RemoteServer) setupRoutes() {
	rs.engine.GET("/health", rs.handleHealth)
	rs.engine.GET("/state", rs.handleState)
	rs.engine.GET("/canvas.png", rs.handleCanvas)
	rs.engine.POST("/command", rs.handleCommand)
}

func (rs *RemoteServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (rs *RemoteServer) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, rs.snapshot.State())
}

func (rs *RemoteServer) handleCanvas(c *gin.Context) {
	png := rs.snapshot.PNG()
	if png == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no canvas published yet"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (rs *RemoteServer) handleCommand(c *gin.Context) {
	cmd, err := ParseCommand(c.PostForm("command"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	select {
	case rs.commands <- cmd:
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "command queue full"})
		return
	}

	rs.logger.WithFields(logrus.Fields{
		"command": cmd,
		"remote":  c.ClientIP(),
	}).Info("Remote command queued")
	c.JSON(http.StatusAccepted, gin.H{"command": cmd})
}

// Start serves until ctx is cancelled, then shuts the server down
func (rs *RemoteServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		rs.logger.WithField("addr", rs.addr).Info("Starting remote control server")
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("remote server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return rs.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the server, waiting up to five seconds for open requests
func (rs *RemoteServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rs.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("remote server shutdown failed: %w", err)
	}
	rs.logger.Info("Remote control server stopped")
	return nil
}
