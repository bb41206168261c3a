package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	idLength        = 8
	maxIDAttempts   = 5
)

type Config struct {
	Store  store.PeerRepository
	Logger *logrus.Logger
}

type Server struct {
	store    store.PeerRepository
	logger   *logrus.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	clients    map[string]*client
	httpServer *http.Server
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(env)
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Server{
		store:   cfg.Store,
		logger:  logger,
		metrics: NewMetrics(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleConnect)
	r.Get("/peers", s.handlePeers)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Start serves on addr until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context, addr string) error {
	if err := s.store.DropAllPeers(ctx); err != nil {
		return fmt.Errorf("failed to reset peer registry: %w", err)
	}

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: writeTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Infof("Signaling server started on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down signaling server")

	s.mu.Lock()
	srv := s.httpServer
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("Failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}

	c, err := s.register(r.Context(), conn, r.RemoteAddr)
	if err != nil {
		s.logger.Errorf("Failed to register peer %s: %v", r.RemoteAddr, err)
		_ = conn.Close()
		return
	}
	log := s.logger.WithField("peer", c.id)
	log.Infof("Peer connected from %s", r.RemoteAddr)

	defer func() {
		s.unregister(c)
		_ = conn.Close()
		log.Info("Peer disconnected")
	}()

	if err := c.write(Envelope{Type: TypeID, ID: c.id}); err != nil {
		log.Warnf("Failed to send id: %v", err)
		return
	}

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("Failed to read message: %v", err)
			}
			return
		}
		s.handleMessage(c, env)
	}
}

func (s *Server) handleMessage(from *client, env Envelope) {
	switch env.Type {
	case TypeOffer, TypeAnswer:
		s.relay(from, env)
	default:
		s.metrics.signalsDropped.WithLabelValues("unknown-type").Inc()
		s.logger.Warnf("Unhandled message type %q from %s", env.Type, from.id)
	}
}

func (s *Server) relay(from *client, env Envelope) {
	s.mu.RLock()
	target, ok := s.clients[env.To]
	s.mu.RUnlock()

	if !ok {
		s.metrics.signalsDropped.WithLabelValues(ErrPeerUnavailable).Inc()
		s.logger.Debugf("Dropping %s from %s: peer %s unavailable", env.Type, from.id, env.To)
		if err := from.write(Envelope{Type: TypeError, From: env.To, Error: ErrPeerUnavailable}); err != nil {
			s.logger.Warnf("Failed to send error to %s: %v", from.id, err)
		}
		return
	}

	out := Envelope{Type: env.Type, From: from.id, Payload: env.Payload}
	if err := target.write(out); err != nil {
		s.metrics.signalsDropped.WithLabelValues("write-failed").Inc()
		s.logger.Warnf("Failed to relay %s to %s: %v", env.Type, target.id, err)
		return
	}
	s.metrics.signalsRelayed.WithLabelValues(env.Type).Inc()
	s.logger.Debugf("Relayed %s from %s to %s", env.Type, from.id, target.id)
}

func (s *Server) register(ctx context.Context, conn *websocket.Conn, remoteAddr string) (*client, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := uuid.NewString()[:idLength]

		taken, err := s.store.HasPeer(ctx, id)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		if _, err := s.store.CreatePeer(ctx, id, remoteAddr); err != nil {
			return nil, err
		}

		c := &client{id: id, conn: conn}
		s.mu.Lock()
		s.clients[id] = c
		s.mu.Unlock()
		s.metrics.peersConnected.Inc()
		return c, nil
	}
	return nil, fmt.Errorf("no free id after %d attempts", maxIDAttempts)
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	s.metrics.peersConnected.Dec()

	if err := s.store.DeletePeer(context.Background(), c.id); err != nil {
		s.logger.Warnf("Failed to remove peer %s: %v", c.id, err)
	}
}

type peerView struct {
	ID          string `json:"id"`
	ConnectedAt int64  `json:"connected_at"`
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	peers, err := s.store.GetPeers(r.Context())
	if err != nil {
		http.Error(w, "failed to list peers", http.StatusInternalServerError)
		return
	}

	views := make([]peerView, 0, len(peers))
	for _, p := range peers {
		views = append(views, peerView{ID: p.ID, ConnectedAt: p.ConnectedAt})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		s.logger.Warnf("Failed to write peer list: %v", err)
	}
}
