// Package monitor serves read-only health and debug endpoints for a running
// streamer: symbols, stream queue counters, local books, registry size and
// the latest account poll.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rickgao/tradewire/internal/api"
	"github.com/rickgao/tradewire/internal/book"
	"github.com/rickgao/tradewire/internal/model"
	"github.com/rickgao/tradewire/internal/poller"
	"github.com/rickgao/tradewire/internal/version"
)

// SymbolSource lists known symbols.
type SymbolSource interface {
	Symbols() []model.Symbol
}

// Counter reports a size, e.g. the order id registry.
type Counter interface {
	Len() int
}

// Server is the monitor HTTP server.
type Server struct {
	instance string
	logger   *slog.Logger
	router   *mux.Router
	origins  []string
	started  time.Time

	symbols  SymbolSource
	registry Counter
	account  func() poller.Snapshot

	mu      sync.RWMutex
	streams map[string]*api.Stream // by stream id
	books   map[string]*book.Book  // by symbol name

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSymbols exposes the symbol table.
func WithSymbols(s SymbolSource) Option { return func(srv *Server) { srv.symbols = s } }

// WithRegistry exposes the order id registry size.
func WithRegistry(c Counter) Option { return func(srv *Server) { srv.registry = c } }

// WithAccount exposes the latest balance poll.
func WithAccount(fn func() poller.Snapshot) Option { return func(srv *Server) { srv.account = fn } }

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(srv *Server) { srv.origins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(srv *Server) { srv.logger = l } }

// New creates a Server.
func New(instance string, opts ...Option) *Server {
	s := &Server{
		instance: instance,
		logger:   slog.Default(),
		router:   mux.NewRouter(),
		started:  time.Now(),
		streams:  make(map[string]*api.Stream),
		books:    make(map[string]*book.Book),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "monitor")
	s.setupRoutes()
	return s
}

// AddStream registers a stream for /streams.
func (s *Server) AddStream(st *api.Stream) {
	s.mu.Lock()
	s.streams[st.ID()] = st
	s.mu.Unlock()
}

// AddBook registers a local book for /books/{symbol}.
func (s *Server) AddBook(b *book.Book) {
	s.mu.Lock()
	s.books[b.Symbol().Name()] = b
	s.mu.Unlock()
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/symbols", s.handleSymbols).Methods(http.MethodGet)
	v1.HandleFunc("/streams", s.handleStreams).Methods(http.MethodGet)
	v1.HandleFunc("/books/{symbol}", s.handleBook).Methods(http.MethodGet)
	v1.HandleFunc("/registry", s.handleRegistry).Methods(http.MethodGet)
	v1.HandleFunc("/account", s.handleAccount).Methods(http.MethodGet)
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	if len(s.origins) == 0 {
		return s.router
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start listens on addr and serves until Stop. It returns once the
// listener is bound.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server failed", "error", err)
		}
	}()

	s.logger.Info("monitor listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status   string       `json:"status"`
	Instance string       `json:"instance"`
	Uptime   string       `json:"uptime"`
	Streams  int          `json:"streams"`
	Failed   int          `json:"failed_streams"`
	Build    version.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Instance: s.instance,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Build:    version.Get(),
	}

	s.mu.RLock()
	for _, st := range s.streams {
		resp.Streams++
		if st.Err() != nil {
			resp.Failed++
		}
	}
	s.mu.RUnlock()

	status := http.StatusOK
	if resp.Streams > 0 && resp.Failed == resp.Streams {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	respondJSONStatus(w, status, resp)
}

type symbolInfo struct {
	Name      string `json:"name"`
	PriceTick string `json:"price_tick"`
	SizeTick  string `json:"size_tick"`
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if s.symbols == nil {
		respondJSON(w, []symbolInfo{})
		return
	}
	symbols := s.symbols.Symbols()
	out := make([]symbolInfo, len(symbols))
	for i, sym := range symbols {
		out[i] = symbolInfo{
			Name:      sym.Name(),
			PriceTick: sym.PriceTick().String(),
			SizeTick:  sym.SizeTick().String(),
		}
	}
	respondJSON(w, out)
}

type streamInfo struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Flags    string `json:"flags"`
	Running  bool   `json:"running"`
	Error    string `json:"error,omitempty"`
	Pending  int    `json:"pending"`
	Pushed   int64  `json:"pushed"`
	Popped   int64  `json:"popped"`
	Peak     int    `json:"peak"`
	Capacity int    `json:"capacity"`
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]streamInfo, 0, len(s.streams))
	for _, st := range s.streams {
		stats := st.Stats()
		info := streamInfo{
			ID:       st.ID(),
			Symbol:   st.Symbol().Name(),
			Flags:    st.Flags().String(),
			Running:  true,
			Pending:  stats.Pending,
			Pushed:   stats.Pushed,
			Popped:   stats.Popped,
			Peak:     stats.Peak,
			Capacity: stats.Capacity,
		}
		select {
		case <-st.Done():
			info.Running = false
		default:
		}
		if err := st.Err(); err != nil {
			info.Error = err.Error()
		}
		out = append(out, info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	respondJSON(w, out)
}

type levelInfo struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookResponse struct {
	Symbol     string      `json:"symbol"`
	Bids       []levelInfo `json:"bids"`
	Asks       []levelInfo `json:"asks"`
	LastUpdate int64       `json:"last_update"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	s.mu.RLock()
	b, ok := s.books[symbol]
	s.mu.RUnlock()
	if !ok {
		respondError(w, http.StatusNotFound, "book not found", symbol)
		return
	}

	depth := 10
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid depth", raw)
			return
		}
		depth = n
	}

	sym := b.Symbol()
	levels := func(side model.Side) []levelInfo {
		src := b.Depth(side, depth)
		out := make([]levelInfo, len(src))
		for i, l := range src {
			out[i] = levelInfo{Price: sym.PriceString(l.Price), Size: sym.SizeString(l.Size)}
		}
		return out
	}

	respondJSON(w, bookResponse{
		Symbol:     symbol,
		Bids:       levels(model.Bid),
		Asks:       levels(model.Ask),
		LastUpdate: int64(b.LastUpdate()),
	})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	n := 0
	if s.registry != nil {
		n = s.registry.Len()
	}
	respondJSON(w, map[string]int{"entries": n})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if s.account == nil {
		respondError(w, http.StatusNotFound, "account polling disabled", "")
		return
	}
	respondJSON(w, s.account())
}

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	respondJSONStatus(w, status, map[string]string{
		"error":   msg,
		"message": detail,
	})
}
