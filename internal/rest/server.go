package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/petctl/internal/auth"
	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/message"
	"github.com/danmuck/petctl/internal/observability"
	"github.com/danmuck/petctl/internal/service"
	"github.com/danmuck/petctl/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ParticipantKeyHeader carries the hex public key of the sum participant
// asking for its seeds.
const ParticipantKeyHeader = "X-Participant-PK"

// Config configures the HTTP API.
type Config struct {
	Addr         string
	CorsOrigins  []string
	MessageRate  float64
	MessageBurst int
	Limits       message.Limits
	QueryTimeout time.Duration
	// AdminToken guards /metrics and /rounds when set.
	AdminToken string
	TLS        TLSConfig
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":8081",
		CorsOrigins:  []string{"http://localhost:3000"},
		MessageRate:  100,
		MessageBurst: 200,
		Limits:       message.DefaultLimits(),
		QueryTimeout: 5 * time.Second,
	}
}

// RoundReader looks up completed rounds.
type RoundReader interface {
	GetRound(id uint64) (coordinator.RoundRecord, error)
}

// Server serves the participant API on top of a service handle.
type Server struct {
	cfg     Config
	handle  *service.Handle
	rounds  RoundReader
	limiter *rate.Limiter
	router  *gin.Engine
	http    *http.Server
	started time.Time
}

// New builds the router. rounds may be nil when history is disabled.
func New(cfg Config, handle *service.Handle, rounds RoundReader) *Server {
	observability.RegisterMetrics()
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	if cfg.Limits.MaxMessageBytes == 0 {
		cfg.Limits = message.DefaultLimits()
	}
	limit := rate.Inf
	if cfg.MessageRate > 0 {
		limit = rate.Limit(cfg.MessageRate)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(cfg.CorsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", ParticipantKeyHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		handle:  handle,
		rounds:  rounds,
		limiter: rate.NewLimiter(limit, max(cfg.MessageBurst, 1)),
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// ListenAndServe blocks until Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, over TLS when configured.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.cfg.TLS.Enabled {
		tlsCfg, terr := s.cfg.TLS.serverConfig()
		if terr != nil {
			_ = ln.Close()
			return terr
		}
		s.http.TLSConfig = tlsCfg
		log.Info().Str("addr", ln.Addr().String()).Bool("mutual", s.cfg.TLS.Mutual).Msg("rest: listening (tls)")
		err = s.http.ServeTLS(ln, "", "")
	} else {
		log.Info().Str("addr", ln.Addr().String()).Msg("rest: listening")
		err = s.http.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": "petctl",
		})
	})
	admin := s.router.Group("/")
	if s.cfg.AdminToken != "" {
		admin.Use(auth.Middleware(auth.StaticToken{Token: s.cfg.AdminToken}))
	}
	admin.GET("/metrics", gin.WrapH(promhttp.Handler()))
	admin.GET("/rounds/:id", s.getRound)

	s.router.POST("/message", s.postMessage)
	s.router.GET("/params", s.getParams)
	s.router.GET("/sums", s.getSums)
	s.router.GET("/seeds", s.getSeeds)
	s.router.GET("/scalar", s.getScalar)
	s.router.GET("/length", s.getLength)
}

func (s *Server) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.QueryTimeout)
}

func (s *Server) postMessage(c *gin.Context) {
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "message rate exceeded"})
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.cfg.Limits.MaxMessageBytes)+1)
	raw, err := message.Read(body, s.cfg.Limits)
	if err == nil {
		var extra [1]byte
		if n, _ := body.Read(extra[:]); n > 0 {
			err = codec.Context(codec.ErrTrailingBytes, "message body")
		}
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, codec.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.queryContext(c)
	defer cancel()
	if err := s.handle.SendMessage(ctx, raw); err != nil {
		s.serviceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) getParams(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()
	params, err := s.handle.RoundParameters(ctx)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoundParametersResponse(params))
}

func (s *Server) getSums(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()
	dict, err := s.handle.SumDict(ctx)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	if dict == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, sumDictResponse(dict))
}

func (s *Server) getSeeds(c *gin.Context) {
	pk, err := crypto.PublicKeyFromHex(c.GetHeader(ParticipantKeyHeader))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + ParticipantKeyHeader + " header"})
		return
	}
	ctx, cancel := s.queryContext(c)
	defer cancel()
	dict, err := s.handle.SeedDict(ctx, pk)
	switch {
	case errors.Is(err, service.ErrNoSeedDict):
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrUnknownSumParticipant):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		s.serviceError(c, err)
	default:
		c.JSON(http.StatusOK, seedDictResponse(dict))
	}
}

func (s *Server) getScalar(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()
	scalar, ok, err := s.handle.Scalar(ctx)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scalar": scalar})
}

func (s *Server) getLength(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()
	length, ok, err := s.handle.Length(ctx)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"length": length})
}

func (s *Server) getRound(c *gin.Context) {
	if s.rounds == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "round history disabled"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid round id"})
		return
	}
	record, err := s.rounds.GetRound(id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Uint64("round", id).Msg("rest: round lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newRoundRecordResponse(record))
}

func (s *Server) serviceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrHandleClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away.
		status = 499
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
