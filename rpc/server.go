// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Swapso-App/BTC-module/wallet"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	// DefaultListen is the address the server listens on by default.
	DefaultListen = "127.0.0.1:3000"

	// readHeaderTimeout bounds how long a client may take to send headers.
	readHeaderTimeout = 10 * time.Second
)

var (
	// ErrServerStarted is returned when Start is called twice.
	ErrServerStarted = errors.New("rpc server already started")

	// ErrMissingWallet is returned when the server is created without a
	// wallet controller.
	ErrMissingWallet = errors.New("wallet controller is required")
)

// Config holds the dependencies of a Server.
type Config struct {
	// Listen is the TCP address to serve on.
	Listen string

	// Wallet serves every wallet operation.
	Wallet wallet.Controller

	// Quoter prices requests that carry their own UTXO set.
	Quoter *wallet.FeeQuoter

	// Params is the network addresses are validated against.
	Params *chaincfg.Params

	// AllowOrigins are the CORS origins allowed to call the API. Empty
	// allows any origin.
	AllowOrigins []string
}

// Server is the HTTP API of the wallet.
type Server struct {
	cfg    Config
	router *gin.Engine

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Wallet == nil {
		return nil, ErrMissingWallet
	}

	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	if cfg.Params == nil {
		cfg.Params = &chaincfg.MainNetParams
	}

	if cfg.Quoter == nil {
		cfg.Quoter = wallet.NewFeeQuoter(wallet.DefaultFeePolicy())
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg}
	s.router = s.newRouter()

	return s, nil
}

// newRouter builds the gin engine with middleware and routes.
func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.cfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowOrigins
	}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/fee-quote", s.handleFeeQuote)
	api.GET("/fees", s.handleFees)
	api.GET("/balance/:address", s.handleBalance)
	api.GET("/history/:address", s.handleHistory)
	api.POST("/addresses", s.handleNewAddress)
	api.GET("/addresses", s.handleAddresses)
	api.POST("/send", s.handleSend)

	return r
}

// requestLogger logs every request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debugf("%s %s -> %d (%v)", c.Request.Method,
			c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return ErrServerStarted
	}

	listener, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.httpSrv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("RPC server stopped: %v", err)
		}
	}()

	log.Infof("RPC server listening on %s", listener.Addr())

	return nil
}

// Addr returns the address the server listens on, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Stop gracefully shuts the server down, waiting for in-flight requests until
// ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.mu.Unlock()

	if httpSrv == nil {
		return nil
	}

	err := httpSrv.Shutdown(ctx)
	s.wg.Wait()

	log.Infof("RPC server stopped")

	return err
}
