package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/ride-relay/internal/bridge"
	"github.com/thereayou/ride-relay/internal/config"
	"github.com/thereayou/ride-relay/internal/handlers"
	"github.com/thereayou/ride-relay/internal/middleware"
	"github.com/thereayou/ride-relay/internal/relay"
	"github.com/thereayou/ride-relay/pkg/auth"
)

type Server struct {
	Config     config.Config
	Router     *gin.Engine
	Hub        *relay.Hub
	Redis      *redis.Client
	Bridge     *bridge.RedisBridge
	JWTManager *auth.JWTManager

	httpServer   *http.Server
	cancelBridge context.CancelFunc
}

func NewServer(cfg config.Config) (*Server, error) {
	hub := relay.NewHub(cfg.SendBuffer)
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	s := &Server{
		Config:     cfg,
		Hub:        hub,
		JWTManager: jwtMgr,
	}

	var revoked middleware.Revocations
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}

		s.Redis = rdb
		s.Bridge = bridge.NewRedisBridge(rdb, cfg.InstanceID, hub.Dispatcher())
		revoked = middleware.NewRedisRevocations(rdb)
	} else {
		log.Println("REDIS_URL not set, running as a single instance")
	}

	router := gin.Default()
	APIEndpoints(router, Handlers{
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.OriginAllowed),
		Emit:      handlers.NewEmitHandler(hub.Dispatcher()),
		Rooms:     handlers.NewRoomHandler(hub),
		EmitAuth:  middleware.ServiceAuth(jwtMgr, revoked, auth.ScopeEmit),
		ReadAuth:  middleware.ServiceAuth(jwtMgr, revoked, auth.ScopeRead),
	})
	s.Router = router

	return s, nil
}

// Start launches the HTTP listener and, when configured, the Redis bridge.
func (s *Server) Start() {
	if s.Bridge != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelBridge = cancel
		s.Hub.Dispatcher().StartFanout(ctx, s.Bridge, s.Config.FanoutBuffer, s.Config.FanoutTimeout)
		go func() {
			if err := s.Bridge.Run(ctx); err != nil {
				log.Printf("[bridge] Stopped: %v", err)
			}
		}()
	}

	s.httpServer = &http.Server{
		Addr:              s.Config.Address(),
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Relay %s listening on %s", s.Config.InstanceID, s.Config.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server run error: %v", err)
		}
	}()
}

// Stop stops accepting requests, closes every socket and the bridge.
func (s *Server) Stop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.Hub.Shutdown()

	if s.cancelBridge != nil {
		s.cancelBridge()
	}
	if s.Redis != nil {
		if cerr := s.Redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
