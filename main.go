package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"

	"faq-agent/dao"
	"faq-agent/internal/config"
	"faq-agent/internal/kbclient"
	"faq-agent/internal/notify"
	"faq-agent/route"
	"faq-agent/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Main] invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Printf("[Main] close: %v", err)
			}
		}
	}()

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = dao.NewRedisClient(cfg.Session.Redis.Addr, cfg.Session.Redis.Password, cfg.Session.Redis.DB)
		closers = append(closers, redisClient)
	}

	sessions := newSessionStore(cfg, redisClient)

	ticketStore, err := newTicketStore(ctx, cfg, redisClient)
	if err != nil {
		log.Printf("[Main] open ticket store: %v", err)
		return
	}
	if c, ok := ticketStore.(io.Closer); ok {
		closers = append(closers, c)
	}

	var events notify.Publisher = notify.Nop{}
	if len(cfg.Notify.Brokers) > 0 {
		events = notify.NewKafkaPublisher(cfg.Notify.Brokers, cfg.Notify.Topic)
		log.Printf("[Main] ticket events -> kafka topic %s", cfg.Notify.Topic)
	}
	closers = append(closers, events)

	kb := kbclient.NewClient(kbclient.Config{
		RuntimeURL:      cfg.Knowledge.Endpoint,
		AuthoringURL:    cfg.Knowledge.AuthoringEndpoint,
		KnowledgeBaseID: cfg.Knowledge.KnowledgeBaseID,
		EndpointKey:     cfg.Knowledge.EndpointKey,
		SubscriptionKey: cfg.Knowledge.SubscriptionKey,
		Timeout:         cfg.Knowledge.Timeout,
	})
	tickets := service.NewTicketManager(ticketStore, events)
	chatSvc := service.NewChatService(kb, sessions, tickets)

	gin.SetMode(cfg.Server.GinMode)
	r := gin.Default()
	route.Register(r, chatSvc, tickets)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go func() {
		log.Printf("[Main] listening on %s (sessions=%s tickets=%s)", cfg.Server.Addr, cfg.Session.Backend, cfg.Tickets.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Main] server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("[Main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] shutdown: %v", err)
	}
}

type sessionStore interface {
	service.SessionStore
	Ping(ctx context.Context) error
}

func newSessionStore(cfg *config.Config, client *redis.Client) sessionStore {
	if cfg.Session.Backend == config.BackendMemory {
		return dao.NewMemorySessionStore()
	}
	return dao.NewRedisSessionStore(client, cfg.Session.TTL)
}

func newTicketStore(ctx context.Context, cfg *config.Config, client *redis.Client) (service.TicketStore, error) {
	switch cfg.Tickets.Backend {
	case config.BackendMemory:
		log.Println("[Main] tickets are kept in memory and lost on restart")
		return dao.NewMemoryTicketStore(), nil
	case config.BackendRedis:
		return dao.NewRedisTicketStore(client), nil
	case config.BackendSQLite:
		return dao.NewSQLiteTicketStore(cfg.Tickets.SQLitePath)
	case config.BackendPostgres:
		return dao.NewPostgresTicketStore(ctx, cfg.Tickets.PostgresDSN)
	}
	return nil, fmt.Errorf("unknown ticket backend %q", cfg.Tickets.Backend)
}
