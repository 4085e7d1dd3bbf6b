// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/dcrm-backend/internal/cache"
	"github.com/unclebandit/dcrm-backend/internal/config"
	"github.com/unclebandit/dcrm-backend/internal/controller"
	"github.com/unclebandit/dcrm-backend/internal/db"
	"github.com/unclebandit/dcrm-backend/internal/handler"
	"github.com/unclebandit/dcrm-backend/internal/logger"
	"github.com/unclebandit/dcrm-backend/internal/queue"
	"github.com/unclebandit/dcrm-backend/internal/repository"
	"github.com/unclebandit/dcrm-backend/internal/service"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dcrm-server")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !dotenv {
		log.Info("no .env file found, relying on OS environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, log); err != nil {
		log.Fatal("failed to apply migrations", zap.Error(err))
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	leadRepo := &repository.LeadRepository{DB: conn}
	messageRepo := &repository.MessageRepository{DB: conn}
	assignmentRepo := &repository.AssignmentRepository{DB: conn}

	scope := &service.ScopeService{
		CampaignRepo: campaignRepo,
		LeadRepo:     leadRepo,
		MessageRepo:  messageRepo,
		Logger:       log,
	}
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()
		scope.Cache = &cache.ScopeCache{Client: client, TTL: cfg.Redis.ScopeTTL}
		log.Info("scope cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.ScopeTTL))
	}

	q, closeQueue := newQueue(cfg, log, assignmentRepo, leadRepo, messageRepo)
	defer closeQueue()

	assignments := &service.AssignmentService{
		Scope:          scope,
		AssignmentRepo: assignmentRepo,
		Queue:          q,
		Topic:          cfg.AssignmentQueue,
		Logger:         log,
	}

	scopeHandler := handler.NewScopeHandler(scope)
	assignmentController := &controller.AssignmentController{
		AssignmentService: assignments,
		ResolveTimeout:    cfg.ResolveTimeout,
		Logger:            log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)

	r.Route("/admin/campaign", func(r chi.Router) {
		r.Get("/get-campaign-leads/", scopeHandler.GetCampaignLeads)
		r.Get("/get-campaign-messages/", scopeHandler.GetCampaignMessages)
		r.Get("/lead-filter-options/", scopeHandler.GetLeadFilterOptions)
		r.Post("/messageassignment/add/", assignmentController.AddMessageAssignment)
		r.Get("/{id}/assignments", assignmentController.ListCampaignAssignments)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server running", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newQueue publishes to RabbitMQ when AMQP_URL is set. Otherwise assignments
// are personalized in-process.
func newQueue(
	cfg *config.Config,
	log *zap.Logger,
	assignments repository.AssignmentRepositoryInterface,
	leads repository.LeadRepositoryInterface,
	messages repository.MessageRepositoryInterface,
) (queue.Queue, func()) {
	if cfg.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		log.Info("publishing assignments to rabbitmq", zap.String("queue", cfg.AssignmentQueue))
		return q, func() { q.Close() }
	}

	q := queue.NewInMemoryQueue(log)
	worker := service.NewPersonalizationWorker(assignments, leads, messages, log)
	if err := q.Subscribe(cfg.AssignmentQueue, worker.Handle); err != nil {
		log.Fatal("failed to subscribe personalization worker", zap.Error(err))
	}
	log.Info("personalizing assignments in-process")
	return q, q.Wait
}
