// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/unclebandit/dcrm-backend/internal/config"
	"github.com/unclebandit/dcrm-backend/internal/db"
	"github.com/unclebandit/dcrm-backend/internal/logger"
	"github.com/unclebandit/dcrm-backend/internal/queue"
	"github.com/unclebandit/dcrm-backend/internal/repository"
	"github.com/unclebandit/dcrm-backend/internal/service"
)

type options struct {
	campaignID int
	force      bool
	queue      string
}

// parseFlags reads the command line. With --campaign the worker personalizes
// that campaign once and exits instead of consuming the queue.
func parseFlags(args []string, defaultQueue string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("worker", pflag.ContinueOnError)
	fs.IntVar(&opts.campaignID, "campaign", 0, "personalize every assignment of this campaign and exit")
	fs.BoolVar(&opts.force, "force", false, "re-render assignments that already have a personalized message")
	fs.StringVar(&opts.queue, "queue", defaultQueue, "queue to consume assignment jobs from")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.campaignID < 0 {
		return opts, fmt.Errorf("--campaign must be a positive id")
	}
	return opts, nil
}

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		panic(err)
	}

	opts, err := parseFlags(os.Args[1:], cfg.AssignmentQueue)
	if err == pflag.ErrHelp {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "dcrm-worker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	worker := service.NewPersonalizationWorker(
		&repository.AssignmentRepository{DB: conn},
		&repository.LeadRepository{DB: conn},
		&repository.MessageRepository{DB: conn},
		log,
	)
	worker.Force = opts.force

	if opts.campaignID > 0 {
		n, err := worker.PersonalizeCampaign(ctx, opts.campaignID)
		if err != nil {
			log.Fatal("campaign personalization failed", zap.Int("campaign_id", opts.campaignID), zap.Error(err))
		}
		log.Info("campaign personalized", zap.Int("campaign_id", opts.campaignID), zap.Int("written", n))
		return
	}

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required to consume assignment jobs")
	}
	q, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer q.Close()

	if err := q.Subscribe(opts.queue, worker.Handle); err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for messages", zap.String("queue", opts.queue))
	<-ctx.Done()
	log.Info("worker stopping")
}
