package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/travel_booking/configs"
	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/handlers"
	"github.com/anjiri1684/travel_booking/jobs"
	"github.com/anjiri1684/travel_booking/logger"
	"github.com/anjiri1684/travel_booking/mq"
	"github.com/anjiri1684/travel_booking/notifications"
	"github.com/anjiri1684/travel_booking/payments"
	"github.com/anjiri1684/travel_booking/routes"
	"github.com/anjiri1684/travel_booking/services"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}
	logg := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, err := database.Open(cfg.DBDriver, cfg.DatabaseURL, logg)
	if err != nil {
		logg.WithError(err).Fatal("🔥 Database unavailable")
	}

	gateway := payments.NewChapaClient(payments.ChapaConfig{
		BaseURL:   cfg.ChapaBaseURL,
		SecretKey: cfg.ChapaSecretKey,
		Timeout:   cfg.ChapaTimeout,
	})
	bookingSvc := services.NewBookingService(store, gateway, services.BookingConfig{
		Currency:        cfg.Currency,
		TxRefPrefix:     cfg.TxRefPrefix,
		CallbackBaseURL: cfg.PublicBaseURL,
		ReturnURL:       cfg.ReturnURL,
	}, logg)

	mailer := notifications.NewMailer(notifications.BrevoConfig{
		APIKey:      cfg.BrevoAPIKey,
		SenderEmail: cfg.EmailSender,
		SenderName:  cfg.EmailSenderName,
	}, logg)
	dispatcher := notifications.NewDispatcher(store, mailer, notifications.DispatcherConfig{
		MaxRetries: cfg.NotifyMaxRetries,
		Backoff:    cfg.NotifyBackoff,
		From:       cfg.EmailSender,
		AppName:    cfg.AppName,
	}, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, deliveries, closeQueue := connectQueue(ctx, cfg, logg)
	defer closeQueue()

	workersDone := make(chan struct{})
	go func() {
		notifications.NewWorker(dispatcher, cfg.NotifyWorkers, logg).Run(ctx, deliveries)
		close(workersDone)
	}()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logg))))
	if _, err := c.AddJob(cfg.OutboxSchedule, jobs.NewOutboxRelay(store, pub, cfg.OutboxBatch, logg)); err != nil {
		logg.WithError(err).Fatal("🔥 Invalid OUTBOX_SCHEDULE")
	}
	if _, err := c.AddJob(cfg.ReconcileSchedule, jobs.NewReconcileJob(bookingSvc, cfg.ReconcileAfter, cfg.ReconcileBatch, logg)); err != nil {
		logg.WithError(err).Fatal("🔥 Invalid RECONCILE_SCHEDULE")
	}
	c.Start()
	logg.Info("✅ Cron jobs for outbox relay and payment reconciliation scheduled successfully.")

	app := routes.NewApp(routes.AppConfig{Name: cfg.AppName, TimeZone: cfg.TimeZone, AccessLog: true}, logg)
	routes.Register(app, handlers.New(store, bookingSvc, cfg.WebhookSecret, logg), cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		logg.Info("Shutting down...")
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			logg.WithError(err).Error("HTTP shutdown")
		}
	}()

	logg.WithField("addr", cfg.HTTPAddr).Info("✅ Server is running")
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		logg.WithError(err).Fatal("🔥 Server failed to start")
	}

	stop()
	<-c.Stop().Done()
	<-workersDone
	logg.Info("👋 Bye")
}

// connectQueue wires the outbox relay to the notification workers, through
// RabbitMQ when RABBIT_URL is set and in-process otherwise.
func connectQueue(ctx context.Context, cfg config.Config, logg *logrus.Logger) (jobs.Publisher, <-chan amqp.Delivery, func()) {
	if cfg.RabbitURL == "" {
		logg.Warn("RABBIT_URL is empty, notification jobs are delivered in-process")
		local := mq.NewLocal(cfg.OutboxBatch)
		return local, local.Deliveries(), func() {}
	}

	var pub *mq.Publisher
	var cons *mq.Consumer
	for attempt := 1; ; attempt++ {
		var err error
		pub, err = mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err == nil {
			cons, err = mq.NewConsumer(cfg.RabbitURL, cfg.NotifyExchange, cfg.NotifyQueue,
				[]string{notifications.RoutingKeyBookingConfirmed}, cfg.NotifyWorkers*2)
			if err != nil {
				_ = pub.Close()
			}
		}
		if err == nil {
			break
		}
		if attempt == 10 {
			logg.WithError(err).Fatal("🔥 RabbitMQ unavailable")
		}
		logg.WithError(err).WithField("attempt", attempt).Warn("RabbitMQ connect failed; retry in 2s")
		time.Sleep(2 * time.Second)
	}

	deliveries, err := cons.Deliveries(ctx)
	if err != nil {
		logg.WithError(err).Fatal("🔥 Could not start consuming notifications")
	}
	logg.WithFields(logrus.Fields{"exchange": cfg.NotifyExchange, "queue": cfg.NotifyQueue}).Info("✅ Connected to RabbitMQ")

	return pub, deliveries, func() {
		_ = cons.Close()
		_ = pub.Close()
	}
}
