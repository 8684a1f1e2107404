package cmd

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/notifier"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/provider"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/repository/memory"
	mongorepo "github.com/vibast-solutions/ms-go-fedapay-payments/app/repository/mongo"
	rediscache "github.com/vibast-solutions/ms-go-fedapay-payments/app/repository/redis"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/service"
	"github.com/vibast-solutions/ms-go-fedapay-payments/app/webhook"
	"github.com/vibast-solutions/ms-go-fedapay-payments/config"
)

type resourceStore interface {
	ApplyPayment(ctx context.Context, app *entity.PaymentApplication) (repository.ApplyResult, error)
	FindByReference(ctx context.Context, reference string) (*entity.PayableResource, error)
}

type auditStore interface {
	Append(ctx context.Context, record *entity.PaymentAuditRecord) error
}

type cleanupStack []func()

func (s *cleanupStack) push(fn func()) {
	*s = append(*s, fn)
}

func (s cleanupStack) run() {
	for i := len(s) - 1; i >= 0; i-- {
		s[i]()
	}
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	var cleanups cleanupStack
	resources, audit := mustCreateStores(cfg, &cleanups)

	fedaPay := provider.NewFedaPayClient(provider.FedaPayConfig{
		APIKey:                    cfg.FedaPay.APIKey,
		Environment:               cfg.FedaPay.Environment,
		BaseURL:                   cfg.FedaPay.BaseURL,
		CallbackURL:               cfg.FedaPay.CallbackURL,
		SuccessURL:                cfg.FedaPay.SuccessURL,
		CancelURL:                 cfg.FedaPay.CancelURL,
		WebhookSecret:             cfg.FedaPay.WebhookSecret,
		SignatureToleranceSeconds: cfg.FedaPay.SignatureToleranceSeconds,
		HTTPTimeout:               cfg.FedaPay.HTTPTimeout,
	})
	logrus.WithField("base_url", fedaPay.BaseURL()).Info("FedaPay client configured")

	var verifier provider.SignatureVerifier
	if fedaPay.SignaturesEnabled() {
		verifier = fedaPay
	} else {
		logrus.Warn("FEDAPAY_WEBHOOK_SECRET is empty, webhook signatures are not verified")
	}

	paymentService := service.NewPaymentService(
		resources,
		audit,
		fedaPay,
		webhook.NewValidator(verifier),
		mustCreateNotifier(cfg, &cleanups),
		cfg.Payments,
	)

	if cache := mustCreateStatusCache(cfg, &cleanups); cache != nil {
		paymentService.SetStatusCache(cache)
	}

	cleanup := func() {
		paymentService.Wait()
		cleanups.run()
	}

	return cfg, paymentService, cleanup
}

func mustCreateStores(cfg *config.Config, cleanups *cleanupStack) (resourceStore, auditStore) {
	switch cfg.Store.Driver {
	case config.StoreDriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to database")
		}

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.Ping(); err != nil {
			_ = db.Close()
			logrus.WithError(err).Fatal("Failed to ping database")
		}
		cleanups.push(func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close database")
			}
		})

		return repository.NewResourceRepository(db), repository.NewAuditRepository(db)

	case config.StoreDriverMemory:
		resources := memory.NewResourceStore()
		for _, reference := range cfg.Store.MemorySeed {
			resources.Put(&entity.PayableResource{Reference: reference})
		}
		logrus.WithField("resources", len(cfg.Store.MemorySeed)).Warn("Using in-memory store, payments are lost on restart")
		return resources, memory.NewAuditStore()

	default:
		ctx := context.Background()
		client, err := mongorepo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		cleanups.push(func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logrus.WithError(err).Warn("Failed to disconnect MongoDB")
			}
		})

		db := client.Database(cfg.Mongo.Database)
		return mongorepo.NewResourceRepository(db, cfg.Mongo.ResourceCollection),
			mongorepo.NewAuditRepository(ctx, db, cfg.Mongo.AuditCollection)
	}
}

func mustCreateNotifier(cfg *config.Config, cleanups *cleanupStack) notifier.Notifier {
	if len(cfg.Kafka.Brokers) == 0 {
		return notifier.NewLogNotifier()
	}

	kafkaNotifier := notifier.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.PaymentConfirmedTopic)
	cleanups.push(func() {
		if err := kafkaNotifier.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Kafka writer")
		}
	})
	logrus.WithField("topic", cfg.Kafka.PaymentConfirmedTopic).Info("Publishing payment confirmations to Kafka")
	return kafkaNotifier
}

// mustCreateStatusCache returns nil when REDIS_ADDR is not set.
func mustCreateStatusCache(cfg *config.Config, cleanups *cleanupStack) *rediscache.StatusCache {
	if cfg.Redis.Addr == "" {
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logrus.WithError(err).Fatal("Failed to ping Redis")
	}
	cleanups.push(func() {
		if err := client.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
	})

	return rediscache.NewStatusCache(client, cfg.Payments.StatusCacheTTL)
}
