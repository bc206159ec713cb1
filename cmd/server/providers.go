package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/hyfoxus/bank-rest/internal/adapter/auth"
	"github.com/hyfoxus/bank-rest/internal/adapter/events"
	grpcadapter "github.com/hyfoxus/bank-rest/internal/adapter/grpc"
	"github.com/hyfoxus/bank-rest/internal/adapter/notify"
	"github.com/hyfoxus/bank-rest/internal/adapter/repository/memory"
	"github.com/hyfoxus/bank-rest/internal/adapter/repository/postgres"
	"github.com/hyfoxus/bank-rest/internal/adapter/rest"
	"github.com/hyfoxus/bank-rest/internal/config"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/hyfoxus/bank-rest/internal/logging"
	"github.com/hyfoxus/bank-rest/internal/usecase/blockrequest"
	"github.com/hyfoxus/bank-rest/internal/usecase/card"
	"github.com/hyfoxus/bank-rest/internal/usecase/expiry"
	"github.com/hyfoxus/bank-rest/internal/usecase/transfer"
	"github.com/hyfoxus/bank-rest/internal/usecase/user"
	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"google.golang.org/grpc"
)

// coreModule provides configuration, logging, storage and use cases
var coreModule = fx.Options(
	fx.Provide(
		config.NewConfig,
		newLogger,
		newStore,
		newEventPublisher,
		newNotifier,
		transfer.NewTransferService,
		card.NewCardService,
		blockrequest.NewRequestService,
		user.NewUserService,
		expiry.NewSweeper,
		newVerifier,
		newIssuer,
	),
)

// transportModule provides the gRPC and HTTP servers
var transportModule = fx.Options(
	fx.Provide(
		grpcadapter.NewServer,
		newGRPCServer,
		newRESTHandler,
		newHTTPServer,
	),
)

func newLogger(cfg *config.Config) logrus.FieldLogger {
	return logging.New(os.Stdout, cfg.LogLevel).WithField("service", "bank-rest")
}

// Store is the set of repositories backing the use cases
type Store struct {
	fx.Out

	Users     domain.UserRepository
	Cards     domain.CardRepository
	Requests  domain.RequestRepository
	Transfers domain.TransferRepository
	Ledger    domain.Ledger
}

func newStore(lc fx.Lifecycle, cfg *config.Config, log logrus.FieldLogger) (Store, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, state is lost on exit")
		s := memory.NewStore()
		return Store{
			Users:     memory.NewUserRepository(s),
			Cards:     memory.NewCardRepository(s, cfg.LockTimeout),
			Requests:  memory.NewRequestRepository(s),
			Transfers: memory.NewTransferRepository(s),
			Ledger:    memory.NewLedger(s, cfg.LockTimeout),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.NewDB(ctx, cfg.DBConn)
	if err != nil {
		return Store{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})

	return Store{
		Users:     postgres.NewUserRepository(db),
		Cards:     postgres.NewCardRepository(db, cfg.LockTimeout),
		Requests:  postgres.NewRequestRepository(db),
		Transfers: postgres.NewTransferRepository(db),
		Ledger:    postgres.NewLedger(db, cfg.LockTimeout),
	}, nil
}

func newEventPublisher(lc fx.Lifecycle, cfg *config.Config, log logrus.FieldLogger) domain.EventPublisher {
	if !cfg.EventsEnabled() {
		return events.NopPublisher{}
	}
	p := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
	log.WithField("topic", cfg.KafkaTopic).Info("publishing card events to kafka")
	return p
}

func newNotifier(cfg *config.Config, log logrus.FieldLogger) domain.Notifier {
	if !cfg.NotificationsEnabled() {
		return notify.Nop{}
	}
	return notify.NewEmailNotifier(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.NotifyFrom,
		To:       cfg.NotifyTo,
	}, log)
}

func newVerifier(cfg *config.Config) *auth.Verifier {
	return auth.NewVerifier(cfg.JWTSecret)
}

func newIssuer(cfg *config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
}

func newGRPCServer(srv *grpcadapter.Server, verifier *auth.Verifier) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(grpcadapter.AuthInterceptor(verifier)),
	)
	grpcadapter.RegisterBankServiceServer(s, srv)
	return s
}

func newRESTHandler(
	transfers *transfer.TransferService,
	cards *card.CardService,
	requests *blockrequest.RequestService,
	users *user.UserService,
	verifier *auth.Verifier,
	issuer *auth.Issuer,
	log logrus.FieldLogger,
) *rest.Handler {
	return rest.NewHandler(transfers, cards, requests, users, verifier, issuer, log)
}

func newHTTPServer(cfg *config.Config, h *rest.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
