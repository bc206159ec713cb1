package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/hyfoxus/bank-rest/internal/config"
	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/hyfoxus/bank-rest/internal/usecase/expiry"
	"github.com/hyfoxus/bank-rest/internal/usecase/seeder"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"google.golang.org/grpc"
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start gRPC + HTTP servers and the expiry sweeper",
		Run: func(cmd *cobra.Command, args []string) {
			app := fx.New(
				coreModule,
				transportModule,
				fx.Invoke(
					SeedAdmin,
					RegisterGRPCLifecycle,
					RegisterHTTPLifecycle,
					RegisterSweeperLifecycle,
				),
			)
			app.Run()
		},
	}
}

// SeedAdmin makes sure the bootstrap administrator exists before serving.
// Seeding is skipped with a warning when ADMIN_PASSWORD is unset.
func SeedAdmin(lc fx.Lifecycle, users domain.UserRepository, cfg *config.Config, log logrus.FieldLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.AdminPassword == "" {
				log.WithField("admin_name", cfg.AdminName).Warn("ADMIN_PASSWORD not set, skipping admin seed")
				return nil
			}
			created, err := seeder.NewAdminSeeder(users, cfg.AdminName, cfg.AdminPassword).Seed(ctx)
			if err != nil {
				return err
			}
			if created {
				log.WithField("user_id", seeder.SystemAdminID.String()).Info("admin user seeded")
			}
			return nil
		},
	})
}

func RegisterGRPCLifecycle(lc fx.Lifecycle, srv *grpc.Server, cfg *config.Config, log logrus.FieldLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
				if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					log.WithError(err).Error("gRPC server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping gRPC server")
			srv.GracefulStop()
			return nil
		},
	})
}

func RegisterHTTPLifecycle(lc fx.Lifecycle, srv *http.Server, log logrus.FieldLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.WithField("addr", srv.Addr).Info("HTTP server listening")
				if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("HTTP server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

// RegisterSweeperLifecycle runs the expiry sweep on the configured cron schedule
func RegisterSweeperLifecycle(lc fx.Lifecycle, sweeper *expiry.Sweeper, cfg *config.Config, log logrus.FieldLogger) error {
	c := cron.New()
	sweepCtx, cancel := context.WithCancel(context.Background())

	_, err := c.AddFunc(cfg.ExpirySweepSchedule, func() {
		if _, err := sweeper.Sweep(sweepCtx); err != nil {
			log.WithError(err).Error("expiry sweep failed")
		}
	})
	if err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.WithField("schedule", cfg.ExpirySweepSchedule).Info("expiry sweeper scheduled")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
