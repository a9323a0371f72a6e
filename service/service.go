package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/nswdaq/test-harness/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	shutdownTimeout = 5 * time.Second
)

// Config selects where the servers listen.
type Config struct {
	HealthzAddr string
	MetricsAddr string
}

// NewConfig builds a Config with the default healthz address.
func NewConfig(metricsHost string, metricsPort int) Config {
	return Config{
		HealthzAddr: net.JoinHostPort(HealthzHost, strconv.Itoa(HealthzPort)),
		MetricsAddr: net.JoinHostPort(metricsHost, strconv.Itoa(metricsPort)),
	}
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg   Config
	log   log.Logger
	group errgroup.Group

	healthzAddr net.Addr
	metricsAddr net.Addr
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	return &Service{
		Healthz: NewHealthzServer(logger),
		Metrics: NewMetricsServer(),
		cfg:     cfg,
		log:     logger,
	}
}

// Start binds both listeners and serves them in the background.
func (s *Service) Start() error {
	s.log.Info("service starting")

	healthzLn, err := net.Listen("tcp", s.cfg.HealthzAddr)
	if err != nil {
		metrics.RecordErrorDetails("healthz_server", err)
		return fmt.Errorf("failed to listen on healthz address %s: %w", s.cfg.HealthzAddr, err)
	}
	metricsLn, err := net.Listen("tcp", s.cfg.MetricsAddr)
	if err != nil {
		_ = healthzLn.Close()
		metrics.RecordErrorDetails("metrics_server", err)
		return fmt.Errorf("failed to listen on metrics address %s: %w", s.cfg.MetricsAddr, err)
	}
	s.healthzAddr = healthzLn.Addr()
	s.metricsAddr = metricsLn.Addr()

	s.group.Go(func() error {
		s.log.Info("starting healthz server", "addr", s.healthzAddr)
		if err := s.Healthz.Serve(healthzLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error running healthz server", "err", err)
			metrics.RecordErrorDetails("healthz_server", err)
			return err
		}
		return nil
	})
	s.group.Go(func() error {
		s.log.Info("starting metrics server", "addr", s.metricsAddr)
		if err := s.Metrics.Serve(metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error running metrics server", "err", err)
			metrics.RecordErrorDetails("metrics_server", err)
			return err
		}
		return nil
	})

	s.log.Info("service started")
	return nil
}

// HealthzAddr returns the bound healthz address, nil before Start.
func (s *Service) HealthzAddr() net.Addr { return s.healthzAddr }

// MetricsAddr returns the bound metrics address, nil before Start.
func (s *Service) MetricsAddr() net.Addr { return s.metricsAddr }

// Shutdown stops both servers and waits for them to return.
func (s *Service) Shutdown() error {
	s.log.Info("service shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.Healthz.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.log.Info("healthz stopped")

	if err := s.Metrics.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.log.Info("metrics stopped")

	if err := s.group.Wait(); err != nil {
		errs = append(errs, err)
	}

	s.log.Info("service stopped")
	return errors.Join(errs...)
}
