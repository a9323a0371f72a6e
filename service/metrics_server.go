package service

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	server *http.Server
}

func NewMetricsServer() *MetricsServer {
	m := &MetricsServer{}
	m.server = &http.Server{Handler: m.Handler()}
	return m
}

func (m *MetricsServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.Handler())
	return hdlr
}

// Serve blocks until the server is shut down.
func (m *MetricsServer) Serve(ln net.Listener) error {
	return m.server.Serve(ln)
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
