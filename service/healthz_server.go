package service

import (
	"context"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

type HealthzServer struct {
	server *http.Server
	log    log.Logger
}

func NewHealthzServer(logger log.Logger) *HealthzServer {
	h := &HealthzServer{log: logger}
	h.server = &http.Server{Handler: h.Handler()}
	return h
}

func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Serve blocks until the server is shut down.
func (h *HealthzServer) Serve(ln net.Listener) error {
	return h.server.Serve(ln)
}

func (h *HealthzServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
