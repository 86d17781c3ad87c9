package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"finanzas/internal/shared/config"
	"finanzas/internal/shared/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler      http.Handler
	Addr         string
	TLSEnabled   bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
	AllowedHosts []string
}

// Servers is the API listener plus the optional plain HTTP redirector.
type Servers struct {
	api      *http.Server
	redirect *http.Server
	tls      bool
	certPath string
	keyPath  string
}

// NewServers builds the listeners without starting them.
func NewServers(scfg ServerConfig) *Servers {
	s := &Servers{
		api: &http.Server{
			Addr:              scfg.Addr,
			Handler:           scfg.Handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		tls:      scfg.TLSEnabled,
		certPath: scfg.CertPath,
		keyPath:  scfg.KeyPath,
	}
	if scfg.TLSEnabled && scfg.RedirectHTTP {
		s.redirect = &http.Server{
			Addr:              ":80",
			Handler:           redirectHandler(scfg.AllowedHosts),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return s
}

// Start serves in the background. A listener failure is sent on the
// returned channel.
func (s *Servers) Start() <-chan error {
	errc := make(chan error, 2)

	if s.redirect != nil {
		go func() {
			log.Printf("HTTP redirect server starting on %s", s.redirect.Addr)
			if err := s.redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	go func() {
		var err error
		if s.tls {
			log.Printf("HTTPS server starting on %s", s.api.Addr)
			err = s.api.ListenAndServeTLS(s.certPath, s.keyPath)
		} else {
			log.Printf("HTTP server starting on %s", s.api.Addr)
			err = s.api.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	return errc
}

// Shutdown drains both listeners and then runs cleanup in order, all within
// timeout.
func (s *Servers) Shutdown(timeout time.Duration, cleanup ...func(context.Context) error) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.redirect != nil {
		if err := s.redirect.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down redirect server: %v", err)
		}
	}
	if err := s.api.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	for _, fn := range cleanup {
		if err := fn(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}

	log.Println("Server stopped")
}

// redirectHandler sends every request to the https origin of an allowed
// host. The port is dropped so the default TLS port is used.
func redirectHandler(allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}
		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}

		name, _, err := net.SplitHostPort(host)
		if err != nil {
			name = host
		}
		if strings.Contains(name, ":") {
			name = "[" + strings.Trim(name, "[]") + "]"
		}

		http.Redirect(w, r, "https://"+name+r.RequestURI, http.StatusMovedPermanently)
	})
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:      handler,
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		TLSEnabled:   cfg.TLS.Enabled,
		CertPath:     cfg.TLS.CertPath,
		KeyPath:      cfg.TLS.KeyPath,
		RedirectHTTP: cfg.TLS.RedirectHTTP,
		AllowedHosts: cfg.Server.AllowedHosts,
	}
}
