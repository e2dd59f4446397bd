package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/archdrop/archdrop/internal/config"
	"github.com/archdrop/archdrop/internal/observability"
)

// Instance is a bound, running HTTP(S) listener for one send or receive
// session, plus however the URL advertising it was exposed (local
// self-signed TLS, or a cloudflared tunnel).
type Instance struct {
	Port       int
	URL        string
	httpServer *http.Server
	tunnel     *Tunnel
}

// Start binds an ephemeral local port, serves router on it (behind a
// self-signed TLS cert in Local mode, behind a cloudflared tunnel
// otherwise), waits for the /health readiness gate, and composes the final
// URL a sender hands to a receiver (or vice versa).
//
// service is "send" or "receive"; fragment is the URL-fragment-only
// key/nonce payload that must never reach the server.
func Start(cfg config.Config, router http.Handler, service, token, fragment string, log *observability.Logger) (*Instance, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("server: bind: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	httpServer := &http.Server{Handler: router}

	inst := &Instance{Port: port, httpServer: httpServer}

	if cfg.Local {
		cert, err := generateSelfSignedCert()
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("server: generate cert: %w", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}

		go func() {
			_ = httpServer.ServeTLS(listener, "", "")
		}()

		if err := waitForReady(port, true, config.ReadinessTimeout); err != nil {
			_ = httpServer.Close()
			return nil, err
		}
		inst.URL = fmt.Sprintf("https://127.0.0.1:%d/%s/%s#%s", port, service, token, fragment)
		return inst, nil
	}

	go func() {
		_ = httpServer.Serve(listener)
	}()

	if err := waitForReady(port, false, config.ReadinessTimeout); err != nil {
		_ = httpServer.Close()
		return nil, err
	}

	tunnel, err := StartTunnel(port, cfg.MetricsPort)
	if err != nil {
		_ = httpServer.Close()
		return nil, fmt.Errorf("server: start tunnel: %w", err)
	}
	inst.tunnel = tunnel
	log.TunnelAcquired(tunnel.URL)

	hostname := strings.TrimSuffix(tunnel.URL, "/")
	inst.URL = fmt.Sprintf("%s/%s/%s#%s", hostname, service, token, fragment)
	return inst, nil
}

// Shutdown gracefully stops accepting new connections by handing ctx to
// http.Server.Shutdown, and tears down the tunnel child process if one was
// started. RunUntilShutdown calls it once any drain has ended.
func (inst *Instance) Shutdown(ctx context.Context) error {
	err := inst.httpServer.Shutdown(ctx)
	if inst.tunnel != nil {
		inst.tunnel.Stop()
	}
	return err
}

func waitForReady(port int, https bool, timeout time.Duration) error {
	scheme := "http"
	if https {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://127.0.0.1:%d/health", scheme, port)

	client := &http.Client{
		Timeout: config.ReadinessPollInterval,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}
		time.Sleep(config.ReadinessPollInterval)
	}
	return fmt.Errorf("server: readiness timeout waiting for %s", url)
}
