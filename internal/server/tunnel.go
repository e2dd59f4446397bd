package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/archdrop/archdrop/internal/config"
)

// Tunnel supervises a cloudflared quick-tunnel child process exposing a
// local port to a trycloudflare.com hostname.
type Tunnel struct {
	cmd *exec.Cmd
	URL string
}

type quickTunnelResponse struct {
	Hostname string `json:"hostname"`
}

// StartTunnel spawns cloudflared pointed at localPort and polls its
// --metrics endpoint's /quicktunnel path for the published hostname, rather
// than scraping stderr for a trycloudflare.com URL: the metrics endpoint is
// stable across cloudflared log-format changes.
func StartTunnel(localPort, metricsPort int) (*Tunnel, error) {
	metricsListener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", metricsPort))
	if err != nil {
		return nil, fmt.Errorf("tunnel: reserve metrics port: %w", err)
	}
	actualMetricsPort := metricsListener.Addr().(*net.TCPAddr).Port
	metricsListener.Close()

	cmd := exec.Command("cloudflared", "tunnel",
		"--url", fmt.Sprintf("http://localhost:%d", localPort),
		"--metrics", fmt.Sprintf("localhost:%d", actualMetricsPort),
		"--no-autoupdate",
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tunnel: start cloudflared: %w", err)
	}

	hostname, err := pollQuickTunnel(actualMetricsPort, config.TunnelAcquireTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	return &Tunnel{cmd: cmd, URL: "https://" + hostname}, nil
}

func pollQuickTunnel(metricsPort int, timeout time.Duration) (string, error) {
	url := fmt.Sprintf("http://localhost:%d/quicktunnel", metricsPort)
	client := &http.Client{Timeout: config.TunnelPollInterval}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			var body quickTunnelResponse
			decodeErr := json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if decodeErr == nil && body.Hostname != "" {
				return body.Hostname, nil
			}
		}
		time.Sleep(config.TunnelPollInterval)
	}
	return "", fmt.Errorf("tunnel: timed out waiting for quick tunnel hostname")
}

// Stop sends SIGKILL to the cloudflared child and waits up to
// TunnelKillWait for it to exit, logging and proceeding if it does not.
func (t *Tunnel) Stop() {
	if t.cmd.Process == nil {
		return
	}
	_ = t.cmd.Process.Kill()

	done := make(chan struct{})
	go func() {
		_ = t.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(config.TunnelKillWait):
		fmt.Printf("tunnel: cloudflared did not exit within %s\n", config.TunnelKillWait)
	}
}
