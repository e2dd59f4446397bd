// Package config holds the fixed operating parameters of the transfer core.
// ArchDrop takes no configuration file and consults no environment
// variables for these values: the chunk size and timeouts below are wire
// constants, not deployment knobs, so changing one on only one side of a
// transfer would simply break it.
package config

import "time"

// ChunkSize is the plaintext size of every chunk except possibly a file's
// last one.
const ChunkSize uint64 = 1024 * 1024

// AEADTagSize is the AES-GCM authentication tag appended to every sealed
// chunk.
const AEADTagSize = 16

// MaxFrameSize bounds a single length-prefixed frame body.
const MaxFrameSize = ChunkSize + AEADTagSize

const (
	// ReadinessTimeout bounds how long the runtime polls its own /health
	// endpoint before giving up on a local bind.
	ReadinessTimeout = 5 * time.Second
	// ReadinessPollInterval is the spacing between /health polls.
	ReadinessPollInterval = 100 * time.Millisecond

	// TunnelAcquireTimeout bounds how long to wait for cloudflared to
	// publish a quick-tunnel hostname.
	TunnelAcquireTimeout = 15 * time.Second
	// TunnelPollInterval is the spacing between /quicktunnel polls.
	TunnelPollInterval = 200 * time.Millisecond
	// TunnelKillWait bounds how long to wait for the cloudflared child to
	// exit after SIGKILL before giving up on it.
	TunnelKillWait = 5 * time.Second

	// DrainPollInterval is the spacing between checks of the active
	// transfer count during graceful shutdown's first stage.
	DrainPollInterval = 500 * time.Millisecond
)

// Config is the small set of values that do vary per invocation (as CLI
// flags, never as env vars or a config file), threaded explicitly from
// cmd/archdrop into the server runtime.
type Config struct {
	// Local, when true, binds with a self-signed TLS certificate instead
	// of launching a cloudflared tunnel.
	Local bool
	// Port is the local bind port. Zero means "pick an ephemeral port".
	Port int
	// MetricsPort is the local port cloudflared's --metrics endpoint binds
	// to while a tunnel is being acquired. Zero means "pick an ephemeral
	// port".
	MetricsPort int
}

// Default returns the zero-value configuration: ephemeral ports, tunnel
// mode.
func Default() Config {
	return Config{}
}
