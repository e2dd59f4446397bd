// Command archdrop sends or receives files over a one-shot, token-gated
// HTTP(S) session. It is thin glue: flag parsing and process wiring only,
// the transfer logic lives in the internal packages.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/archdrop/archdrop/internal/config"
	archdropcrypto "github.com/archdrop/archdrop/internal/crypto"
	"github.com/archdrop/archdrop/internal/manifest"
	"github.com/archdrop/archdrop/internal/observability"
	"github.com/archdrop/archdrop/internal/server"
	"github.com/archdrop/archdrop/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "send":
		runSend(os.Args[2:])
	case "receive":
		runReceive(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: archdrop send <path>... [--local]")
	fmt.Fprintln(os.Stderr, "       archdrop receive [destination] [--local]")
}

func runSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	local := fs.Bool("local", false, "serve over self-signed TLS instead of a reverse tunnel")
	fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		usage()
		os.Exit(2)
	}

	log := observability.NewLogger("send", os.Stdout)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	m, err := manifest.Build(paths, "")
	if err != nil {
		log.Fatal(err, "failed to build manifest")
	}

	key, err := archdropcrypto.NewKey()
	if err != nil {
		log.Fatal(err, "failed to generate session key")
	}
	sessionNonce, err := archdropcrypto.NewNonceBase()
	if err != nil {
		log.Fatal(err, "failed to generate session nonce")
	}
	token := uuid.NewString()

	sess, err := session.NewSend(token, key, m)
	if err != nil {
		log.Fatal(err, "failed to build session")
	}

	deps := &server.Deps{Session: sess, Registry: session.NewRegistry(), Log: log, Metrics: metrics}
	router := server.BuildSendRouter(deps)

	fragment := archdropcrypto.SessionFragment{Key: key.Base64(), NonceBase: sessionNonce.Base64()}.FragmentString()

	cfg := config.Default()
	cfg.Local = *local
	inst, err := server.Start(cfg, router, "send", token, fragment, log)
	if err != nil {
		log.Fatal(err, "failed to start server")
	}

	fmt.Println(inst.URL)
	log.Info(fmt.Sprintf("serving %d file(s), %d total chunks", len(m.Files), m.TotalChunks()))

	server.RunUntilShutdown(inst, sess, deps.Registry, log)
}

func runReceive(args []string) {
	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	local := fs.Bool("local", false, "serve over self-signed TLS instead of a reverse tunnel")
	fs.Parse(args)

	dest := "."
	if rest := fs.Args(); len(rest) > 0 {
		dest = rest[0]
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "archdrop: create destination: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger("receive", os.Stdout)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	key, err := archdropcrypto.NewKey()
	if err != nil {
		log.Fatal(err, "failed to generate session key")
	}
	sessionNonce, err := archdropcrypto.NewNonceBase()
	if err != nil {
		log.Fatal(err, "failed to generate session nonce")
	}
	token := uuid.NewString()

	sess, err := session.NewReceive(token, key, dest)
	if err != nil {
		log.Fatal(err, "failed to build session")
	}

	deps := &server.Deps{Session: sess, Registry: session.NewRegistry(), Log: log, Metrics: metrics}
	router := server.BuildReceiveRouter(deps)

	fragment := archdropcrypto.SessionFragment{Key: key.Base64(), NonceBase: sessionNonce.Base64()}.FragmentString()

	cfg := config.Default()
	cfg.Local = *local
	inst, err := server.Start(cfg, router, "receive", token, fragment, log)
	if err != nil {
		log.Fatal(err, "failed to start server")
	}

	fmt.Println(inst.URL)
	log.Info("waiting for uploads into " + dest)

	server.RunUntilShutdown(inst, sess, deps.Registry, log)
}
