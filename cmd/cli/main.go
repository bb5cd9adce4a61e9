// Command snapshare is a CLI client for the SnapShare service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/status"

	"github.com/and161185/snapshare/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `snapshare CLI
Usage:
  snapshare [-config file] [-addr HOST:PORT] [-cacert file | -insecure | -plaintext] [-v] <cmd> [args]

Commands:
  version
`)
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].usage)
	}
	os.Exit(2)
}

// newLogger writes development-style logs to stderr, warnings only unless verbose.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = !verbose
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// applyFlags overrides file configuration with explicitly set global flags.
func applyFlags(cfg *config.Config, set map[string]bool, addr, caPath string, insecure, plaintext bool) {
	if set["addr"] {
		cfg.Server = addr
	}
	if set["cacert"] {
		cfg.CACert = caPath
	}
	if set["insecure"] {
		cfg.Insecure = insecure
	}
	if set["plaintext"] {
		cfg.Plaintext = plaintext
	}
}

// run executes one command and returns its error.
func run(ctx context.Context, cfg config.Config, log *zap.Logger, name string, args []string, out io.Writer) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	s, err := openSession(ctx, cfg, log, sessionOpts{auth: cmd.auth, local: cmd.auth})
	if err != nil {
		return err
	}
	defer s.Close()
	return cmd.run(ctx, s, args, out)
}

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	cfgPath := flag.String("config", config.DefaultConfigPath, "config file (TOML)")
	addr := flag.String("addr", "", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "no TLS (dev); the token is sent in cleartext")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	name := flag.Arg(0)
	if name == "version" {
		fmt.Printf("snapshare %s (%s)\n", version, buildDate)
		return
	}
	if _, ok := commands[name]; !ok {
		usage()
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(&cfg, set, *addr, *caPath, *insecure, *plaintext)

	log := newLogger(*verbose)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	if name != "watch" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	if err := run(ctx, cfg, log, name, flag.Args()[1:], os.Stdout); err != nil {
		fail(err)
	}
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
