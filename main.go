package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

var (
	port        = flag.String("port", "8000", "port number")
	dir         = flag.String("dir", ".", "directory to serve")
	readTimeout = flag.Duration("read-timeout", 0, "limit on waiting for the request line, 0 waits forever")
	logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logJSON     = flag.Bool("log-json", false, "log as JSON instead of console text")
)

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if *logJSON {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func serve(ctx context.Context, log zerolog.Logger) error {
	ln, err := net.Listen("tcp", ":"+*port)
	if err != nil {
		return err
	}
	srv := &Server{
		Files: &FileServer{
			Root: Root(*dir),
			MIME: DefaultMIMETypes,
			Log:  log,
		},
		ReadTimeout: *readTimeout,
	}
	return srv.Serve(ctx, ln)
}

func main() {
	flag.Parse()
	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shut down")
}
