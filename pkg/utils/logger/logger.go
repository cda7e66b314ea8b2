// Package logger configures the global zerolog logger for the miner binaries.
package logger

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// LevelForEnvironment maps ENVIRONMENT values onto a log level. The second
// return value reports whether the environment was recognised.
func LevelForEnvironment(environment string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "dev", "test":
		return zerolog.TraceLevel, true
	case "prod", "":
		return zerolog.InfoLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Setup points the global logger at out and applies the level. It is split
// from Init so tests can capture output.
func Setup(out io.Writer, level zerolog.Level) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out}).With().Caller().Logger()
	zerolog.SetGlobalLevel(level)
}

func initLogger() {
	debug := flag.Bool("debug", false, "sets log level to debug")
	trace := flag.Bool("trace", false, "sets log level to trace")
	info := flag.Bool("info", false, "sets log level to info (default)")
	flag.Parse()

	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "prod"
	}

	logLevel, known := LevelForEnvironment(environment)
	switch {
	case *debug:
		logLevel = zerolog.DebugLevel
	case *trace:
		logLevel = zerolog.TraceLevel
	case *info:
		logLevel = zerolog.InfoLevel
	}

	Setup(os.Stderr, logLevel)

	if !known {
		log.Warn().Str("environment", environment).Msg("Unknown environment - defaulting to production log level (info and above)")
	}
	log.Info().
		Str("environment", environment).
		Str("level", logLevel.String()).
		Msg("logger initialised")
}

// Init initializes the logger from ENVIRONMENT and the command line flags.
//
//	logger.Init() <- first thing in main()
//
// Then, `go run ./cmd/miner --debug`
func Init() {
	initLogger()
}
