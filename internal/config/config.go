// Package config resolves the broker's launch surface: the two
// mandated positional arguments (connections, port) plus ancillary
// operational tuning read from the environment.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	minPort = 1024
	maxPort = 65535
)

// Usage is the exact line emitted on the diagnostic stream when the
// positional launch arguments are malformed.
const Usage = "Usage: psbroker connections [portnum]"

// Launch holds the two positional launch arguments mandated by the
// protocol.
type Launch struct {
	Connections int
	Port        int
}

// ParseLaunch validates and parses the positional command-line
// arguments (excluding argv[0]). A non-nil error means the arguments
// are malformed and the caller must print Usage to the diagnostic
// stream and exit with status 1.
func ParseLaunch(args []string) (Launch, error) {
	if len(args) < 1 || len(args) > 2 {
		return Launch{}, fmt.Errorf("expected 1 or 2 arguments, got %d", len(args))
	}

	connections, err := nonNegativeInt(args[0])
	if err != nil {
		return Launch{}, fmt.Errorf("connections: %w", err)
	}

	port := 0
	if len(args) == 2 {
		port, err = validPort(args[1])
		if err != nil {
			return Launch{}, fmt.Errorf("port: %w", err)
		}
	}

	return Launch{Connections: connections, Port: port}, nil
}

func nonNegativeInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be non-negative: %d", n)
	}
	return n, nil
}

func validPort(s string) (int, error) {
	n, err := nonNegativeInt(s)
	if err != nil {
		return 0, err
	}
	if n != 0 && (n < minPort || n > maxPort) {
		return 0, fmt.Errorf("must be 0 or in [%d, %d]: %d", minPort, maxPort, n)
	}
	return n, nil
}

// Ambient holds operational tuning that is never part of the wire
// protocol or the exit-code contract — only the observability stack
// (logging, metrics, resource sampling) reads it. Absent ambient values
// take their defaults. Malformed values never cause the broker to exit
// 1 or 2: an unparsable sample interval ends up at the sampler's 15s
// default, an unknown log level leaves the broker with a no-op logger,
// and an unusable metrics address only stops the metrics server.
type Ambient struct {
	LogLevel       string
	MetricsAddr    string
	MetricsPath    string
	SampleInterval time.Duration
}

// LoadAmbient resolves ambient settings from PSBROKER_-prefixed
// environment variables, falling back to defaults the way viper's
// AutomaticEnv binding does elsewhere in this codebase's ancestry.
func LoadAmbient() Ambient {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9095")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("sample_interval", 15*time.Second)

	v.SetEnvPrefix("PSBROKER")
	v.AutomaticEnv()

	return Ambient{
		LogLevel:       v.GetString("log_level"),
		MetricsAddr:    v.GetString("metrics_addr"),
		MetricsPath:    v.GetString("metrics_path"),
		SampleInterval: v.GetDuration("sample_interval"),
	}
}
