package medialib

import (
	"fmt"
	"time"

	"github.com/henrlaas/medialib/backend"
	"github.com/henrlaas/medialib/log"
	"github.com/prometheus/client_golang/prometheus"
)

type LibraryOptions struct {
	Metadata backend.MetadataBackend

	Auto          bool // Use the object store as metadata index when it announces the capability
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
	Logger        *log.Logger
	Registerer    prometheus.Registerer
	RetryDelay    time.Duration // Pause before the single retry of a failed listing
}

type LibraryOption func(*LibraryOptions) error

func newDefaultLibraryOptions() *LibraryOptions {
	return &LibraryOptions{
		Auto:       true,
		LogLevel:   log.Info,
		RetryDelay: 100 * time.Millisecond,
	}
}

// WithMetadata uses a dedicated metadata index instead of the object store.
func WithMetadata(index backend.MetadataBackend) LibraryOption {
	return func(opts *LibraryOptions) error {
		if index == nil {
			return fmt.Errorf("metadata backend must not be nil")
		}
		opts.Metadata = index
		return nil
	}
}

func WithoutAuto() LibraryOption {
	return func(opts *LibraryOptions) error {
		opts.Auto = false
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) LibraryOption {
	return func(opts *LibraryOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() LibraryOption {
	return func(opts *LibraryOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) LibraryOption {
	return func(opts *LibraryOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

// WithLogger replaces the logger built from level, file and terminal settings.
func WithLogger(logger *log.Logger) LibraryOption {
	return func(opts *LibraryOptions) error {
		opts.Logger = logger
		return nil
	}
}

// WithMetrics registers the library collectors on reg.
func WithMetrics(reg prometheus.Registerer) LibraryOption {
	return func(opts *LibraryOptions) error {
		opts.Registerer = reg
		return nil
	}
}

func WithRetryDelay(delay time.Duration) LibraryOption {
	return func(opts *LibraryOptions) error {
		if delay < 0 {
			return fmt.Errorf("retry delay must not be negative")
		}
		opts.RetryDelay = delay
		return nil
	}
}
