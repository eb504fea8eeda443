// Package logger owns the process root zerolog logger. Runs and requests get
// child loggers carrying their ids, and the analyze binary tees into a rotated file
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"claimguard/internal/platform/config/raw"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging type passed around the codebase
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level       string
	Format      string // json or console
	Service     string
	Component   string
	Writer      io.Writer
	WithCaller  bool
	SampleEvery int
	Fields      map[string]string

	File FileOptions
}

// FileOptions enables a size rotated json log file next to the primary writer
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FromEnv reads LOG_*
func FromEnv() Options {
	env := raw.New().Prefix("LOG_")
	return Options{
		Level:       env.Get("LEVEL", "info"),
		Format:      strings.ToLower(env.Get("FORMAT", "console")),
		Service:     env.Get("SERVICE", ""),
		Component:   env.Get("COMPONENT", ""),
		WithCaller:  env.GetBool("CALLER", false),
		SampleEvery: env.GetInt("SAMPLE_EVERY", 0),
		File: FileOptions{
			Path:       env.Get("FILE", ""),
			MaxSizeMB:  env.GetInt("FILE_MAX_MB", 100),
			MaxBackups: env.GetInt("FILE_BACKUPS", 5),
			MaxAgeDays: env.GetInt("FILE_MAX_AGE_DAYS", 30),
			Compress:   env.GetBool("FILE_COMPRESS", true),
		},
	}
}

var (
	initOnce sync.Once
	root     Logger
)

// Init builds the root logger. Only the first call has any effect
func Init(opt Options) {
	initOnce.Do(func() { root = build(opt) })
}

// Get returns the root logger, building it from the environment when Init was never called
func Get() *Logger {
	Init(FromEnv())
	return &root
}

func build(opt Options) Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opt.Writer
	if out == nil {
		out = os.Stdout
	}
	if opt.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if path := strings.TrimSpace(opt.File.Path); path != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opt.File.MaxSizeMB,
			MaxBackups: opt.File.MaxBackups,
			MaxAge:     opt.File.MaxAgeDays,
			Compress:   opt.File.Compress,
		})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opt.Level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	c := zerolog.New(out).Level(lvl).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		c = c.Str("go_version", bi.GoVersion)
	}
	for k, v := range map[string]string{"service": opt.Service, "component": opt.Component} {
		if v != "" {
			c = c.Str(k, v)
		}
	}
	for k, v := range opt.Fields {
		c = c.Str(k, v)
	}
	if opt.WithCaller {
		c = c.Caller()
	}

	l := c.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

type runKey struct{}

// WithRun tags ctx with an analysis run id for C and the webhook notifier
func WithRun(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey{}, runID)
}

// RunIDFrom returns the id set by WithRun
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runKey{}).(string)
	return id
}

// C returns a child of the root logger with the request and run ids found on ctx
func C(ctx context.Context) *Logger {
	c := Get().With()
	if id := chimw.GetReqID(ctx); id != "" {
		c = c.Str("request_id", id)
	}
	if id := RunIDFrom(ctx); id != "" {
		c = c.Str("run_id", id)
	}
	l := c.Logger()
	return &l
}

// Named returns a child of the root logger tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
