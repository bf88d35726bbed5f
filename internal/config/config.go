// Package config loads the registrar daemon configuration:
// defaults, overlaid by an optional YAML file, overlaid by command-line flags.
package config

//go:generate go tool errtrace -w .

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"braces.dev/errtrace"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/ghettovoice/registrar/identity"
	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/internal/log"
	"github.com/ghettovoice/registrar/internal/netutil"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ErrInvalidConfig wraps every validation problem.
const ErrInvalidConfig errorutil.Error = "invalid config"

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Registrar RegistrarConfig `yaml:"registrar"`
	Identity  IdentityConfig  `yaml:"identity"`
	Location  LocationConfig  `yaml:"location"`
	Access    AccessConfig    `yaml:"access"`
}

type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RegistrarConfig struct {
	// DefaultExpires is the binding lifetime in seconds when requests carry none.
	DefaultExpires uint32 `yaml:"default_expires"`
}

type IdentityConfig struct {
	// Backend is memory or postgres.
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
	// Peers and Agents seed the memory backend.
	Peers  []PeerConfig  `yaml:"peers"`
	Agents []AgentConfig `yaml:"agents"`
}

type PeerConfig struct {
	Username    string `yaml:"username"`
	Secret      string `yaml:"secret"`
	Device      string `yaml:"device"`
	ContactAddr string `yaml:"contact_addr"`
}

type AgentConfig struct {
	Username string   `yaml:"username"`
	Secret   string   `yaml:"secret"`
	Device   string   `yaml:"device"`
	Domains  []string `yaml:"domains"`
}

type LocationConfig struct {
	// Backend is memory or redis.
	Backend       string        `yaml:"backend"`
	RedisURL      string        `yaml:"redis_url"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type AccessConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// Default returns the configuration used when nothing is overridden:
// in-memory backends, console logging at info level, HTTP on :8080.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Format: string(log.FormatConsole), Level: "info"},
		HTTP:      HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Registrar: RegistrarConfig{DefaultExpires: 3600},
		Identity:  IdentityConfig{Backend: BackendMemory},
		Location:  LocationConfig{Backend: BackendMemory, SweepInterval: 30 * time.Second},
	}
}

// Decode overlays the YAML document read from r onto c. Unknown keys are errors.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errtrace.Wrap(fmt.Errorf("decode config: %w", err))
	}
	return nil
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := cfg.Decode(bytes.NewReader(data)); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return cfg, nil
}

// Parse builds the configuration from command-line arguments (without the program name).
// The -config flag names a YAML file applied over the defaults, the remaining flags
// override the file. The result is validated.
func Parse(name string, args []string) (*Config, error) {
	var (
		path string
		over Config
	)
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to YAML config file")
	fs.StringVar(&over.Log.Format, "log-format", "", "log format: console, dev, json or none")
	fs.StringVar(&over.Log.Level, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&over.HTTP.Addr, "http-addr", "", "HTTP listen address")
	fs.StringVar(&over.Identity.Backend, "identity-backend", "", "identity backend: memory or postgres")
	fs.StringVar(&over.Identity.DSN, "identity-dsn", "", "PostgreSQL DSN of the identity backend")
	fs.StringVar(&over.Location.Backend, "location-backend", "", "location backend: memory or redis")
	fs.StringVar(&over.Location.RedisURL, "location-redis-url", "", "Redis URL of the location backend")
	fs.DurationVar(&over.Location.SweepInterval, "location-sweep-interval", 0, "expired bindings sweep interval")
	if err := fs.Parse(args); err != nil {
		return nil, errtrace.Wrap(err)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, errtrace.Wrap(err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-format":
			cfg.Log.Format = over.Log.Format
		case "log-level":
			cfg.Log.Level = over.Log.Level
		case "http-addr":
			cfg.HTTP.Addr = over.HTTP.Addr
		case "identity-backend":
			cfg.Identity.Backend = over.Identity.Backend
		case "identity-dsn":
			cfg.Identity.DSN = over.Identity.DSN
		case "location-backend":
			cfg.Location.Backend = over.Location.Backend
		case "location-redis-url":
			cfg.Location.RedisURL = over.Location.RedisURL
		case "location-sweep-interval":
			cfg.Location.SweepInterval = over.Location.SweepInterval
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return cfg, nil
}

// Validate reports all configuration problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch log.Format(c.Log.Format) {
	case "", log.FormatConsole, log.FormatDev, log.FormatJSON, log.FormatNone:
	default:
		errs = append(errs, fmt.Errorf("log.format: %w: %q", log.ErrUnknownFormat, c.Log.Format))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr: empty"))
	}

	switch c.Identity.Backend {
	case BackendMemory:
		for _, p := range c.Peers() {
			if err := p.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("identity.peers: %w", err))
			}
		}
		for _, a := range c.Agents() {
			if err := a.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("identity.agents: %w", err))
			}
		}
	case BackendPostgres:
		if c.Identity.DSN == "" {
			errs = append(errs, errors.New("identity.dsn: required by the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("identity.backend: unknown backend %q", c.Identity.Backend))
	}

	switch c.Location.Backend {
	case BackendMemory:
		if c.Location.SweepInterval <= 0 {
			errs = append(errs, errors.New("location.sweep_interval: must be positive"))
		}
	case BackendRedis:
		if _, err := redis.ParseURL(c.Location.RedisURL); err != nil {
			errs = append(errs, fmt.Errorf("location.redis_url: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("location.backend: unknown backend %q", c.Location.Backend))
	}

	if _, err := c.AccessList(); err != nil {
		errs = append(errs, err)
	}

	if err := errorutil.Join(errs...); err != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidConfig, err))
	}
	return nil
}

// Peers returns the configured peers.
func (c *Config) Peers() []*identity.Peer {
	peers := make([]*identity.Peer, len(c.Identity.Peers))
	for i, p := range c.Identity.Peers {
		peers[i] = &identity.Peer{
			Username:    p.Username,
			Secret:      p.Secret,
			Device:      p.Device,
			ContactAddr: p.ContactAddr,
		}
	}
	return peers
}

// Agents returns the configured agents.
func (c *Config) Agents() []*identity.Agent {
	agents := make([]*identity.Agent, len(c.Identity.Agents))
	for i, a := range c.Identity.Agents {
		agents[i] = &identity.Agent{
			Username: a.Username,
			Secret:   a.Secret,
			Device:   a.Device,
			Domains:  append([]string(nil), a.Domains...),
		}
	}
	return agents
}

// AccessList builds the source access list, nil when no rules are configured.
func (c *Config) AccessList() (*netutil.AccessList, error) {
	if len(c.Access.Allow) == 0 && len(c.Access.Deny) == 0 {
		return nil, nil
	}
	return errtrace.Wrap2(netutil.NewAccessList(c.Access.Allow, c.Access.Deny))
}
