// Package config loads socks5d settings from command-line flags and an
// optional TOML file. Flags given explicitly on the command line override the
// file, which overrides the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// Config is the complete daemon configuration.
type Config struct {
	Listen        string `toml:"listen"`
	ReusePort     bool   `toml:"reuse_port"`
	ProxyProtocol bool   `toml:"proxy_protocol"`

	NegotiationTimeout Duration `toml:"negotiation_timeout"`
	DialTimeout        Duration `toml:"dial_timeout"`
	TCPKeepAlive       string   `toml:"tcp_keepalive"`

	DNSServer string              `toml:"dns_server"`
	Hosts     map[string][]string `toml:"hosts"`

	DebugListen string `toml:"debug_listen"`
	Verbose     bool   `toml:"verbose"`

	Log Log `toml:"log"`
}

// Log configures the process logger.
type Log struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen:             "127.0.0.1:1080",
		NegotiationTimeout: Duration(10 * time.Second),
		DialTimeout:        Duration(10 * time.Second),
		TCPKeepAlive:       "45:45:3",
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load parses args (without the program name) and, when --config is given,
// the TOML file it names.
func Load(args []string) (Config, error) {
	cfg := Default()
	fs, configPath := newFlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if *configPath != "" {
		fileCfg := Default()
		if err := decodeFile(*configPath, &fileCfg); err != nil {
			return Config{}, err
		}

		// Replay the flags that were set so they win over the file.
		replay, _ := newFlagSet(&fileCfg)
		var replayErr error
		fs.Visit(func(f *pflag.Flag) {
			if replayErr == nil && f.Name != "config" {
				replayErr = replay.Set(f.Name, f.Value.String())
			}
		})
		if replayErr != nil {
			return Config{}, replayErr
		}
		cfg = fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet("socks5d", pflag.ContinueOnError)
	fs.SortFlags = false

	configPath := fs.String("config", "", "Path to a TOML config file. Flags given on the command line override it.")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "SOCKS5 listen address")
	fs.BoolVar(&cfg.ReusePort, "reuse-port", cfg.ReusePort, "Set SO_REUSEPORT on the listener")
	fs.BoolVar(&cfg.ProxyProtocol, "proxy-protocol", cfg.ProxyProtocol, "Require a PROXY protocol header on every client connection")
	fs.DurationVar((*time.Duration)(&cfg.NegotiationTimeout), "negotiation-timeout", cfg.NegotiationTimeout.Std(), "Timeout from accept until the CONNECT reply is sent")
	fs.DurationVar((*time.Duration)(&cfg.DialTimeout), "dial-timeout", cfg.DialTimeout.Std(), "Timeout for outbound TCP connect")
	fs.StringVar(&cfg.TCPKeepAlive, "tcp-keepalive", cfg.TCPKeepAlive, "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
	fs.StringVar(&cfg.DNSServer, "dns-server", cfg.DNSServer, "DNS server host[:port] for name resolution. Empty uses the system resolver.")
	fs.StringVar(&cfg.DebugListen, "debug-listen", cfg.DebugListen, "Debug HTTP listen address exposing /debug/pprof and /metrics (e.g. 127.0.0.1:6060). Empty disables.")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Log per-connection failures at warn level")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Write logs to this file with rotation instead of stderr")
	return fs, configPath
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks values that flags and TOML cannot constrain by type.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	if c.NegotiationTimeout < 0 {
		return errors.New("negotiation-timeout must not be negative")
	}
	if c.DialTimeout < 0 {
		return errors.New("dial-timeout must not be negative")
	}
	if _, err := ParseTCPKeepAlive(c.TCPKeepAlive); err != nil {
		return fmt.Errorf("invalid tcp-keepalive: %w", err)
	}
	if _, err := c.HostAddrs(); err != nil {
		return err
	}
	return nil
}

// KeepAlive returns the parsed tcp_keepalive setting.
func (c Config) KeepAlive() net.KeepAliveConfig {
	ka, _ := ParseTCPKeepAlive(c.TCPKeepAlive)
	return ka
}

// HostAddrs parses the hosts table.
func (c Config) HostAddrs() (map[string][]netip.Addr, error) {
	if len(c.Hosts) == 0 {
		return nil, nil
	}
	out := make(map[string][]netip.Addr, len(c.Hosts))
	for name, list := range c.Hosts {
		if len(list) == 0 {
			return nil, fmt.Errorf("hosts: %q has no addresses", name)
		}
		addrs := make([]netip.Addr, 0, len(list))
		for _, s := range list {
			a, err := netip.ParseAddr(s)
			if err != nil {
				return nil, fmt.Errorf("hosts: %q: %w", name, err)
			}
			addrs = append(addrs, a)
		}
		out[name] = addrs
	}
	return out, nil
}

// ParseTCPKeepAlive parses on, off or keepidle:keepintvl:keepcnt with the
// first two in seconds.
func ParseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
