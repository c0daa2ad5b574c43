// Package config holds the YAML-loadable knobs that feed pkg/policy's
// default table builders, in the style of
// pkg/config/protocol_config.go: a flat, yaml-tagged struct per
// concern, loaded once at startup.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/policy"
)

// Config is the top-level outbound queue configuration.
type Config struct {
	// SelfID is this node's own peer identifier.
	SelfID string `yaml:"SelfID"`
	// Profile selects the default policy triple; one of "Core",
	// "Relay", "EdgeBehindNAT", "EdgeExchange", "EdgeP2P".
	Profile string `yaml:"Profile"`
	// CherishRetries is parsed from the file but not read by
	// pkg/outboundq: EnqueueCherished always makes at most 4 attempts.
	CherishRetries int `yaml:"CherishRetries"`

	Dequeue DequeueConfig `yaml:"Dequeue"`
	Failure FailureConfig `yaml:"Failure"`
}

// DequeueConfig overrides the dequeue policy's per-NodeType rate
// limits and concurrency caps.
type DequeueConfig struct {
	Core  NodeTypeDequeueConfig `yaml:"Core"`
	Relay NodeTypeDequeueConfig `yaml:"Relay"`
	Edge  NodeTypeDequeueConfig `yaml:"Edge"`
}

// NodeTypeDequeueConfig is one NodeType row of DequeueConfig.
// RatePerSec of zero means unlimited.
type NodeTypeDequeueConfig struct {
	RatePerSec  int `yaml:"RatePerSec"`
	MaxInFlight int `yaml:"MaxInFlight"`
}

// FailureConfig overrides the failure policy's cooldown durations.
type FailureConfig struct {
	Default Duration `yaml:"Default"`
	Core    Duration `yaml:"Core"`
	Relay   Duration `yaml:"Relay"`
	Edge    Duration `yaml:"Edge"`
}

// Duration wraps time.Duration with YAML support for Go duration
// strings ("90s", "5m"), since yaml.v3 has no built-in understanding
// of time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrap(err, "config: duration")
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and parses a yaml Config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	return &cfg, nil
}

// ResolveProfile resolves the configured Profile string to a
// policy.Profile, defaulting to EdgeP2PProfile on an unrecognized or
// empty value.
func (c *Config) ResolveProfile() policy.Profile {
	switch c.Profile {
	case "Core":
		return policy.CoreProfile
	case "Relay":
		return policy.RelayProfile
	case "EdgeBehindNAT":
		return policy.EdgeBehindNATProfile
	case "EdgeExchange":
		return policy.EdgeExchangeProfile
	case "EdgeP2P":
		return policy.EdgeP2PProfile
	default:
		return policy.EdgeP2PProfile
	}
}

// DequeuePolicy builds a policy.DequeuePolicy from the configured
// overrides layered on top of the role's defaults; any NodeType left
// at its zero value falls back to the default builder's row.
func (c *Config) DequeuePolicy() policy.DequeuePolicy {
	_, deqDefault, _ := policy.Defaults(c.ResolveProfile())

	rows := map[gossip.NodeType]policy.DequeueParams{
		gossip.Core:  overrideOrDefault(c.Dequeue.Core, deqDefault.Params(gossip.Core)),
		gossip.Relay: overrideOrDefault(c.Dequeue.Relay, deqDefault.Params(gossip.Relay)),
		gossip.Edge:  overrideOrDefault(c.Dequeue.Edge, deqDefault.Params(gossip.Edge)),
	}
	return policy.NewTableDequeuePolicy(rows)
}

func overrideOrDefault(cfg NodeTypeDequeueConfig, fallback policy.DequeueParams) policy.DequeueParams {
	if cfg.MaxInFlight == 0 && cfg.RatePerSec == 0 {
		return fallback
	}
	params := policy.DequeueParams{MaxInFlight: fallback.MaxInFlight}
	if cfg.MaxInFlight > 0 {
		params.MaxInFlight = cfg.MaxInFlight
	}
	if cfg.RatePerSec > 0 {
		params.RateLimit = policy.PerSecLimit(cfg.RatePerSec)
	} else {
		params.RateLimit = fallback.RateLimit
	}
	return params
}

// FailurePolicy builds a policy.FailurePolicy from the configured
// cooldown overrides. A NodeType with no override uses Default, or
// 200s when Default is unset; the per-type cooldowns of
// policy.Defaults are not applied.
func (c *Config) FailurePolicy() policy.FailurePolicy {
	fallback := time.Duration(c.Failure.Default)
	if fallback == 0 {
		fallback = 200 * time.Second
	}
	overrides := make(map[gossip.NodeType]time.Duration)
	if c.Failure.Core > 0 {
		overrides[gossip.Core] = time.Duration(c.Failure.Core)
	}
	if c.Failure.Relay > 0 {
		overrides[gossip.Relay] = time.Duration(c.Failure.Relay)
	}
	if c.Failure.Edge > 0 {
		overrides[gossip.Edge] = time.Duration(c.Failure.Edge)
	}
	return policy.NewTableFailurePolicy(fallback, overrides)
}
