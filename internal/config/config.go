package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/logging"
	"github.com/danmuck/petctl/internal/mask"
	"github.com/danmuck/petctl/internal/message"
	"github.com/danmuck/petctl/internal/rest"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the petctl configuration file.
type Config struct {
	Heartbeat Duration    `toml:"heartbeat"`
	Pet       PetConfig   `toml:"pet"`
	Mask      MaskConfig  `toml:"mask"`
	API       APIConfig   `toml:"api"`
	Store     StoreConfig `toml:"store"`
	Log       LogConfig   `toml:"log"`
}

type PetConfig struct {
	Sum       float64 `toml:"sum"`
	Update    float64 `toml:"update"`
	MinSum    int     `toml:"min_sum"`
	MinUpdate int     `toml:"min_update"`
	MinSum2   int     `toml:"min_sum2"`
}

type MaskConfig struct {
	Group string `toml:"group"`
	Data  string `toml:"data"`
	Bound string `toml:"bound"`
	Model string `toml:"model"`
}

type APIConfig struct {
	Addr            string    `toml:"addr"`
	CorsOrigins     []string  `toml:"cors_origins"`
	MessageRate     float64   `toml:"message_rate"`
	MessageBurst    int       `toml:"message_burst"`
	MaxMessageBytes uint32    `toml:"max_message_bytes"`
	QueryTimeout    Duration  `toml:"query_timeout"`
	AdminToken      string    `toml:"admin_token"`
	TLS             TLSConfig `toml:"tls"`
}

type TLSConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	CAFile   string `toml:"ca_file"`
	Mutual   bool   `toml:"mutual"`
}

type StoreConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as "5s" in config files.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	settings := coordinator.DefaultSettings()
	api := rest.DefaultConfig()
	return Config{
		Heartbeat: Duration{5 * time.Second},
		Pet: PetConfig{
			Sum:       settings.Sum,
			Update:    settings.Update,
			MinSum:    settings.MinSum,
			MinUpdate: settings.MinUpdate,
			MinSum2:   settings.MinSum2,
		},
		Mask: MaskConfig{
			Group: "prime",
			Data:  "f32",
			Bound: "b0",
			Model: "m3",
		},
		API: APIConfig{
			Addr:            api.Addr,
			CorsOrigins:     api.CorsOrigins,
			MessageRate:     api.MessageRate,
			MessageBurst:    api.MessageBurst,
			MaxMessageBytes: api.Limits.MaxMessageBytes,
			QueryTimeout:    Duration{api.QueryTimeout},
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    "local/rounds",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	if c.Heartbeat.Duration < 0 {
		return fmt.Errorf("%w: negative heartbeat %s", ErrInvalidConfig, c.Heartbeat)
	}
	if _, err := c.Settings(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.API.Addr) == "" {
		return fmt.Errorf("%w: api.addr is required", ErrInvalidConfig)
	}
	if c.API.MessageRate < 0 || c.API.MessageBurst < 0 {
		return fmt.Errorf("%w: api message rate and burst must not be negative", ErrInvalidConfig)
	}
	if c.API.MaxMessageBytes < message.HeaderLength {
		return fmt.Errorf("%w: api.max_message_bytes %d below header length %d", ErrInvalidConfig, c.API.MaxMessageBytes, message.HeaderLength)
	}
	if err := c.REST().TLS.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Store.Enabled && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("%w: store.path is required when the store is enabled", ErrInvalidConfig)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// Settings converts the protocol sections to coordinator settings.
func (c Config) Settings() (coordinator.Settings, error) {
	m, err := c.Mask.Parse()
	if err != nil {
		return coordinator.Settings{}, err
	}
	s := coordinator.Settings{
		Sum:       c.Pet.Sum,
		Update:    c.Pet.Update,
		MinSum:    c.Pet.MinSum,
		MinUpdate: c.Pet.MinUpdate,
		MinSum2:   c.Pet.MinSum2,
		Mask:      m,
	}
	if err := s.Validate(); err != nil {
		return coordinator.Settings{}, err
	}
	return s, nil
}

// REST converts the api section to server config.
func (c Config) REST() rest.Config {
	return rest.Config{
		Addr:         c.API.Addr,
		CorsOrigins:  c.API.CorsOrigins,
		MessageRate:  c.API.MessageRate,
		MessageBurst: c.API.MessageBurst,
		Limits:       message.Limits{MaxMessageBytes: c.API.MaxMessageBytes},
		QueryTimeout: c.API.QueryTimeout.Duration,
		AdminToken:   strings.TrimSpace(c.API.AdminToken),
		TLS: rest.TLSConfig{
			Enabled:  c.API.TLS.Enabled,
			CertFile: strings.TrimSpace(c.API.TLS.CertFile),
			KeyFile:  strings.TrimSpace(c.API.TLS.KeyFile),
			CAFile:   strings.TrimSpace(c.API.TLS.CAFile),
			Mutual:   c.API.TLS.Mutual,
		},
	}
}

var (
	groupNames = map[string]mask.GroupType{"prime": mask.GroupPrime, "power2": mask.GroupPower2, "integer": mask.GroupInteger}
	dataNames  = map[string]mask.DataType{"f32": mask.DataF32, "f64": mask.DataF64, "i32": mask.DataI32, "i64": mask.DataI64}
	boundNames = map[string]mask.BoundType{"b0": mask.Bound0, "b2": mask.Bound2, "b4": mask.Bound4, "b6": mask.Bound6, "bmax": mask.BoundMax}
	modelNames = map[string]mask.ModelType{"m3": mask.Model3, "m6": mask.Model6, "m9": mask.Model9, "m12": mask.Model12}
)

// Parse resolves the mask names to a mask config.
func (m MaskConfig) Parse() (mask.Config, error) {
	group, ok := groupNames[strings.ToLower(strings.TrimSpace(m.Group))]
	if !ok {
		return mask.Config{}, fmt.Errorf("unknown mask group %q", m.Group)
	}
	data, ok := dataNames[strings.ToLower(strings.TrimSpace(m.Data))]
	if !ok {
		return mask.Config{}, fmt.Errorf("unknown mask data type %q", m.Data)
	}
	bound, ok := boundNames[strings.ToLower(strings.TrimSpace(m.Bound))]
	if !ok {
		return mask.Config{}, fmt.Errorf("unknown mask bound %q", m.Bound)
	}
	model, ok := modelNames[strings.ToLower(strings.TrimSpace(m.Model))]
	if !ok {
		return mask.Config{}, fmt.Errorf("unknown mask model %q", m.Model)
	}
	return mask.Config{GroupType: group, DataType: data, BoundType: bound, ModelType: model}, nil
}
