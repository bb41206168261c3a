package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/protocol"
	"github.com/sirupsen/logrus"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info"`
	Signaling Signaling `yaml:"signaling"`
	WebRTC    WebRTC    `yaml:"webrtc"`
	Game      Game      `yaml:"game"`
}

type Signaling struct {
	URL         string `yaml:"url" env:"TICTACTOE_SIGNALING_URL" env-default:"ws://localhost:9000/ws"`
	ListenAddr  string `yaml:"listen-addr" env:"TICTACTOE_SIGNALING_ADDR" env-default:":9000"`
	DatabaseDSN string `yaml:"database-dsn" env:"TICTACTOE_SIGNALING_DSN" env-default:":memory:"`
}

type WebRTC struct {
	// STUNServers left unset selects the public defaults; an explicit empty
	// list disables STUN.
	STUNServers    []string      `yaml:"stun-servers" env:"TICTACTOE_STUN_SERVERS" env-separator:","`
	ConnectTimeout time.Duration `yaml:"connect-timeout" env:"TICTACTOE_CONNECT_TIMEOUT" env-default:"0s"`
}

type Game struct {
	WireFormat string `yaml:"wire-format" env:"TICTACTOE_WIRE_FORMAT" env-default:"protobuf"`
}

// Load reads the YAML file at path, then the environment. An empty path
// reads the environment only.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}
	return config
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level %q", c.LogLevel)
	}
	if _, err := protocol.ParseFormat(c.Game.WireFormat); err != nil {
		return fmt.Errorf("invalid wire-format: %w", err)
	}
	if c.WebRTC.ConnectTimeout < 0 {
		return fmt.Errorf("invalid connect-timeout %s", c.WebRTC.ConnectTimeout)
	}
	return nil
}

func (g Game) Format() protocol.Format {
	f, _ := protocol.ParseFormat(g.WireFormat)
	return f
}

// Usage describes the environment variables Load understands.
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}
