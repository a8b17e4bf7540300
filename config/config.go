package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals from "30s"/"2h" style strings or a bare number of
// seconds (yaml.v3 has no native time.Duration support).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// D returns the standard library form.
func (d Duration) D() time.Duration { return time.Duration(d) }

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type Mongo struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	MaxPoolSize int    `yaml:"max_pool_size"`
}

type Nats struct {
	Servers []string `yaml:"servers"`
	Name    string   `yaml:"name"`
}

type JWT struct {
	Secret string   `yaml:"secret"`
	TTL    Duration `yaml:"ttl"`
}

type Presence struct {
	TTL Duration `yaml:"ttl"` // cache record expiry, refreshed by heartbeats
}

type WS struct {
	WriteTimeout Duration `yaml:"write_timeout"`
	PongTimeout  Duration `yaml:"pong_timeout"`
	PingInterval Duration `yaml:"ping_interval"`
	SendQueue    int      `yaml:"send_queue"` // per-connection outbound buffer
	ReadLimit    int64    `yaml:"read_limit"` // bytes
}

type HTTP struct {
	Addr string `yaml:"addr"` // ":8080"
}

type Config struct {
	Env    string `yaml:"env"`
	NodeID string `yaml:"node_id"`

	HTTP     HTTP     `yaml:"http"`
	Redis    Redis    `yaml:"redis"`
	Mongo    Mongo    `yaml:"mongo"`
	Nats     Nats     `yaml:"nats"`
	JWT      JWT      `yaml:"jwt"`
	Presence Presence `yaml:"presence"`
	WS       WS       `yaml:"ws"`
}

// Load supports comma-separated config files: "-c common.yml,gateway.yml".
// Later files override earlier ones.
func Load(pathList string) (*Config, error) {
	if strings.TrimSpace(pathList) == "" {
		return nil, errors.New("config path required (e.g. -c ./config.yml)")
	}
	var c Config
	for _, p := range strings.Split(pathList, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	c.applyDefaults()
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.NodeID == "" {
		host, _ := os.Hostname()
		c.NodeID = "gateway-" + host
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.PoolSize <= 0 {
		c.Redis.PoolSize = 20
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://127.0.0.1:27017"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "nexuschat"
	}
	if c.Mongo.MaxPoolSize <= 0 {
		c.Mongo.MaxPoolSize = 20
	}
	if len(c.Nats.Servers) == 0 {
		c.Nats.Servers = []string{"nats://127.0.0.1:4222"}
	}
	if c.Nats.Name == "" {
		c.Nats.Name = c.NodeID
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = Duration(2 * time.Hour)
	}
	if c.Presence.TTL <= 0 {
		c.Presence.TTL = Duration(5 * time.Minute)
	}
	if c.WS.WriteTimeout <= 0 {
		c.WS.WriteTimeout = Duration(5 * time.Second)
	}
	if c.WS.PongTimeout <= 0 {
		c.WS.PongTimeout = Duration(75 * time.Second)
	}
	if c.WS.PingInterval <= 0 {
		c.WS.PingInterval = Duration(25 * time.Second)
	}
	if c.WS.SendQueue <= 0 {
		c.WS.SendQueue = 256
	}
	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = 1 << 20 // 1MB
	}
}
