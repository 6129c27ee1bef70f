package util

import (
	"log"
	"os"

	"github.com/go-yaml/yaml"

	"github.com/wjayesh/mahilo/core"
)

// Config is the mahilo base configuration
type Config struct {
	Server Server      `yaml:"server"`
	Mahilo core.Config `yaml:"mahilo"`
}

type Server struct {
	Dsn           string `yaml:"dsn"`
	RedisAddr     string `yaml:"redisAddr"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	LogPath       string `yaml:"logPath"`
}

// Load loads mahilo config from given path
func (c *Config) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal("failed to open configuration file:", err)
		return err
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(&c)
	if err != nil {
		log.Fatal("failed to load configuration file:", err)
		return err
	}

	c.applyDefaults()

	return nil
}

func (c *Config) applyDefaults() {
	if c.Mahilo.MaxPayloadSize == 0 {
		c.Mahilo.MaxPayloadSize = 65536
	}
	if c.Mahilo.MaxRetries == 0 {
		c.Mahilo.MaxRetries = 5
	}
	if c.Mahilo.RetryIntervalSeconds == 0 {
		c.Mahilo.RetryIntervalSeconds = 1
	}
	if c.Mahilo.DeliveryTimeoutSeconds == 0 {
		c.Mahilo.DeliveryTimeoutSeconds = 10
	}
	if c.Mahilo.Judge.TimeoutSeconds == 0 {
		c.Mahilo.Judge.TimeoutSeconds = 15
	}
}
