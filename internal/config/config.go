package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `yaml:"env" env-required:"true"`
	StoragePath string `yaml:"storage_path" env-required:"true"`
	HTTPServer  `yaml:"http_server"`
	Media       `yaml:"media"`
	Preview     `yaml:"preview"`
	Export      `yaml:"export"`
	AI          `yaml:"ai"`
	Speech      `yaml:"speech"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env-default:"localhost:8080"`
	Timeout      time.Duration `yaml:"timeout" env-default:"4s"`
	IddleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Media struct {
	Dir          string        `yaml:"dir" env-required:"true"`
	BaseURL      string        `yaml:"base_url" env-default:"/media"`
	ProxyPath    string        `yaml:"proxy_path" env-default:"/proxy/media"`
	ProxyTimeout time.Duration `yaml:"proxy_timeout" env-default:"30s"`
}

type Preview struct {
	ChunkLength time.Duration `yaml:"chunk_length" env-default:"2s"`
	BaseURL     string        `yaml:"base_url" env-default:"/media/"`
}

type Export struct {
	OutDir string `yaml:"out_dir" env-required:"true"`
}

type AI struct {
	URL     string        `yaml:"url" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"2m"`
}

type Speech struct {
	URL     string        `yaml:"url" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"2m"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
