package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Data     DataConfig     `yaml:"data"`
	Auth     AuthConfig     `yaml:"auth"`
	MCP      MCPConfig      `yaml:"mcp"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite, mysql
	DSN  string `yaml:"dsn"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type MCPConfig struct {
	Enabled   bool   `yaml:"enabled"`   // serve 时是否挂载 SSE 端点
	Transport string `yaml:"transport"` // stdio, sse
	Addr      string `yaml:"addr"`      // 独立运行 SSE 时的监听地址
	BasePath  string `yaml:"base_path"`
}

type WorkflowConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
		},
		Data: DataConfig{
			Dir: "./data",
		},
		Auth: AuthConfig{
			JWTSecret: "designmaster-dev-secret",
			TokenTTL:  24 * time.Hour,
		},
		MCP: MCPConfig{
			Enabled:   true,
			Transport: "stdio",
			Addr:      ":8081",
			BasePath:  "/mcp",
		},
		Workflow: WorkflowConfig{
			HistoryLimit: 20,
		},
	}
}

func loadConfig() *Config {
	config := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			klog.Warningf("解析配置文件失败: path=%s, error=%v", configPath, err)
		}
	}

	applyEnv(config)
	return config
}

// applyEnv 环境变量优先级高于配置文件
func applyEnv(config *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	// 数据库环境变量
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}

	// 数据目录环境变量
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
	}
	if config.Database.DSN == "" {
		config.Database.DSN = filepath.Join(config.Data.Dir, "designmaster.db")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Auth.TokenTTL = d
		} else {
			klog.Warningf("TOKEN_TTL 格式错误: %s", ttl)
		}
	}

	if transport := os.Getenv("MCP_TRANSPORT"); transport != "" {
		config.MCP.Transport = transport
	}
	if addr := os.Getenv("MCP_ADDR"); addr != "" {
		config.MCP.Addr = addr
	}
	if enabled := os.Getenv("MCP_ENABLED"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			config.MCP.Enabled = v
		}
	}
}

// Save 将配置写为 YAML 文件
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
