/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for elasticmq-offline.
// config 包提供 elasticmq-offline 的配置管理功能。
//
// The configuration file may be the serverless service file itself: the
// emulator block lives under custom.elasticmq and the active stage under
// provider.stage, exactly where the serverless framework keeps them.
// 配置文件可以直接是 serverless 服务文件：模拟器配置位于 custom.elasticmq，
// 当前 stage 位于 provider.stage。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line arguments / 命令行参数
// 2. Environment variables / 环境变量
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath    = "serverless.yml"
	DefaultStage         = "dev"
	DefaultPort          = 9324
	DefaultJava          = "java"
	DefaultJar           = "elasticmq-server-0.15.7.jar"
	DefaultSettleDelay   = 2 * time.Second
	DefaultLogLevel      = "info"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 3
	DefaultLogMaxAge     = 7 // days
	DefaultLedgerDriver  = "sqlite"
	DefaultSQLitePath    = ".elasticmq-offline/ledger.db"
	DefaultGRPCAddress   = "127.0.0.1:9325"
	DefaultHTTPAddress   = "127.0.0.1:9326"
	DefaultServiceName   = "elasticmq-offline"

	// EnvPrefix is the prefix for environment variable overrides
	// EnvPrefix 是环境变量覆盖的前缀
	EnvPrefix = "ELASTICMQ_OFFLINE"

	// EnvConfigPath names the environment variable holding the config file path
	// EnvConfigPath 是保存配置文件路径的环境变量名
	EnvConfigPath = EnvPrefix + "_CONFIG"
)

// Ledger drivers / 台账数据库驱动
const (
	LedgerDriverSQLite   = "sqlite"
	LedgerDriverMySQL    = "mysql"
	LedgerDriverPostgres = "postgres"
)

// Config represents the elasticmq-offline configuration
// Config 表示 elasticmq-offline 配置
type Config struct {
	// Provider mirrors the serverless provider block / 对应 serverless 的 provider 块
	Provider ProviderConfig `mapstructure:"provider"`

	// Custom mirrors the serverless custom block / 对应 serverless 的 custom 块
	Custom CustomConfig `mapstructure:"custom"`

	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log"`

	// Ledger configuration / 启动台账配置
	Ledger LedgerConfig `mapstructure:"ledger"`

	// Server configuration / 服务配置
	Server ServerConfig `mapstructure:"server"`

	// Telemetry configuration / 遥测配置
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ProviderConfig holds the deployment provider settings
// ProviderConfig 保存部署 provider 设置
type ProviderConfig struct {
	// Stage is the active deployment stage
	// Stage 是当前部署阶段
	Stage string `mapstructure:"stage"`
}

// CustomConfig holds plugin specific blocks
// CustomConfig 保存插件相关配置块
type CustomConfig struct {
	ElasticMQ ElasticMQConfig `mapstructure:"elasticmq"`
}

// ElasticMQConfig is the emulator configuration block
// ElasticMQConfig 是模拟器配置块
type ElasticMQConfig struct {
	// Stages lists the stages the emulator runs for
	// Stages 列出需要启动模拟器的 stage
	Stages []string `mapstructure:"stages"`

	// Start holds the launch options / Start 保存启动选项
	Start StartConfig `mapstructure:"start"`
}

// StartConfig contains the emulator launch options
// StartConfig 包含模拟器启动选项
type StartConfig struct {
	// NoStart suppresses the launch even when the stage matches
	// NoStart 为 true 时即使 stage 匹配也不启动
	NoStart bool `mapstructure:"noStart"`

	// Port is the emulator port, 0 means DefaultPort
	// Port 是模拟器端口，0 表示使用 DefaultPort
	Port int `mapstructure:"port"`

	// BinDir is the working directory holding the server jar
	// BinDir 是存放服务 jar 的工作目录
	BinDir string `mapstructure:"binDir"`

	// Java is the java executable / Java 是 java 可执行文件
	Java string `mapstructure:"java"`

	// Jar is the server jar file name / Jar 是服务 jar 文件名
	Jar string `mapstructure:"jar"`

	// SettleDelay is how long start waits after spawning
	// SettleDelay 是启动后等待的时长
	SettleDelay time.Duration `mapstructure:"settleDelay"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level"`

	// File is the log file path, empty disables file output
	// File 是日志文件路径，为空时不写文件
	File string `mapstructure:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age"`
}

// LedgerConfig contains the launch ledger database settings
// LedgerConfig 包含启动台账数据库设置
type LedgerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Driver     string `mapstructure:"driver"`      // sqlite, mysql, postgres
	DSN        string `mapstructure:"dsn"`         // mysql / postgres DSN
	SQLitePath string `mapstructure:"sqlite_path"` // sqlite 文件路径
	LogLevel   string `mapstructure:"log_level"`   // silent, error, warn, info
}

// ServerConfig contains the control surfaces
// ServerConfig 包含控制接口配置
type ServerConfig struct {
	GRPC ListenerConfig `mapstructure:"grpc"`
	HTTP HTTPConfig     `mapstructure:"http"`
}

// ListenerConfig describes one listener / ListenerConfig 描述一个监听器
type ListenerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// HTTPConfig describes the status API listener
// HTTPConfig 描述状态 API 监听器
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Swagger bool   `mapstructure:"swagger"` // serve /api/swagger/*any
}

// TelemetryConfig contains OpenTelemetry settings
// TelemetryConfig 包含 OpenTelemetry 设置
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	return LoadWithPriority(configPath, nil)
}

// LoadWithPriority loads configuration with explicit priority handling
// LoadWithPriority 使用显式优先级处理加载配置
// Priority: cmdArgs > envVars > configFile > defaults
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
func LoadWithPriority(configPath string, cmdArgs map[string]interface{}) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	v.SetConfigFile(resolveConfigPath(configPath))

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if we have defaults
		// 如果有默认值，配置文件未找到不是错误
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Apply command line arguments (highest priority)
	// 应用命令行参数（最高优先级）
	for key, value := range cmdArgs {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// resolveConfigPath picks the flag value, then the environment, then the default
func resolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	return DefaultConfigPath
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.stage", DefaultStage)

	// Emulator defaults / 模拟器默认值
	v.SetDefault("custom.elasticmq.stages", []string{})
	v.SetDefault("custom.elasticmq.start.noStart", false)
	v.SetDefault("custom.elasticmq.start.port", 0)
	v.SetDefault("custom.elasticmq.start.binDir", DefaultBinDir())
	v.SetDefault("custom.elasticmq.start.java", DefaultJava)
	v.SetDefault("custom.elasticmq.start.jar", DefaultJar)
	v.SetDefault("custom.elasticmq.start.settleDelay", DefaultSettleDelay)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)

	// Ledger defaults / 台账默认值
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.driver", DefaultLedgerDriver)
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.sqlite_path", DefaultSQLitePath)
	v.SetDefault("ledger.log_level", "silent")

	// Server defaults / 服务默认值
	v.SetDefault("server.grpc.enabled", false)
	v.SetDefault("server.grpc.address", DefaultGRPCAddress)
	v.SetDefault("server.http.enabled", false)
	v.SetDefault("server.http.address", DefaultHTTPAddress)
	v.SetDefault("server.http.swagger", false)

	// Telemetry defaults / 遥测默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", DefaultServiceName)
}

// DefaultBinDir returns the bin directory bundled next to the executable,
// <exe dir>/../bin.
// DefaultBinDir 返回与可执行文件一起分发的 bin 目录（<exe 目录>/../bin）。
func DefaultBinDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "bin"
	}
	return filepath.Join(filepath.Dir(exe), "..", "bin")
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	start := c.Custom.ElasticMQ.Start
	if start.Port < 0 || start.Port > 65535 {
		return fmt.Errorf("custom.elasticmq.start.port out of range: %d", start.Port)
	}
	if start.SettleDelay < 0 {
		return errors.New("custom.elasticmq.start.settleDelay must not be negative")
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Ledger.Enabled {
		switch c.Ledger.Driver {
		case LedgerDriverSQLite, "":
		case LedgerDriverMySQL, LedgerDriverPostgres:
			if c.Ledger.DSN == "" {
				return fmt.Errorf("ledger.dsn is required for driver %s", c.Ledger.Driver)
			}
		default:
			return fmt.Errorf("unsupported ledger driver: %s (must be sqlite, mysql, or postgres)", c.Ledger.Driver)
		}
	}

	if c.Server.GRPC.Enabled && c.Server.GRPC.Address == "" {
		return errors.New("server.grpc.address is required when gRPC is enabled")
	}
	if c.Server.HTTP.Enabled && c.Server.HTTP.Address == "" {
		return errors.New("server.http.address is required when HTTP is enabled")
	}

	return nil
}

// EffectivePort returns the configured port or DefaultPort
// EffectivePort 返回配置的端口或默认端口
func (c *Config) EffectivePort() int {
	if c.Custom.ElasticMQ.Start.Port == 0 {
		return DefaultPort
	}
	return c.Custom.ElasticMQ.Start.Port
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Stage: %s, Stages: %v, NoStart: %t, Port: %d, BinDir: %s, Log.Level: %s}",
		c.Provider.Stage,
		c.Custom.ElasticMQ.Stages,
		c.Custom.ElasticMQ.Start.NoStart,
		c.EffectivePort(),
		c.Custom.ElasticMQ.Start.BinDir,
		c.Log.Level,
	)
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	start := c.Custom.ElasticMQ.Start
	stages := c.Custom.ElasticMQ.Stages
	if stages == nil {
		stages = []string{}
	}

	doc := map[string]interface{}{
		"provider": map[string]interface{}{
			"stage": c.Provider.Stage,
		},
		"custom": map[string]interface{}{
			"elasticmq": map[string]interface{}{
				"stages": stages,
				"start": map[string]interface{}{
					"noStart":     start.NoStart,
					"port":        start.Port,
					"binDir":      start.BinDir,
					"java":        start.Java,
					"jar":         start.Jar,
					"settleDelay": start.SettleDelay.String(),
				},
			},
		},
		"log": map[string]interface{}{
			"level":       c.Log.Level,
			"file":        c.Log.File,
			"max_size":    c.Log.MaxSize,
			"max_backups": c.Log.MaxBackups,
			"max_age":     c.Log.MaxAge,
		},
		"ledger": map[string]interface{}{
			"enabled":     c.Ledger.Enabled,
			"driver":      c.Ledger.Driver,
			"dsn":         c.Ledger.DSN,
			"sqlite_path": c.Ledger.SQLitePath,
			"log_level":   c.Ledger.LogLevel,
		},
		"server": map[string]interface{}{
			"grpc": map[string]interface{}{
				"enabled": c.Server.GRPC.Enabled,
				"address": c.Server.GRPC.Address,
			},
			"http": map[string]interface{}{
				"enabled": c.Server.HTTP.Enabled,
				"address": c.Server.HTTP.Address,
				"swagger": c.Server.HTTP.Swagger,
			},
		},
		"telemetry": map[string]interface{}{
			"enabled":      c.Telemetry.Enabled,
			"endpoint":     c.Telemetry.Endpoint,
			"insecure":     c.Telemetry.Insecure,
			"service_name": c.Telemetry.ServiceName,
		},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults first / 首先设置默认值
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewReader(yamlData)); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Equal compares two configs for equality
// Equal 比较两个配置是否相等
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}

	if c.Provider != other.Provider {
		return false
	}
	if !slices.Equal(c.Custom.ElasticMQ.Stages, other.Custom.ElasticMQ.Stages) {
		return false
	}

	return c.Custom.ElasticMQ.Start == other.Custom.ElasticMQ.Start &&
		c.Log == other.Log &&
		c.Ledger == other.Ledger &&
		c.Server == other.Server &&
		c.Telemetry == other.Telemetry
}
