package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Irys       IrysConfig       `yaml:"irys"`
	NATS       NATSConfig       `yaml:"nats"`
	CORS       CORSConfig       `yaml:"cors"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BlockchainConfig blockchain configuration
type BlockchainConfig struct {
	// Network selects the active entry in Networks
	Network  string                   `yaml:"network"`
	Networks map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig per-network configuration
type NetworkConfig struct {
	ChainID         int      `yaml:"chainId"`
	Name            string   `yaml:"name"`
	RPCEndpoints    []string `yaml:"rpcEndpoints"`
	FactoryContract string   `yaml:"factoryContract"` // ZorpFactory contract address

	// Relayer signing key (hex format, without 0x prefix)
	PrivateKey string `yaml:"privateKey"`

	GasPrice string `yaml:"gasPrice"` // Gas price (wei), empty = suggested
	GasLimit uint64 `yaml:"gasLimit"`
	Enabled  bool   `yaml:"enabled"`
}

// IrysConfig Irys storage network configuration
type IrysConfig struct {
	GatewayURL string `yaml:"gatewayUrl"` // content fetch, GET {gatewayUrl}/{cid}
	NodeURL    string `yaml:"nodeUrl"`    // upload and balance API
	Token      string `yaml:"token"`      // payment token/network selector
	Timeout    int    `yaml:"timeout"`    // request timeout (seconds)
}

// NATSConfig NATS event publisher configuration (optional)
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// AuthConfig owner API access control configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"` // empty disables the owner-guarded routes
}

// SessionConfig submission session configuration
type SessionConfig struct {
	PollIntervalSeconds int `yaml:"pollIntervalSeconds"` // eligibility poll interval, default 5
	MaxSessions         int `yaml:"maxSessions"`         // open session cap, default 256
}

var AppConfig *Config

// LoadConfig loads the configuration file and applies environment overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	AppConfig = &config
	return nil
}

// overrideFromEnv overrides configuration from environment variables
func overrideFromEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if network := os.Getenv("ZORP_NETWORK"); network != "" {
		config.Blockchain.Network = network
	}

	for networkName, networkConfig := range config.Blockchain.Networks {
		// Try network-specific private key first (e.g., SEPOLIA_PRIVATE_KEY)
		envPrivateKey := fmt.Sprintf("%s_PRIVATE_KEY", strings.ToUpper(networkName))
		if privateKey := os.Getenv(envPrivateKey); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		} else if privateKey := os.Getenv("PRIVATE_KEY"); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		}

		envRPC := fmt.Sprintf("%s_RPC_ENDPOINTS", strings.ToUpper(networkName))
		if rpcEndpoints := os.Getenv(envRPC); rpcEndpoints != "" {
			networkConfig.RPCEndpoints = strings.Split(rpcEndpoints, ",")
		}

		if factory := os.Getenv("ZORP_FACTORY"); factory != "" {
			networkConfig.FactoryContract = factory
		}

		envGasLimit := fmt.Sprintf("%s_GAS_LIMIT", strings.ToUpper(networkName))
		if gasLimit := os.Getenv(envGasLimit); gasLimit != "" {
			if limit, err := strconv.ParseUint(gasLimit, 10, 64); err == nil {
				networkConfig.GasLimit = limit
			}
		}

		config.Blockchain.Networks[networkName] = networkConfig
	}

	if gateway := os.Getenv("IRYS_GATEWAY_URL"); gateway != "" {
		config.Irys.GatewayURL = gateway
	}
	if node := os.Getenv("IRYS_NODE_URL"); node != "" {
		config.Irys.NodeURL = node
	}
	if token := os.Getenv("IRYS_TOKEN"); token != "" {
		config.Irys.Token = token
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

// applyDefaults fills unset values that have serviceable defaults
func applyDefaults(config *Config) {
	if config.Irys.GatewayURL == "" {
		config.Irys.GatewayURL = "https://gateway.irys.xyz"
	}
	if config.Irys.NodeURL == "" {
		config.Irys.NodeURL = "https://node1.irys.xyz"
	}
	if config.Irys.Timeout <= 0 {
		config.Irys.Timeout = 30
	}
	if config.Session.PollIntervalSeconds <= 0 {
		config.Session.PollIntervalSeconds = 5
	}
	if config.Session.MaxSessions <= 0 {
		config.Session.MaxSessions = 256
	}
}

// GetNetworkConfig returns the named network configuration
func GetNetworkConfig(networkName string) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	network, exists := AppConfig.Blockchain.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not found in config", networkName)
	}

	if !network.Enabled {
		return nil, fmt.Errorf("network %s is disabled", networkName)
	}

	return &network, nil
}

// GetActiveNetwork returns the network selected by blockchain.network
func GetActiveNetwork() (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	if AppConfig.Blockchain.Network == "" {
		return nil, fmt.Errorf("blockchain.network is not set")
	}
	return GetNetworkConfig(AppConfig.Blockchain.Network)
}
