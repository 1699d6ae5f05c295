package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  host: "127.0.0.1"
  port: 9090
blockchain:
  network: "sepolia"
  networks:
    sepolia:
      chainId: 11155111
      name: "Sepolia"
      rpcEndpoints:
        - "https://rpc.example.com"
      factoryContract: "0x00000000000000000000000000000000000000ff"
      gasLimit: 500000
      enabled: true
    disabled-net:
      chainId: 999
      name: "Disabled"
      enabled: false
irys:
  token: "ethereum"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	require.NoError(t, LoadConfig(writeTestConfig(t)))

	assert.Equal(t, "127.0.0.1", AppConfig.Server.Host)
	assert.Equal(t, 9090, AppConfig.Server.Port)
	assert.Equal(t, "sepolia", AppConfig.Blockchain.Network)

	// Defaults fill what the file leaves unset
	assert.Equal(t, "https://gateway.irys.xyz", AppConfig.Irys.GatewayURL)
	assert.Equal(t, "https://node1.irys.xyz", AppConfig.Irys.NodeURL)
	assert.Equal(t, 30, AppConfig.Irys.Timeout)
	assert.Equal(t, 5, AppConfig.Session.PollIntervalSeconds)
	assert.Equal(t, 256, AppConfig.Session.MaxSessions)
}

func TestLoadConfigMissingFile(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8888")
	t.Setenv("ZORP_NETWORK", "mainnet")
	t.Setenv("SEPOLIA_PRIVATE_KEY", "deadbeef")
	t.Setenv("IRYS_GATEWAY_URL", "https://gateway.override.example")
	t.Setenv("JWT_SECRET", "override-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	require.NoError(t, LoadConfig(writeTestConfig(t)))

	assert.Equal(t, 8888, AppConfig.Server.Port)
	assert.Equal(t, "mainnet", AppConfig.Blockchain.Network)
	assert.Equal(t, "deadbeef", AppConfig.Blockchain.Networks["sepolia"].PrivateKey)
	assert.Equal(t, "https://gateway.override.example", AppConfig.Irys.GatewayURL)
	assert.Equal(t, "override-secret", AppConfig.Auth.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AppConfig.CORS.AllowedOrigins)
}

func TestGetNetworkConfig(t *testing.T) {
	require.NoError(t, LoadConfig(writeTestConfig(t)))

	network, err := GetNetworkConfig("sepolia")
	require.NoError(t, err)
	assert.Equal(t, 11155111, network.ChainID)
	assert.Equal(t, "0x00000000000000000000000000000000000000ff", network.FactoryContract)

	_, err = GetNetworkConfig("disabled-net")
	assert.Error(t, err, "disabled networks are not selectable")

	_, err = GetNetworkConfig("unknown")
	assert.Error(t, err)
}

func TestGetActiveNetwork(t *testing.T) {
	require.NoError(t, LoadConfig(writeTestConfig(t)))

	network, err := GetActiveNetwork()
	require.NoError(t, err)
	assert.Equal(t, "Sepolia", network.Name)
}
