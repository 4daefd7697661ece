package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fwprobe/fwprobe/internal/config"
	"github.com/fwprobe/fwprobe/internal/probing"
)

func TestEngineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Probing.Concurrency = 64
	cfg.Probing.Timeout = 2 * time.Second
	cfg.Probing.BindAddress = "10.10.1.25"
	cfg.Probing.Protocol = config.ProtoBoth
	cfg.Probing.DNSServer = "10.0.0.53:53"

	engine := engineConfig(cfg)

	assert.Equal(t, 64, engine.Concurrency)
	assert.Equal(t, 2*time.Second, engine.Timeout)
	assert.Equal(t, "10.10.1.25", engine.BindAddress)
	assert.Equal(t, "10.0.0.53:53", engine.DNSServer)
	assert.Equal(t, []probing.Protocol{probing.ProtocolTCP, probing.ProtocolUDP}, engine.Protocols)

	assert.NoError(t, engine.Validate())
}

func TestEngineConfigSingleProtocol(t *testing.T) {
	cfg := config.Default()
	cfg.Probing.Protocol = config.ProtoUDP

	engine := engineConfig(cfg)
	assert.Equal(t, []probing.Protocol{probing.ProtocolUDP}, engine.Protocols)
}
