package mqtt

import (
	mqttserver "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// StartBroker runs an embedded broker on addr (e.g. ":1883") for sites
// without one. Every client is allowed. Close the returned server to stop it.
func StartBroker(addr string) (*mqttserver.Server, error) {
	server := mqttserver.New(&mqttserver.Options{
		InlineClient: true,
	})

	// Allow all connections.
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, err
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "icemaker-tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, err
	}

	if err := server.Serve(); err != nil {
		_ = server.Close()
		return nil, err
	}
	return server, nil
}
