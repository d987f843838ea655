package config

import (
	"time"

	"gitlab.com/icecc-go.net/internal/comm"
)

// ClientConfig configures the compiler front end.
type ClientConfig struct {
	DaemonHost     string
	DaemonPort     int
	ConnectTimeout time.Duration
	// IOTimeout bounds each send/receive; zero leaves it to the transport.
	IOTimeout time.Duration
	Debug     bool
}

func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		DaemonHost:     getEnv("ICECC_DAEMON_HOST", comm.DefaultDaemonHost),
		DaemonPort:     getIntEnv("ICECC_DAEMON_PORT", comm.DefaultDaemonPort),
		ConnectTimeout: getDurationEnv("ICECC_CONNECT_TIMEOUT", comm.DefaultConnectTimeout),
		IOTimeout:      getDurationEnv("ICECC_IO_TIMEOUT", 0),
		Debug:          getBoolEnv("ICECC_DEBUG", false),
	}
}
