package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

const (
	ConnRetryCountEnvKey       = `KUNGFU_CCL_CONN_RETRY_COUNT`
	ConnRetryPeriodEnvKey      = `KUNGFU_CCL_CONN_RETRY_PERIOD`
	DeviceCountEnvKey          = `KUNGFU_CCL_DEVICE_COUNT`
	StreamDepthEnvKey          = `KUNGFU_CCL_STREAM_DEPTH`
	BcastStrategyEnvKey        = `KUNGFU_CCL_BCAST_STRATEGY`
	EnableMonitoringEnvKey     = `KUNGFU_CCL_ENABLE_MONITORING`
	EnableStallDetectionEnvKey = `KUNGFU_CCL_ENABLE_STALL_DETECTION`
	LogLevelEnvKey             = `KUNGFU_CCL_LOG_LEVEL`
	MonitoringPeriodEnvKey     = `KUNGFU_CCL_MONITORING_PERIOD`
	RendezvousTimeoutEnvKey    = `KUNGFU_CCL_RENDEZVOUS_TIMEOUT`
)

var ConfigEnvKeys = []string{
	ConnRetryCountEnvKey,
	ConnRetryPeriodEnvKey,
	DeviceCountEnvKey,
	StreamDepthEnvKey,
	BcastStrategyEnvKey,
	EnableMonitoringEnvKey,
	EnableStallDetectionEnvKey,
	LogLevelEnvKey,
	MonitoringPeriodEnvKey,
	RendezvousTimeoutEnvKey,
}

var (
	ConnRetryCount       = 500
	ConnRetryPeriod      = 200 * time.Millisecond
	DeviceCount          = 8
	StreamDepth          = 128
	BcastStrategy        = `STAR`
	EnableMonitoring     = false
	EnableStallDetection = false
	LogLevel             = `INFO`
	MonitoringPeriod     = 1 * time.Second
	RendezvousTimeout    = 5 * time.Minute
)

func init() {
	if val := os.Getenv(ConnRetryCountEnvKey); len(val) > 0 {
		ConnRetryCount = parseInt(val)
	}
	if val := os.Getenv(ConnRetryPeriodEnvKey); len(val) > 0 {
		ConnRetryPeriod = parseDuration(val)
	}
	if val := os.Getenv(DeviceCountEnvKey); len(val) > 0 {
		DeviceCount = parseInt(val)
	}
	if val := os.Getenv(StreamDepthEnvKey); len(val) > 0 {
		StreamDepth = parseInt(val)
	}
	if val := os.Getenv(BcastStrategyEnvKey); len(val) > 0 {
		BcastStrategy = strings.ToUpper(val)
	}
	if val := os.Getenv(EnableMonitoringEnvKey); len(val) > 0 {
		EnableMonitoring = isTrue(val)
	}
	if val := os.Getenv(EnableStallDetectionEnvKey); len(val) > 0 {
		EnableStallDetection = isTrue(val)
	}
	if val := os.Getenv(LogLevelEnvKey); len(val) > 0 {
		LogLevel = strings.ToUpper(val)
	}
	if val := os.Getenv(MonitoringPeriodEnvKey); len(val) > 0 {
		MonitoringPeriod = parseDuration(val)
	}
	if val := os.Getenv(RendezvousTimeoutEnvKey); len(val) > 0 {
		RendezvousTimeout = parseDuration(val)
	}
}

// Config is the explicit form of the package defaults, for callers that
// build a runtime without going through the environment.
type Config struct {
	DeviceCount       int
	StreamDepth       int
	BcastStrategy     string
	ConnRetryCount    int
	ConnRetryPeriod   time.Duration
	RendezvousTimeout time.Duration
	EnableMonitoring  bool
}

// Default returns the configuration read from the environment.
func Default() Config {
	return Config{
		DeviceCount:       DeviceCount,
		StreamDepth:       StreamDepth,
		BcastStrategy:     BcastStrategy,
		ConnRetryCount:    ConnRetryCount,
		ConnRetryPeriod:   ConnRetryPeriod,
		RendezvousTimeout: RendezvousTimeout,
		EnableMonitoring:  EnableMonitoring,
	}
}

func isTrue(val string) bool {
	return val == "true"
}

func parseInt(val string) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		utils.ExitErr(err)
	}
	return n
}

func parseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		utils.ExitErr(err)
	}
	return d
}
