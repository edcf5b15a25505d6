package env

import (
	"os"
	"strconv"

	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
)

const (
	ompiRankEnvKey      = `OMPI_COMM_WORLD_RANK`
	ompiSizeEnvKey      = `OMPI_COMM_WORLD_SIZE`
	ompiLocalRankEnvKey = `OMPI_COMM_WORLD_LOCAL_RANK`
)

// ParseConfigFromOpenMPIEnv builds a config for workers started by mpirun.
// Ranks meet through the rendezvous service; the local rank picks the device.
func ParseConfigFromOpenMPIEnv() (*Config, error) {
	size, err := strconv.Atoi(os.Getenv(ompiSizeEnvKey))
	if err != nil {
		return nil, errors.Wrap(err, ompiSizeEnvKey)
	}
	rank, err := strconv.Atoi(os.Getenv(ompiRankEnvKey))
	if err != nil {
		return nil, errors.Wrap(err, ompiRankEnvKey)
	}
	local, err := strconv.Atoi(os.Getenv(ompiLocalRankEnvKey))
	if err != nil {
		local = 0
	}
	group := os.Getenv(GroupEnvKey)
	if len(group) == 0 {
		group = "mpi"
	}
	c := &Config{
		Self:           defaultSelf,
		RendezvousAddr: os.Getenv(RendezvousAddrEnvKey),
		Strategy:       kb.DefaultStrategy,
		GroupID:        group,
		Rank:           rank,
		NRanks:         size,
		DeviceID:       local,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
