package env

// Bootstrap environment variables, set per worker by the launcher.
const (
	SelfEnvKey           = `KUNGFU_CCL_SELF`
	PeersEnvKey          = `KUNGFU_CCL_PEERS`
	GroupEnvKey          = `KUNGFU_CCL_GROUP`
	RankEnvKey           = `KUNGFU_CCL_RANK`
	NRanksEnvKey         = `KUNGFU_CCL_NRANKS`
	DeviceEnvKey         = `KUNGFU_CCL_DEVICE`
	RingEnvKey           = `KUNGFU_CCL_RING`
	RendezvousAddrEnvKey = `KUNGFU_CCL_RENDEZVOUS_ADDR`
)

var BootstrapEnvKeys = []string{
	SelfEnvKey,
	PeersEnvKey,
	GroupEnvKey,
	RankEnvKey,
	NRanksEnvKey,
	DeviceEnvKey,
	RingEnvKey,
	RendezvousAddrEnvKey,
}
