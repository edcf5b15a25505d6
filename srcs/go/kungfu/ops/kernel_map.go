package ops

import (
	"sort"
	"sync"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/comm"
)

// Kernel enqueues one collective and returns without waiting for it.
type Kernel func(env *Env, req *Request) error

// KernelMap is the table of kernels by operator name.
type KernelMap struct {
	mu      sync.RWMutex
	kernels map[string]Kernel
}

func NewKernelMap() *KernelMap {
	return &KernelMap{kernels: make(map[string]Kernel)}
}

func (m *KernelMap) Register(name string, k Kernel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kernels[name]; ok {
		return comm.ConfigurationErrorf("kernel %q already registered", name)
	}
	m.kernels[name] = k
	return nil
}

func (m *KernelMap) Lookup(name string) (Kernel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.kernels[name]
	if !ok {
		return nil, comm.ConfigurationErrorf("no kernel named %q", name)
	}
	return k, nil
}

func (m *KernelMap) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults adds the four collective kernels.
func RegisterDefaults(m *KernelMap) error {
	for name, k := range map[string]Kernel{
		BroadcastName:     BroadcastKernel,
		ReduceSumName:     ReduceSumKernel,
		ReduceScatterName: ReduceScatterKernel,
		SendName:          SendKernel,
	} {
		if err := m.Register(name, k); err != nil {
			return err
		}
	}
	return nil
}
