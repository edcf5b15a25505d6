// Package ccl is the process-wide entry point: it owns the devices, the
// transport, the communicator registry and the kernel table.
package ccl

import (
	"context"
	"sync"
	"time"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/comm"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/device"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/ops"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport/local"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport/tcp"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/monitor"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

type Options struct {
	DeviceCount int
	StreamDepth int
	Allocator   ops.Allocator
	Monitor     monitor.Monitor
	// MonitorPort serves Monitor on /metrics when > 0.
	MonitorPort int
}

func DefaultOptions() Options {
	return Options{
		DeviceCount: config.DeviceCount,
		StreamDepth: config.StreamDepth,
		Allocator:   ops.HostAllocator,
		Monitor:     monitor.GetMonitor(),
	}
}

type Runtime struct {
	devices   *device.Pool
	transport transport.Transport
	registry  *comm.Registry
	kernels   *ops.KernelMap
	env       *ops.Env
	monitor   *monitor.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a runtime whose groups form over tr.
func New(tr transport.Transport, opts Options) (*Runtime, error) {
	devices := device.NewPool(opts.DeviceCount, opts.StreamDepth)
	registry := comm.NewRegistry(devices, tr)
	kernels := ops.NewKernelMap()
	if err := ops.RegisterDefaults(kernels); err != nil {
		return nil, err
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.GetMonitor()
	}
	r := &Runtime{
		devices:   devices,
		transport: tr,
		registry:  registry,
		kernels:   kernels,
		env: &ops.Env{
			Registry:  registry,
			Allocator: opts.Allocator,
			Monitor:   opts.Monitor,
		},
	}
	if opts.MonitorPort > 0 {
		s, err := monitor.StartServer(opts.Monitor, opts.MonitorPort)
		if err != nil {
			return nil, err
		}
		r.monitor = s
	}
	return r, nil
}

// NewLocal builds a runtime whose ranks all live in this process.
func NewLocal(opts Options) (*Runtime, error) {
	strategy, err := kb.ParseStrategy(config.BcastStrategy)
	if err != nil {
		return nil, err
	}
	return New(local.New(strategy), opts)
}

// NewFromConfig builds a runtime that reaches its peers over TCP.
func NewFromConfig(cfg *env.Config, opts Options) (*Runtime, error) {
	tr, err := tcp.New(cfg.TransportConfig())
	if err != nil {
		return nil, err
	}
	return New(tr, opts)
}

// Init creates the communicator of one rank. It blocks until the whole
// group has called Init.
func (r *Runtime) Init(ctx context.Context, groupID string, nranks, rank, deviceID, ringID int) (*comm.Handle, error) {
	return r.registry.Create(ctx, groupID, nranks, rank, deviceID, ringID)
}

func (r *Runtime) InitFromConfig(ctx context.Context, cfg *env.Config) (*comm.Handle, error) {
	return r.Init(ctx, cfg.GroupID, cfg.NRanks, cfg.Rank, cfg.DeviceID, cfg.RingID)
}

// Run launches the kernel registered under name. It returns once the
// collective is enqueued.
func (r *Runtime) Run(name string, req *ops.Request) error {
	k, err := r.kernels.Lookup(name)
	if err != nil {
		return err
	}
	return k(r.env, req)
}

// Synchronize waits for the communication and compute streams of a handle.
func (r *Runtime) Synchronize(ctx context.Context, ringID, deviceID int) error {
	h, err := r.registry.Get(ringID, deviceID)
	if err != nil {
		return err
	}
	return utils.MergeErrors([]error{
		h.Stream().Synchronize(ctx),
		h.Device().Compute.Synchronize(ctx),
	}, "synchronize "+h.Key().String())
}

func (r *Runtime) Registry() *comm.Registry { return r.registry }

func (r *Runtime) Kernels() *ops.KernelMap { return r.kernels }

func (r *Runtime) Devices() *device.Pool { return r.devices }

// Shutdown releases every communicator, then the transport and the devices.
// Only the first call does anything.
func (r *Runtime) Shutdown() error {
	r.shutdownOnce.Do(func() {
		errs := []error{
			r.registry.ReleaseAll(),
			r.transport.Close(),
			r.devices.Close(),
		}
		if r.monitor != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			errs = append(errs, r.monitor.Stop(ctx))
			cancel()
		}
		r.shutdownErr = utils.MergeErrors(errs, "shutdown")
		log.Debugf("runtime shut down")
	})
	return r.shutdownErr
}
