package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/janpfeifer/must"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/ccl"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

var (
	configFile  = flag.String("config", "", "JSON worker config, the environment is used if empty")
	count       = flag.Int("n", 1<<20, "elements per collective")
	iters       = flag.Int("iters", 10, "timed broadcasts")
	monitorPort = flag.Int("monitor-port", 0, "serve /metrics on this port if > 0")
	logfile     = flag.String("logfile", "", "")
	version     = flag.Bool("version", false, "show build info and exit")
)

func loadConfig() (*env.Config, error) {
	if len(*configFile) == 0 {
		return env.ParseConfigFromEnv()
	}
	bs, err := os.ReadFile(*configFile)
	if err != nil {
		return nil, err
	}
	return env.ParseConfigFromJSON(string(bs))
}

func main() {
	flag.Parse()
	if *version {
		utils.ShowBuildInfo()
		return
	}
	if len(*logfile) > 0 {
		lf := must.M1(os.Create(*logfile))
		defer lf.Close()
		log.SetOutput(lf)
	}
	defer log.Flush()
	t0 := time.Now()
	defer func(prog string) { log.Infof("%s took %s", prog, time.Since(t0)) }(utils.ProgName())

	cfg, err := loadConfig()
	if err != nil {
		utils.ExitErr(err)
	}
	opts := ccl.DefaultOptions()
	opts.MonitorPort = *monitorPort
	rt := must.M1(ccl.NewFromConfig(cfg, opts))
	stop := utils.Trap(func(sig os.Signal) {
		log.Warnf("%s received, shutting down", sig)
		rt.Shutdown()
		os.Exit(1)
	})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), config.RendezvousTimeout)
	_, err = rt.InitFromConfig(ctx, cfg)
	cancel()
	if err != nil {
		utils.ExitErr(err)
	}
	w := &worker{rt: rt, cfg: cfg, n: *count}
	if err := w.checkAll(); err != nil {
		rt.Shutdown()
		utils.ExitErr(err)
	}
	if err := w.bench(*iters); err != nil {
		rt.Shutdown()
		utils.ExitErr(err)
	}
	must.M(rt.Shutdown())
	fmt.Printf("rank %d/%d: all collectives OK\n", cfg.Rank, cfg.NRanks)
}
