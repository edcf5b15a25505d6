package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/janpfeifer/must"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/rendezvous"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

var (
	host     = flag.String("host", "0.0.0.0", "")
	port     = flag.Int("port", 9200, "")
	ttl      = flag.Duration("ttl", 0, "time to live")
	newGroup = flag.Bool("new-group", false, "print a fresh group id and exit")
	version  = flag.Bool("version", false, "show build info and exit")
)

func main() {
	t0 := time.Now()
	flag.Parse()
	if *version {
		utils.ShowBuildInfo()
		return
	}
	if *newGroup {
		fmt.Println(rendezvous.NewGroupID())
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *ttl > 0 {
		ctx, cancel = context.WithTimeout(ctx, *ttl)
		defer cancel()
	}
	stop := utils.Trap(func(sig os.Signal) {
		log.Infof("%s received, stopping", sig)
		cancel()
	})
	defer stop()
	lis := must.M1(net.Listen("tcp", net.JoinHostPort(*host, strconv.Itoa(*port))))
	srv := rendezvous.NewServer()
	go func() {
		if err := srv.Serve(lis); err != nil {
			utils.ExitErr(err)
		}
	}()
	<-ctx.Done()
	srv.Stop()
	log.Infof("%s stopped after %s, %d groups pending", utils.ProgName(), time.Since(t0), srv.Len())
}
