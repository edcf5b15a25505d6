package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	// -ldflags "-X github.com/lsds/kungfu-ccl/srcs/go/utils.buildtimeString=$bt"
	buildtimeString string

	buildtime int64
)

func init() {
	buildtime, _ = strconv.ParseInt(buildtimeString, 10, 64)
}

func ShowBuildInfo() {
	if buildtime == 0 {
		fmt.Printf("%s: no build time recorded\n", ProgName())
		return
	}
	bt := time.Unix(buildtime, 0)
	fmt.Printf("%s built %s ago\n", ProgName(), time.Since(bt))
}

func ProgName() string {
	return filepath.Base(os.Args[0])
}
