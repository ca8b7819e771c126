package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/internal/bootstrap"
)

func main() {
	common.InitLocalEnvConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := bootstrap.InitCoordinator(ctx)
	if err != nil {
		var validationErr bootstrap.ConfigValidationError
		if asValidationError(err, &validationErr) {
			fmt.Fprintln(os.Stderr, validationErr.Error())
			os.Exit(2)
		}

		fmt.Fprintf(os.Stderr, "coordinator: substrate unreachable at startup: %v\n", err)
		os.Exit(1)
	}

	service.Run()
}

func asValidationError(err error, target *bootstrap.ConfigValidationError) bool {
	ve, ok := err.(bootstrap.ConfigValidationError)
	if !ok {
		return false
	}

	*target = ve

	return true
}
