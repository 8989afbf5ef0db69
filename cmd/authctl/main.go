package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coursesms/courses/internal/authctl"
	"github.com/coursesms/courses/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger(os.Stderr, os.Getenv("LOG_LEVEL"))

	err := authctl.New(os.Stdin, os.Stdout, logger).Run(ctx, os.Args[1:])
	if err != nil {
		if !errors.Is(err, authctl.ErrUsage) {
			fmt.Fprint(os.Stderr, "authctl: ")
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
