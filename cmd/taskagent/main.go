// Command taskagent is a natural-language task manager: a chat front end
// that turns requests into task store operations through a language model.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version is stamped by the release build with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
