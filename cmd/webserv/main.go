// Command webserv runs the HTTP/1.1 origin server defined by a single
// configuration file given as the program's only argument.
//
// No CLI framework sits in front of this: spec §13 names exactly one
// required positional argument and a single optional flag, a surface
// too small to justify urfave/cli or cobra the way docker-compose's
// containerd daemon needs codegangsta/cli for its dozen flags.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nullform/webserv/internal/config"
	"github.com/nullform/webserv/internal/eventloop"
	"github.com/nullform/webserv/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: webserv [-verbose] <config-file>")
		return 1
	}

	log := logging.New(*verbose)

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return 1
	}

	srv, err := eventloop.NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to start server")
		return 1
	}
	defer srv.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown requested")
		srv.Shutdown()
	}()

	if err := srv.Run(); err != nil {
		log.WithError(err).Error("event loop exited with error")
		return 1
	}
	return 0
}
