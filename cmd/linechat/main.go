// Command linechat runs the line-oriented chat relay server described in
// original_source/main.c, reimplemented as a single-threaded epoll reactor.
//
// Flag parsing, logger construction, and signal-driven shutdown follow the
// teacher's examples/broadcast/main.go; the positional-port argument,
// usage message, and validation range follow original_source/main.c's
// main() (show_usage, strtoul, the 1..65535 range checks).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/momentics/linechat/internal/control"
	"github.com/momentics/linechat/internal/limits"
	"github.com/momentics/linechat/internal/reactor"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	port, err := strconv.ParseUint(flag.Arg(0), 10, 32)
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}
	if port == 0 {
		fmt.Fprintln(os.Stderr, "port 0 is not allowed")
		os.Exit(1)
	}
	if port > 65535 {
		fmt.Fprintln(os.Stderr, "port is too big")
		os.Exit(1)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctrl := control.New()
	ctrl.Config.Set("port", port)
	ctrl.Config.Set("max_connections", limits.MaxConn)
	ctrl.Config.Set("max_history", limits.MaxHist)

	listenFD, err := reactor.Listen(int(port))
	if err != nil {
		logger.Fatalf("linechat: %v", err)
	}

	loop, err := reactor.New(listenFD, logger, ctrl)
	if err != nil {
		logger.Fatalf("linechat: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Println("linechat: shutdown signal received, closing listener")
		loop.Close()
		os.Exit(0)
	}()

	logger.Printf("linechat: listening on port %d", port)
	if err := loop.Run(); err != nil {
		logger.Fatalf("linechat: %v", err)
	}
}
