// Command dit-server runs the rendezvous service dit's DKG and signing
// engines coordinate through: parties broadcast and poll for each other's
// round messages against it instead of talking to each other directly.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bfix/gospel/logger"

	"dit/rendezvous/server"
)

func main() {
	defer func() {
		logger.Println(logger.INFO, "[dit-server] Bye.")
		logger.Flush()
	}()
	logger.Println(logger.INFO, "[dit-server] Starting service...")

	var (
		addr      string
		logLevel  int
		storeSpec string
	)
	flag.StringVar(&addr, "l", ":8080", "listen address")
	flag.IntVar(&logLevel, "L", logger.INFO, "log level (default: INFO)")
	flag.StringVar(&storeSpec, "store", "", "mailbox store spec (default: in-process map); e.g. "+
		"\"redis+localhost:6379++0\", \"sqlite3+/var/lib/dit-server/mailbox.db\", \"mysql+user:pw@tcp(host)/db\"")
	flag.Parse()
	logger.SetLogLevel(logLevel)

	rendezvousServer, err := server.NewWithStore(storeSpec)
	if err != nil {
		logger.Printf(logger.ERROR, "[dit-server] invalid -store spec %q: %s\n", storeSpec, err)
		os.Exit(1)
	}

	srv := &http.Server{Addr: addr, Handler: rendezvousServer.Router()}
	go func() {
		logger.Printf(logger.INFO, "[dit-server] listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf(logger.ERROR, "[dit-server] %s\n", err)
		}
	}()

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh)
	tick := time.NewTicker(5 * time.Minute)

loop:
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Printf(logger.INFO, "[dit-server] terminating service (on signal '%s')\n", sig)
				break loop
			case syscall.SIGHUP:
				logger.Println(logger.INFO, "[dit-server] SIGHUP")
			default:
				logger.Println(logger.INFO, "[dit-server] unhandled signal: "+sig.String())
			}
		case now := <-tick.C:
			logger.Println(logger.INFO, "[dit-server] heart beat at "+now.String())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
