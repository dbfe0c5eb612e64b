// ABOUTME: CLI entrypoint for the enesim traffic simulator.
// ABOUTME: Serves the simulated Ene API and emits scripted event cycles until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IriaiSan/Ene-sub001/sim"
)

var version = "dev"

func main() {
	var (
		addr        = flag.String("addr", "127.0.0.1:8900", "Listen address")
		journalPath = flag.String("journal", "enesim.db", "Path to the event journal database")
		interval    = flag.Duration("interval", 2*time.Second, "Delay between emitted cycles")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "Traffic seed for reproducible runs")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("enesim %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(*addr, *journalPath, *interval, *seed))
}

func run(addr, journalPath string, interval time.Duration, seed int64) int {
	journal, err := sim.OpenJournal(journalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enesim: %v\n", err)
		return 1
	}
	defer journal.Close()

	world := sim.NewWorld()
	server := sim.NewServer(journal, world)
	scenario := sim.NewScenario(journal, world, seed)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go scenario.Run(ctx, interval)

	httpServer := &http.Server{Addr: addr, Handler: server}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("enesim %s listening on %s\n", version, addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "enesim: %v\n", err)
		return 1
	}
	return 0
}
