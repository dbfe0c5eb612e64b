// ABOUTME: CLI entrypoint for the enewatch dashboard TUI.
// ABOUTME: Wires the SSE subscriptions, pipeline machine, thread graph, and API client into a Bubble Tea program.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/IriaiSan/Ene-sub001/api"
	"github.com/IriaiSan/Ene-sub001/config"
	"github.com/IriaiSan/Ene-sub001/graph"
	"github.com/IriaiSan/Ene-sub001/pipeline"
	"github.com/IriaiSan/Ene-sub001/stream"
	"github.com/IriaiSan/Ene-sub001/tui"
)

var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file")
		baseURL     = flag.String("url", "", "Server base URL (overrides config)")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("enewatch %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(*configPath, *baseURL))
}

func run(configPath, baseURL string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enewatch: %v\n", err)
		return 1
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	client := api.NewClient(cfg.BaseURL, cfg.RequestTimeout)

	// The bridge needs program.Send, and the program needs the model that
	// holds the machine. Late-bind the send function to break the cycle; no
	// message is sent before Run starts the loop.
	var program *tea.Program
	bridge := tui.NewBridge(func(msg tea.Msg) { program.Send(msg) }, client)

	precedence := pipeline.PrecedenceRichWins
	if cfg.DaemonPrecedence == "temporal" {
		precedence = pipeline.PrecedenceTemporal
	}
	machine := pipeline.NewMachine(
		pipeline.WithEffects(bridge),
		pipeline.WithPrecedence(precedence),
	)
	threads := graph.NewModel()

	model := tui.NewAppModel(machine, threads, client, cfg.PollInterval)
	program = tea.NewProgram(model, tea.WithAltScreen())

	subscriptions := []stream.Config{
		bridge.StreamConfig(tui.StreamEvents, cfg.BaseURL+"/events", []string{"event", "state"}, cfg.LiveRetry),
		bridge.StreamConfig(tui.StreamPrompts, cfg.BaseURL+"/prompts", []string{"prompt"}, cfg.SummaryRetry),
		bridge.StreamConfig(tui.StreamGraph, cfg.BaseURL+"/graph", []string{"event"}, cfg.LiveRetry),
	}

	var clients []*stream.Client
	for _, sub := range subscriptions {
		c, err := stream.Subscribe(sub)
		if err != nil {
			fmt.Fprintf(os.Stderr, "enewatch: subscribe %s: %v\n", sub.URL, err)
			return 1
		}
		clients = append(clients, c)
	}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "enewatch: %v\n", err)
		return 1
	}
	return 0
}
