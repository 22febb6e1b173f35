// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// tickscript runs one interaction script against a named entity, advancing
// it on the world tick and reading responses from the terminal.
//
//	tickscript -d ./world -type npc,mob -name doomsayer -option Talk-to
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aplane-algo/tickscript/internal/interact"
	"github.com/aplane-algo/tickscript/internal/util"
	"github.com/aplane-algo/tickscript/internal/version"
)

func main() {
	printVersion := flag.Bool("version", false, "Print version and exit")
	printConfig := flag.Bool("config", false, "Print the effective configuration and exit")
	dataDir := flag.String("d", "", "Data directory (default: ~/.tickscript or TICKSCRIPT_DATA)")
	types := flag.String("type", "", "Comma-separated type tags of the target, most specific first (e.g. npc,mob)")
	name := flag.String("name", "", "Target entity name (e.g. doomsayer)")
	option := flag.String("option", "", "Interaction option (e.g. Talk-to)")
	subject := flag.String("subject", "player", "Name of the interacting entity")
	flag.Parse()

	if *printVersion {
		fmt.Printf("tickscript %s\n", version.String())
		os.Exit(0)
	}

	// Resolve data directory: -d flag > TICKSCRIPT_DATA env var > ~/.tickscript
	resolvedDataDir := util.RequireDataDir(*dataDir)

	if *printConfig {
		util.DisplayConfig(resolvedDataDir)
		os.Exit(0)
	}

	if *name == "" || *option == "" {
		fmt.Fprintln(os.Stderr, "Error: -name and -option are required")
		flag.Usage()
		os.Exit(2)
	}

	// Initialize logger (supports TICKSCRIPT_DEBUG environment variable)
	util.InitLogger()

	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	util.Debug("loaded config", "data_dir", resolvedDataDir, "scripts_dir", config.ScriptsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	input, closeInput := newInput(stop)
	defer closeInput()

	target := interact.NewEntity(*name, splitTags(*types)...)
	player := interact.NewEntity(*subject, "player", "mob")

	err = run(ctx, config, player, target, *option, input, newPrinter(os.Stdout))
	switch {
	case err == nil:
	case errors.Is(err, interact.ErrNotHandled):
		fmt.Println("Nothing interesting happens.")
	case errors.Is(err, context.Canceled):
		fmt.Println("Interaction abandoned.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		closeInput()
		os.Exit(1)
	}
}

// splitTags parses the -type flag value.
func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
