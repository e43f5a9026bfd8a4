// Package main provides the entry point for the breast diagnosis MCP server.
// It requires no external databases: records live in SQLite under the data directory.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/breast-dx-server/internal/config"
	"github.com/breast-dx-server/internal/mcp"
	"github.com/breast-dx-server/internal/setup"
)

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := runSetup(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("Breast diagnosis MCP server stopped")
}

// runSetup registers this binary with the desktop MCP client.
func runSetup(args []string) error {
	if len(args) > 0 && args[0] == "status" {
		path, err := setup.DefaultConfigPath()
		if err != nil {
			return err
		}
		status, err := setup.Inspect(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "config: %s\nregistered: %t\n", status.ConfigPath, status.Registered)
		for _, issue := range status.Issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return nil
	}

	binary, err := os.Executable()
	if err != nil {
		return err
	}
	cfg := config.LoadLiteConfig()
	path, err := setup.Register(setup.Options{BinaryPath: binary, DataDir: cfg.DataDir, ModelPath: cfg.ModelPath})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Registered %s in %s\n", setup.ServerKey, path)
	return nil
}
