// translate-document requests document translations from a running portal
// server and optionally waits for them to finish.
//
// Usage:
//
//	translate-document request <document-id> --lang fr --user <user-id> [--wait]
//	translate-document status <document-id> --lang fr
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "translate-document",
	Short: "Request and track HOA portal document translations",
	Long: `translate-document talks to the portal API to request translations of
community documents and to report their progress.

Examples:
  translate-document request 3f2c... --lang fr --user u-17 --wait
  translate-document status 3f2c... --lang ar`,
	SilenceUsage: true,
}

func init() {
	defaultServer := os.Getenv("PORTAL_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "portal API base URL (env PORTAL_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "http-timeout", 30*time.Second, "timeout for each API call")

	rootCmd.AddCommand(newRequestCmd(), newStatusCmd())
}

func httpClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
