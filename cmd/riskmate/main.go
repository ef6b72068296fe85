package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// startServer is a variable so tests can stub the long-running server.
var startServer = runServer

// Run is the testable entrypoint.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return serve(stderr)
	}

	switch args[1] {
	case "serve", "server":
		return serve(stderr)
	case "hash":
		return runHashCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "token":
		return runTokenCmd(args[2:], stdout, stderr)
	case "health":
		return runHealthCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func serve(stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := startServer(context.Background(), cfg); err != nil {
		log.Printf("[riskmate] server error: %v", err)
		return 1
	}
	return 0
}

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
	colorGray  = "\033[37m"
)

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sriskmate%s report signature sealing\n", colorBold, colorReset)
	_, _ = fmt.Fprintf(w, "%sSigned once, verifiable forever.%s\n", colorGray, colorReset)
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%sUSAGE:%s\n", colorBold, colorReset)
	_, _ = fmt.Fprintln(w, "  riskmate <command> [flags]")
	_, _ = fmt.Fprintln(w, "")

	printSection(w, "SERVER")
	printCommand(w, "serve", "Run the signing API (default)")
	printCommand(w, "health", "Check server health (HTTP)")

	printSection(w, "SIGNATURES")
	printCommand(w, "hash", "Compute a signature hash (--in, --scheme)")
	printCommand(w, "verify", "Verify a record or evidence bundle (--record | --bundle)")
	printCommand(w, "export", "Export a run's evidence bundle (--run, --out)")

	printSection(w, "DEVELOPMENT")
	printCommand(w, "token", "Issue a development bearer token")
	printCommand(w, "help", "Show this help")
	_, _ = fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s%s:%s\n", colorBold+colorCyan, title, colorReset)
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %s%-10s%s %s\n", colorGreen, name, colorReset, desc)
}

var healthClient = &http.Client{Timeout: 5 * time.Second}

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	url := "http://localhost:" + os.Getenv("HEALTH_PORT") + "/health"
	if os.Getenv("HEALTH_PORT") == "" {
		url = "http://localhost:8081/health"
	}
	if len(args) > 0 {
		url = args[0]
	}

	resp, err := healthClient.Get(url)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "OK")
	return 0
}
