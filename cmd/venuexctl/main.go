// venuexctl is an operator CLI for the ticketing API.  It drives the
// client SDK: browse events, book and pay, and walk settlements through
// review.
//
// Usage:
//
//	venuexctl [--api URL] [--token JWT] <command> [flags]
//
// The API URL and token default to $VENUEX_API and $VENUEX_TOKEN.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/venuex-ticketing/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env carries what every command needs.
type env struct {
	api *client.Client
	out io.Writer
}

func (e env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type command struct {
	summary string
	run     func(ctx context.Context, e env, args []string) error
}

var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("venuexctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(out)
	apiURL := global.String("api", envOr("VENUEX_API", "http://localhost:8080"), "API base URL")
	token := global.String("token", os.Getenv("VENUEX_TOKEN"), "bearer access token")
	timeout := global.Duration("timeout", 10*time.Second, "per-command timeout")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(out, global)
			return nil
		}
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(out, global)
		return errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(out, global)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	api, err := client.New(client.Config{BaseURL: *apiURL})
	if err != nil {
		return err
	}
	api.SetToken(*token)

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	return cmd.run(ctx, env{api: api, out: out}, rest[1:])
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func printUsage(out io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(out, "Usage: venuexctl [global flags] <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-20s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Global flags:")
	fmt.Fprint(out, global.FlagUsages())
}

// flags returns a FlagSet for a subcommand that reports errors instead
// of exiting.
func flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func requireID(name string, id uint64) error {
	if id == 0 {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}

func trimmed(s string) string { return strings.TrimSpace(s) }
