package command

import (
	"context"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/evant/instance-state/internal/cli/output"
	"github.com/evant/instance-state/internal/infra/buildinfo"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show store and server status (local socket)",
		Action: runStatus,
	}
}

func runStatus(c *cli.Context) error {
	client := socketClient(c)
	defer client.Close()

	var status map[string]any
	if err := client.Execute(&status, "status"); err != nil {
		return err
	}
	return printResult(c, status)
}

// SnapshotCommand returns the snapshot command.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:   "snapshot",
		Usage:  "List the save store contents (local socket)",
		Flags:  valueFlags(),
		Action: runSnapshot,
	}
}

func runSnapshot(c *cli.Context) error {
	enc, err := encodingOf(c)
	if err != nil {
		return err
	}

	client := socketClient(c)
	defer client.Close()

	// []byte values arrive base64 encoded.
	var entries map[string][]byte
	if err := client.Execute(&entries, "snapshot"); err != nil {
		return err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := output.NewTable("KEY", "SIZE", "VALUE")
	for _, k := range keys {
		v := entries[k]
		table.AddRow(k, strconv.Itoa(len(v)), showValue(v, enc))
	}
	return printResult(c, table)
}

// PersistCommand returns the persist command.
func PersistCommand() *cli.Command {
	return &cli.Command{
		Name:   "persist",
		Usage:  "Write the save store to the storage backend now",
		Action: runPersist,
	}
}

func runPersist(c *cli.Context) error {
	return simpleCommand(c, "persist")
}

// LogLevelCommand returns the loglevel command.
func LogLevelCommand() *cli.Command {
	return &cli.Command{
		Name:      "loglevel",
		Usage:     "Show or change the server log level",
		ArgsUsage: "[debug|info|warn|error]",
		Action: func(c *cli.Context) error {
			return simpleCommand(c, "loglevel", c.Args().Slice()...)
		},
	}
}

// ShutdownCommand returns the shutdown command.
func ShutdownCommand() *cli.Command {
	return &cli.Command{
		Name:  "shutdown",
		Usage: "Gracefully stop the server (state is persisted first)",
		Action: func(c *cli.Context) error {
			return simpleCommand(c, "shutdown")
		},
	}
}

func simpleCommand(c *cli.Context, cmd string, args ...string) error {
	client := socketClient(c)
	defer client.Close()

	var data map[string]any
	if err := client.Execute(&data, cmd, args...); err != nil {
		return err
	}
	return printResult(c, data)
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server liveness and readiness (admin HTTP)",
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			client := httpClient(c)
			result := map[string]string{"health": "ok", "ready": "ok"}
			if err := client.Get(ctx, "/health", nil); err != nil {
				result["health"] = err.Error()
			}
			if err := client.Get(ctx, "/ready", nil); err != nil {
				result["ready"] = err.Error()
			}
			return printResult(c, result)
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show client and server versions",
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			result := map[string]any{"client": buildinfo.Get()}
			var server buildinfo.Info
			if err := httpClient(c).Get(ctx, "/v1/version", &server); err != nil {
				result["server"] = err.Error()
			} else {
				result["server"] = server
			}
			return printResult(c, result)
		},
	}
}
