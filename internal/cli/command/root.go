package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/evant/instance-state/internal/cli/config"
	"github.com/evant/instance-state/internal/cli/connection"
	"github.com/evant/instance-state/internal/cli/output"
	"github.com/evant/instance-state/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "instancestate-cli",
		Usage:   "Inspect and drive an instancestate-server",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			SetCommand(),
			RemoveCommand(),
			EncodeCommand(),
			DecodeCommand(),
			StatusCommand(),
			SnapshotCommand(),
			PersistCommand(),
			LogLevelCommand(),
			ShutdownCommand(),
			HealthCommand(),
			VersionCommand(),
		},
		Before: applyConfigFile,
	}
}

func globalFlags() []cli.Flag {
	def := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "network",
			Usage:   "Message transport network: tcp or unix",
			EnvVars: []string{"INSTANCESTATE_NETWORK"},
			Value:   def.Network,
		},
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "Message transport address",
			EnvVars: []string{"INSTANCESTATE_ADDR"},
			Value:   def.Addr,
		},
		&cli.StringFlag{
			Name:    "socket",
			Usage:   "Local management socket path",
			EnvVars: []string{"INSTANCESTATE_SOCKET"},
			Value:   def.Socket,
		},
		&cli.StringFlag{
			Name:    "http",
			Usage:   "Admin HTTP address",
			EnvVars: []string{"INSTANCESTATE_HTTP"},
			Value:   def.HTTP,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   def.Output,
		},
		&cli.BoolFlag{
			Name:    "ack",
			Usage:   "Wait for mutation acknowledgements (server ack_mutations)",
			EnvVars: []string{"INSTANCESTATE_ACK"},
			Value:   def.Ack,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Network timeout",
			Value: def.Timeout,
		},
	}
}

// applyConfigFile fills flags the user did not set from the config file.
func applyConfigFile(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	values := map[string]string{
		"network": cfg.Network,
		"addr":    cfg.Addr,
		"socket":  cfg.Socket,
		"http":    cfg.HTTP,
		"output":  cfg.Output,
		"ack":     fmt.Sprint(cfg.Ack),
		"timeout": cfg.Timeout.String(),
	}
	for name, v := range values {
		if c.IsSet(name) || v == "" {
			continue
		}
		if err := c.Set(name, v); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	return nil
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Network string
	Addr    string
	Socket  string
	HTTP    string
	Output  string
	Ack     bool
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Network: c.String("network"),
		Addr:    c.String("addr"),
		Socket:  c.String("socket"),
		HTTP:    c.String("http"),
		Output:  c.String("output"),
		Ack:     c.Bool("ack"),
		Timeout: c.Duration("timeout"),
	}
}

func dialMessage(c *cli.Context) (*connection.MessageClient, error) {
	f := ParseGlobalFlags(c)
	ctx, cancel := context.WithTimeout(c.Context, f.Timeout)
	defer cancel()
	return connection.DialMessage(ctx, f.Network, f.Addr, f.Timeout, f.Ack)
}

func socketClient(c *cli.Context) *connection.SocketClient {
	f := ParseGlobalFlags(c)
	return connection.NewSocketClient(f.Socket, f.Timeout)
}

func httpClient(c *cli.Context) *connection.HTTPClient {
	f := ParseGlobalFlags(c)
	return connection.NewHTTPClient(f.HTTP, f.Timeout)
}

// printResult writes data in the selected output format.
func printResult(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
