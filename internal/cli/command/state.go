package command

import (
	"github.com/urfave/cli/v2"
)

// GetResult is the output of get.
type GetResult struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
	Size    int    `json:"size"`
	Value   string `json:"value,omitempty"`
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read a restored value (the server consumes it)",
		ArgsUsage: "<key>",
		Flags:     valueFlags(),
		Action:    runGet,
	}
}

func runGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: get <key>", 2)
	}
	enc, err := encodingOf(c)
	if err != nil {
		return err
	}

	client, err := dialMessage(c)
	if err != nil {
		return err
	}
	defer client.Close()

	key := c.Args().First()
	v, ok, err := client.Get(key)
	if err != nil {
		return err
	}

	res := GetResult{Key: key, Present: ok, Size: len(v)}
	if ok {
		res.Value = showValue(v, enc)
	}
	return printResult(c, res)
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value for the next instance",
		ArgsUsage: "<key> [value]",
		Flags: append(valueFlags(),
			&cli.BoolFlag{Name: "empty", Usage: "Store an empty value"},
		),
		Action: runSet,
	}
}

func runSet(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("usage: set <key> [value]", 2)
	}
	value, err := parseValue(c, c.Args().Get(1), c.NArg() == 2)
	if err != nil {
		return err
	}

	client, err := dialMessage(c)
	if err != nil {
		return err
	}
	defer client.Close()

	key := c.Args().First()
	if err := client.Set(key, value); err != nil {
		return err
	}
	return printResult(c, map[string]any{"key": key, "size": len(value)})
}

// RemoveCommand returns the remove command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Drop a value from the save store",
		ArgsUsage: "<key>",
		Action:    runRemove,
	}
}

func runRemove(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: remove <key>", 2)
	}

	client, err := dialMessage(c)
	if err != nil {
		return err
	}
	defer client.Close()

	key := c.Args().First()
	if err := client.Remove(key); err != nil {
		return err
	}
	return printResult(c, map[string]any{"key": key, "removed": true})
}
