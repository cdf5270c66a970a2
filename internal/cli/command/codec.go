package command

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/evant/instance-state/internal/core/domain"
	"github.com/evant/instance-state/internal/protocol/codec"
)

// DecodeResult is the output of decode.
type DecodeResult struct {
	Kind    string `json:"kind"`
	Key     string `json:"key"`
	HasData bool   `json:"has_data"`
	Size    int    `json:"size"`
	Data    string `json:"data,omitempty"`
}

// EncodeCommand returns the offline encode command.
func EncodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Print the wire encoding of a request as hex",
		ArgsUsage: "<get|set|remove> <key> [value]",
		Flags: append(valueFlags(),
			&cli.BoolFlag{Name: "empty", Usage: "Encode an empty value"},
		),
		Action: runEncode,
	}
}

func runEncode(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return cli.Exit("usage: encode <get|set|remove> <key> [value]", 2)
	}
	kind, err := domain.ParseKind(c.Args().Get(0))
	if err != nil {
		return err
	}

	op := &domain.Operation{Kind: kind, Key: c.Args().Get(1)}
	hasValue := c.NArg() == 3 || c.Bool("empty")
	if kind == domain.KindSet && !hasValue {
		return fmt.Errorf("set needs a value (use --empty for an empty value)")
	}
	if hasValue {
		op.Data, err = parseValue(c, c.Args().Get(2), c.NArg() == 3)
		if err != nil {
			return err
		}
	}

	buf, err := codec.Encode(op)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, hex.EncodeToString(buf))
	return err
}

// DecodeCommand returns the offline decode command.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a hex request buffer",
		ArgsUsage: "<hex>",
		Flags:     valueFlags(),
		Action:    runDecode,
	}
}

func runDecode(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: decode <hex>", 2)
	}
	enc, err := encodingOf(c)
	if err != nil {
		return err
	}

	arg := strings.TrimPrefix(strings.Join(strings.Fields(c.Args().First()), ""), "0x")
	buf, err := hex.DecodeString(arg)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}

	op, err := codec.Decode(buf)
	if err != nil {
		return err
	}
	if op == nil {
		return printResult(c, map[string]string{"kind": "null"})
	}

	res := DecodeResult{
		Kind:    op.Kind.String(),
		Key:     op.Key,
		HasData: op.HasData(),
		Size:    len(op.Data),
	}
	if op.HasData() {
		res.Data = showValue(op.Data, enc)
	}
	return printResult(c, res)
}
