package command

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/urfave/cli/v2"
)

// valueFlags select how a value argument is decoded and how values are shown.
func valueFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "hex", Usage: "Value is hex encoded"},
		&cli.BoolFlag{Name: "base64", Usage: "Value is base64 encoded"},
	}
}

func encodingOf(c *cli.Context) (string, error) {
	if c.Bool("hex") && c.Bool("base64") {
		return "", errors.New("--hex and --base64 are mutually exclusive")
	}
	switch {
	case c.Bool("hex"):
		return "hex", nil
	case c.Bool("base64"):
		return "base64", nil
	default:
		return "raw", nil
	}
}

// parseValue decodes a value argument. --empty yields an empty, non-nil value.
func parseValue(c *cli.Context, arg string, hasArg bool) ([]byte, error) {
	if c.Bool("empty") {
		if hasArg {
			return nil, errors.New("--empty takes no value argument")
		}
		return []byte{}, nil
	}
	if !hasArg {
		return nil, errors.New("missing value (use --empty for an empty value)")
	}

	enc, err := encodingOf(c)
	if err != nil {
		return nil, err
	}
	switch enc {
	case "hex":
		v, err := hex.DecodeString(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid hex value: %w", err)
		}
		return v, nil
	case "base64":
		v, err := base64.StdEncoding.DecodeString(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 value: %w", err)
		}
		return v, nil
	default:
		return []byte(arg), nil
	}
}

// showValue renders v for display. Raw mode falls back to hex for
// non-UTF-8 data.
func showValue(v []byte, enc string) string {
	switch enc {
	case "hex":
		return hex.EncodeToString(v)
	case "base64":
		return base64.StdEncoding.EncodeToString(v)
	}
	if utf8.Valid(v) {
		return string(v)
	}
	return "0x" + hex.EncodeToString(v)
}
