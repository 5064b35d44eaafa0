// Command digipin encodes and decodes grid pins from the shell.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

type Options struct {
	Format string `short:"f" long:"format" description:"Output format" choice:"text" choice:"json" choice:"yaml" default:"text"`
}

type output struct {
	opts *Options
	w    io.Writer
}

// print writes text as-is in text mode and v as JSON or YAML otherwise.
func (o output) print(text string, v any) error {
	switch o.opts.Format {
	case "json":
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = o.w.Write(b)
		return err
	default:
		_, err := fmt.Fprintln(o.w, text)
		return err
	}
}

type EncodeCommand struct {
	Lat float64 `long:"lat" description:"Latitude in degrees" required:"true"`
	Lon float64 `long:"lon" description:"Longitude in degrees" required:"true"`

	out output
}

func (c *EncodeCommand) Execute([]string) error {
	code, err := digipin.Encode(c.Lat, c.Lon)
	if err != nil {
		return err
	}
	return c.out.print(code, map[string]any{"digipin": code, "lat": c.Lat, "lon": c.Lon})
}

type DecodeCommand struct {
	Args struct {
		Code string `positional-arg-name:"CODE" description:"Grid pin, separators optional"`
	} `positional-args:"yes" required:"yes"`

	out output
}

func (c *DecodeCommand) Execute([]string) error {
	code := strings.ToUpper(strings.TrimSpace(c.Args.Code))
	center, err := digipin.Decode(code)
	if err != nil {
		return err
	}
	symbols, _ := digipin.Normalize(code)
	return c.out.print(center.FormattedLat()+","+center.FormattedLon(), map[string]any{
		"digipin": digipin.Format(symbols),
		"lat":     center.Lat,
		"lon":     center.Lon,
	})
}

type BoundsCommand struct {
	Args struct {
		Code string `positional-arg-name:"CODE" description:"Grid pin or pin prefix (1 to 10 symbols)"`
	} `positional-args:"yes" required:"yes"`

	out output
}

func (c *BoundsCommand) Execute([]string) error {
	code := strings.ToUpper(strings.TrimSpace(c.Args.Code))
	b, err := digipin.PrefixBounds(code)
	if err != nil {
		return err
	}
	center := b.Center()
	return c.out.print(b.String(), map[string]any{
		"cell":   code,
		"minLat": b.MinLat,
		"maxLat": b.MaxLat,
		"minLon": b.MinLon,
		"maxLon": b.MaxLon,
		"center": map[string]float64{"lat": center.Lat, "lon": center.Lon},
	})
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts Options
	out := output{opts: &opts, w: stdout}

	encode := &EncodeCommand{out: out}
	decode := &DecodeCommand{out: out}
	bounds := &BoundsCommand{out: out}

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.AddCommand("encode", "Encode a coordinate", "Print the grid pin of the level-10 cell holding --lat/--lon.", encode); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if _, err := parser.AddCommand("decode", "Decode a pin", "Print the center of the cell denoted by CODE.", decode); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if _, err := parser.AddCommand("bounds", "Cell bounds of a pin", "Print minLat,minLon,maxLat,maxLon of CODE.", bounds); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
