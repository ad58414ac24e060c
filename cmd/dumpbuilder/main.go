// Command dumpbuilder converts a coordinate dump into the shape editor's JSON import format.
//
//	dumpbuilder -in coords.txt -out generated.json
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/coords-visualizer/backend/internal/export"
	"github.com/coords-visualizer/backend/internal/models"
	"github.com/coords-visualizer/backend/internal/parser"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "dumpbuilder: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dumpbuilder", flag.ContinueOnError)
	fs.SetOutput(stderr)

	in := fs.String("in", "coords.txt", "input coordinate dump (- for stdin)")
	out := fs.String("out", "generated.json", "output file (- for stdout)")
	parserName := fs.String("parser", "coords", "parser: coords or coords-two-pass")
	strict := fs.Bool("strict", false, "fail on references to unknown points")
	rawTokens := fs.Bool("raw-tokens", false, "look up shape tokens untrimmed, including the line terminator")
	dropDegenerate := fs.Bool("drop-degenerate", false, "omit shapes with fewer than 2 resolved points instead of failing")
	stylePath := fs.String("style", "", "YAML style file overriding the shape properties")
	asMsgpack := fs.Bool("msgpack", false, "write msgpack instead of JSON")
	pretty := fs.Bool("pretty", false, "indent the JSON output")
	quiet := fs.Bool("q", false, "suppress warnings and the summary")

	if err := fs.Parse(args); err != nil {
		return err
	}

	registry := parser.NewRegistry(parser.Options{Strict: *strict, RawTokens: *rawTokens})
	p, err := registry.GetParserByName(*parserName)
	if err != nil {
		return err
	}

	exp := export.New()
	if *stylePath != "" {
		props, err := parser.ParseStyle(*stylePath)
		if err != nil {
			return fmt.Errorf("loading style: %w", err)
		}
		exp.Properties = props
	}
	if *dropDegenerate {
		exp.Degenerate = export.DegenerateDrop
	}

	var (
		drawing  *models.Drawing
		warnings []*models.ParseError
	)
	if *in == "-" {
		drawing, warnings, err = p.ParseReader(os.Stdin)
	} else {
		drawing, warnings, err = p.Parse(*in)
	}
	if err != nil {
		return err
	}

	var data []byte
	if *asMsgpack {
		data, err = exp.Msgpack(drawing)
	} else {
		data, err = exp.JSON(drawing)
		if err == nil && *pretty {
			var buf bytes.Buffer
			if err = json.Indent(&buf, data, "", "  "); err == nil {
				data = buf.Bytes()
			}
		}
	}
	if err != nil {
		return err
	}

	if *out == "-" {
		_, err = stdout.Write(data)
	} else {
		err = os.WriteFile(*out, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if !*quiet {
		for _, w := range warnings {
			fmt.Fprintf(stderr, "warning: line %d: %s\n", w.Line, w.Reason)
		}
		s := export.Summarize(drawing)
		fmt.Fprintf(stderr, "%d points, %d shapes %v, %d unresolved references\n",
			s.PointCount, s.ShapeCount, s.ShapeTypes, s.DroppedRefs)
	}
	return nil
}
