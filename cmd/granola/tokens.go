package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/granola"
	"github.com/zoobzio/granola/bson"
	"github.com/zoobzio/granola/json"
	"github.com/zoobzio/granola/yaml"
)

// parsers lists the formats with a streaming token parser.
var parsers = map[string]func(r io.Reader, root granola.Container) granola.Parser{
	"bson": func(r io.Reader, root granola.Container) granola.Parser {
		return bson.NewDecoder(r, bson.WithRoot(root))
	},
	"json": func(r io.Reader, _ granola.Container) granola.Parser {
		return json.NewParser(r)
	},
	"yaml": func(r io.Reader, _ granola.Container) granola.Parser {
		return yaml.NewParser(r)
	},
}

func newTokensCmd() *cobra.Command {
	var format, root string

	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print the token stream of a document",
		Long: `tokens prints one line per token, indented by nesting depth. Keys show
their name and values show their kind and raw text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newParser, ok := parsers[format]
			if !ok {
				return fmt.Errorf("unknown format %q (want one of %s)", format, formatList(parsers))
			}
			rootKind, err := parseRoot(root)
			if err != nil {
				return err
			}

			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			w := bufio.NewWriter(cmd.OutOrStdout())
			err = printTokens(w, newParser(in, rootKind))
			if ferr := w.Flush(); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "bson", "input format: "+formatList(parsers))
	cmd.Flags().StringVar(&root, "root", "map", "BSON root kind: map, array or value")
	return cmd
}

// printTokens drains p until the document ends.
func printTokens(w io.Writer, p granola.Parser) error {
	depth := 0
	for {
		tok, err := p.NextToken()
		if err != nil {
			return err
		}
		if tok == granola.TokenMapEnd || tok == granola.TokenArrayEnd {
			depth--
		}

		line := tok.String()
		switch tok {
		case granola.TokenKey:
			line += " " + p.Key()
		case granola.TokenValue:
			raw, err := p.RawValue()
			if err != nil {
				return err
			}
			line += " " + p.Kind().String() + " " + raw
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), line); err != nil {
			return err
		}

		switch tok {
		case granola.TokenMapStart, granola.TokenArrayStart:
			depth++
		case granola.TokenDocEnd:
			return nil
		}
	}
}
