package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zoobzio/granola"
	"github.com/zoobzio/granola/bson"
	"github.com/zoobzio/granola/json"
)

func newConvertCmd() *cobra.Command {
	var from, to, root, indent string

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Re-encode a document in another format",
		Example: `  granola convert --from bson --to json doc.bson
  granola convert --from json --to bson --root array < list.json > list.bson`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec, err := codecFor(from)
			if err != nil {
				return err
			}
			enc, err := codecFor(to)
			if err != nil {
				return err
			}
			rootKind, err := parseRoot(root)
			if err != nil {
				return err
			}
			if to == "json" && indent != "" {
				enc = json.New(json.WithPrettyPrint(indent))
			}

			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			var v any
			if from == "bson" {
				// A BSON root carries no marker saying whether it is a map
				// or an array, so the flag decides.
				d := bson.NewDecoder(bytes.NewReader(data), bson.WithRoot(rootKind), bson.WithMaxDepth(bson.DefaultMaxDepth))
				err = granola.Decode(d, &v)
			} else {
				err = dec.Unmarshal(data, &v)
			}
			if err != nil {
				return fmt.Errorf("decode %s: %w", from, err)
			}

			out, err := enc.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", to, err)
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "json", "input format: "+formatList(codecs))
	cmd.Flags().StringVar(&to, "to", "json", "output format: "+formatList(codecs))
	cmd.Flags().StringVar(&root, "root", "map", "BSON root kind when reading bson: map, array or value")
	cmd.Flags().StringVar(&indent, "indent", "", "indent string for json output")
	return cmd
}
