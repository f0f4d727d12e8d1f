package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/granola"
	"github.com/zoobzio/granola/bson"
	"github.com/zoobzio/granola/cbor"
	"github.com/zoobzio/granola/json"
	"github.com/zoobzio/granola/msgpack"
	"github.com/zoobzio/granola/yaml"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "granola",
		Short: "Convert and inspect serialized documents",
		Long: `granola reads a document in one format and writes it in another, or
prints the token stream a format's parser produces. Input comes from the
named file, or standard input when no file is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd(), newTokensCmd())
	return root
}

// codecs lists the formats convert can read and write.
var codecs = map[string]func() granola.Codec{
	"bson":    bson.New,
	"cbor":    cbor.New,
	"json":    func() granola.Codec { return json.New() },
	"msgpack": msgpack.New,
	"yaml":    func() granola.Codec { return yaml.New() },
}

func codecFor(name string) (granola.Codec, error) {
	newCodec, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (want one of %s)", name, formatList(codecs))
	}
	return newCodec(), nil
}

func formatList[V any](m map[string]V) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func parseRoot(name string) (granola.Container, error) {
	for _, c := range []granola.Container{granola.ContainerMap, granola.ContainerArray, granola.ContainerValue} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown root %q (want map, array or value)", name)
}

// openInput returns the named file, or stdin for no name or "-".
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}
