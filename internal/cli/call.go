package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newCallCommand(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "call METHOD [KEY=VALUE...]",
		Short: "Invoke any RPC method",
		Long: "Invoke an RPC method with key=value arguments. Numeric values are sent as\n" +
			"numbers and comma separated values as lists, e.g.\n\n" +
			"  transmission-cli call torrent-get ids=1,2 fields=id,name\n\n" +
			"The result is normalized unless --raw is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parsePairs(args[1:])
			if err != nil {
				return err
			}

			var out any
			if raw {
				out, err = a.client.CallRaw(cmd.Context(), args[0], params)
			} else {
				out, err = a.client.Call(cmd.Context(), args[0], params)
			}
			if err != nil {
				return err
			}

			return a.render(cmd, out, func(w io.Writer) error {
				tree, err := toTree(out)
				if err != nil {
					return err
				}
				return printTree(w, tree)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the daemon's answer without normalization")
	return cmd
}
