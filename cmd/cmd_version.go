package cmd

import (
	"fmt"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/constants"
	"github.com/carbon-ledger/token-sync/modules/tokensync"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var versions = map[string]string{
	"":          constants.Version,
	"tokensync": tokensync.Version,
}

type versionCmdOptions struct {
	Modules string
}

func NewVersionCommand() *cobra.Command {
	opts := &versionCmdOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show tokensync version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return versionHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Modules, "module", "", `Show version of a specific module. E.g. "tokensync"`)

	return cmd
}

func versionHandler(opts *versionCmdOptions, cmd *cobra.Command, _ []string) error {
	version, ok := versions[opts.Modules]
	if !ok {
		return errors.Wrap(errs.Unsupported, "Invalid module name")
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
	return nil
}
