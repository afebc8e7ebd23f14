// Command pakfetch downloads every asset of a game manifest that is
// missing or corrupt on disk, then waits for a key before exiting.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "pakfetch:", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := newApp(in, out)

	cmd := &cobra.Command{
		Use:   "pakfetch",
		Short: "Download and verify the assets listed in a manifest",
		Long: `pakfetch checks every entry of a manifest against its digest and
downloads the ones that are missing or corrupt, retrying until each
file verifies. Settings come from defaults, a YAML file, .env files,
PAKFETCH_* environment variables and flags, in increasing precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), cmd.Flags())
		},
	}

	cmd.SetIn(in)
	cmd.SetOut(out)

	fs := cmd.Flags()
	fs.StringVar(&a.configFile, "config", "", "YAML config file")
	fs.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files to load, missing ones are skipped")
	a.cfg.RegisterFlags(fs)

	return cmd
}
