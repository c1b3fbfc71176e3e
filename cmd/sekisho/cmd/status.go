package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the decision service",
	Long: `Fetch the decision service's API descriptor and classify the connection:

  CONNECTED      the descriptor advertises the submit and execute paths
  WRONG_SERVER   something answered, but it is not a decision service
  DISCONNECTED   the descriptor could not be fetched

Exits non-zero unless the service is CONNECTED.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rep := a.probe(cmd.Context())
	if err := a.renderer.Connectivity(a.client.BaseURL(), rep); err != nil {
		return err
	}
	if rep.Status != connectivity.Connected {
		return fmt.Errorf("decision service at %s is %s", a.client.BaseURL(), rep.Status)
	}
	return nil
}
