package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Attempt the action without a permit",
	Long: `Attempt the fixed action in a fresh session. No permit is held, so the
invalid permit id is sent and a correctly behaving service rejects it.

Use "sekisho submit --execute with" to execute under an issued permit.`,
	Args: cobra.NoArgs,
	RunE: runExecute,
}

var executeExpect []string

func init() {
	executeCmd.Flags().StringArrayVar(&executeExpect, "expect", nil, "CEL expectation over the result (repeatable)")
	rootCmd.AddCommand(executeCmd)
}

func runExecute(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	expectations, err := a.prepareExpectations(executeExpect)
	if err != nil {
		return err
	}

	svc := a.newSession()
	res := svc.Execute(cmd.Context(), false)

	outcomes, err := a.report(svc, expectations)
	if err != nil {
		return err
	}
	if !res.Received() {
		return fmt.Errorf("execute failed: %s", res.ErrorText)
	}
	return expectationsError(outcomes)
}
