package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewEvaluationCmd создаёт группу команд для просмотра evaluations.
func NewEvaluationCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluation",
		Aliases: []string{"eval"},
		Short:   "Inspect evaluations",
	}

	cmd.AddCommand(
		newEvaluationListCmd(clientFn, outputFn),
		newEvaluationShowCmd(clientFn, outputFn),
	)

	return cmd
}

// printEvaluation выводит evaluation: сводку в stderr, выходы в stdout.
func printEvaluation(out *Output, e *EvaluationResponse) {
	if out.jsonMode {
		out.JSON(e)
		return
	}

	summary := fmt.Sprintf("Evaluation %s: %s (script %s v%d", e.ID, e.Status, e.ScriptID, e.Version)
	if e.Workflow != "" {
		summary += ", workflow " + e.Workflow
	}
	summary += ")"
	if e.DurationMs > 0 {
		summary += fmt.Sprintf(" in %dms", e.DurationMs)
	}
	out.Success(summary)
	if e.Error != "" {
		out.Error(e.Error)
	}
	if len(e.Outputs) > 0 {
		out.Outputs(e.Outputs)
	}
}

func newEvaluationListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListEvaluationsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List evaluations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			evaluations, err := client.ListEvaluations(opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "SCRIPT_ID", "VERSION", "WORKFLOW", "STATUS", "DURATION", "CREATED"}
			rows := make([][]string, len(evaluations))
			for i, e := range evaluations {
				rows[i] = []string{
					e.ID, e.ScriptID, strconv.Itoa(e.Version), e.Workflow, e.Status,
					formatDuration(e.DurationMs), e.CreatedAt,
				}
			}

			out.Print(headers, rows, evaluations)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ScriptID, "script-id", "", "Filter by script ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of evaluations")

	return cmd
}

func newEvaluationShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an evaluation with its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			e, err := client.GetEvaluation(args[0])
			if err != nil {
				return err
			}

			printEvaluation(out, e)
			return nil
		},
	}
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return strconv.FormatInt(ms, 10) + "ms"
}
