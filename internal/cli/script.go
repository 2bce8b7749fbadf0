package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Kira/internal/domain"
)

// NewScriptCmd создаёт группу команд для управления scripts.
func NewScriptCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage stored scripts",
	}

	cmd.AddCommand(
		newScriptListCmd(clientFn, outputFn),
		newScriptCreateCmd(clientFn, outputFn),
		newScriptShowCmd(clientFn, outputFn),
		newScriptUpdateCmd(clientFn, outputFn),
		newScriptDeleteCmd(clientFn, outputFn),
		newScriptVersionsCmd(clientFn, outputFn),
		newScriptEvalCmd(clientFn, outputFn),
	)

	return cmd
}

var scriptHeaders = []string{"ID", "NAME", "ACTIVE", "VERSION", "WORKFLOWS", "CREATED"}

func scriptRow(s *ScriptResponse) []string {
	version, workflows := "", ""
	if s.Latest != nil {
		version = strconv.Itoa(s.Latest.Version)
		workflows = strings.Join(s.Latest.Workflows, "; ")
	}
	return []string{s.ID, s.Name, strconv.FormatBool(s.IsActive), version, workflows, s.CreatedAt}
}

func newScriptListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			scripts, err := client.ListScripts()
			if err != nil {
				return err
			}

			rows := make([][]string, len(scripts))
			for i := range scripts {
				rows[i] = scriptRow(&scripts[i])
			}

			out.Print(scriptHeaders, rows, scripts)
			return nil
		},
	}
}

func newScriptCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string

	cmd := &cobra.Command{
		Use:   "create FILE",
		Short: "Create a script from a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			src, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			script, err := client.CreateScript(CreateScriptRequest{
				Name:        name,
				Description: description,
				Source:      src,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Script created: %s", script.ID))
			out.Print(scriptHeaders, [][]string{scriptRow(script)}, script)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Script name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Script description")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newScriptShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var source bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show script details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			script, err := client.GetScript(args[0])
			if err != nil {
				return err
			}

			if source && !out.jsonMode {
				if script.Latest == nil {
					return fmt.Errorf("script %s has no versions", script.ID)
				}
				out.Text(script.Latest.Source)
				return nil
			}

			out.Print(scriptHeaders, [][]string{scriptRow(script)}, script)
			return nil
		},
	}

	cmd.Flags().BoolVar(&source, "source", false, "Print the source of the latest version")

	return cmd
}

func newScriptUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var description string
	var active string
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a script; --file publishes a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateScriptRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				req.IsActive = &b
			}
			if file != "" {
				src, err := readSource(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				req.Source = &src
			}

			script, err := client.UpdateScript(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Script updated")
			out.Print(scriptHeaders, [][]string{scriptRow(script)}, script)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New script name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&active, "active", "", "Set active status (true/false)")
	cmd.Flags().StringVar(&file, "file", "", "Source file for a new version")

	return cmd
}

func newScriptDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteScript(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Script deleted: %s", args[0]))
			return nil
		},
	}
}

func newScriptVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions SCRIPT_ID",
		Short: "List script versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			versions, err := client.ListVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"SCRIPT_ID", "VERSION", "WORKFLOWS", "CREATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{v.ScriptID, strconv.Itoa(v.Version), strings.Join(v.Workflows, "; "), v.CreatedAt}
			}

			out.Print(headers, rows, versions)
			return nil
		},
	}
}

func newScriptEvalCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflow string
	var inputs []string
	var version int
	var key string

	cmd := &cobra.Command{
		Use:   "eval SCRIPT_ID",
		Short: "Evaluate a stored script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			raw, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			req := CreateEvaluationRequest{
				Workflow:       workflow,
				Inputs:         raw,
				IdempotencyKey: key,
			}
			if cmd.Flags().Changed("version") {
				req.Version = &version
			}

			e, err := client.CreateEvaluation(args[0], req)
			if err != nil {
				return err
			}

			printEvaluation(out, e)
			if e.Status == domain.EvaluationStatusFailed.String() {
				return fmt.Errorf("%w: %s", ErrEvaluationFailed, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workflow, "workflow", "", "Workflow to invoke")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Workflow input as KEY=VALUE (repeatable)")
	cmd.Flags().IntVar(&version, "version", 0, "Script version (default: latest)")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key")

	return cmd
}
