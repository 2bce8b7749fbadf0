package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Kira/internal/ast"
	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/evaluator"
	"github.com/shaiso/Kira/internal/lexer"
	"github.com/shaiso/Kira/internal/node"
	"github.com/shaiso/Kira/internal/parser"
)

// ErrEvaluationFailed — вычисление завершилось со статусом FAILED.
var ErrEvaluationFailed = errors.New("evaluation failed")

// NewRunCmd создаёт команду локального вычисления файла.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var workflow string
	var inputs []string
	var sequential bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Evaluate a program locally (FILE or - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			src, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			raw, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			strategy := node.Topological
			if sequential {
				strategy = node.Sequential
			}

			res := evaluator.New(evaluator.WithStrategy(strategy)).Run(cmd.Context(), evaluator.Request{
				Source:   src,
				Workflow: workflow,
				Inputs:   raw,
			})

			if out.jsonMode {
				out.JSON(OutcomeResponse{
					Status:     res.Status.String(),
					Outputs:    res.Outputs,
					Error:      res.Error,
					DurationMs: res.Duration.Milliseconds(),
				})
			} else {
				out.Outputs(res.Outputs)
			}

			if res.Status != domain.EvaluationStatusSucceeded {
				return fmt.Errorf("%w: %s", ErrEvaluationFailed, res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workflow, "workflow", "", "Workflow to invoke")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Workflow input as KEY=VALUE (repeatable, VALUE is JSON or a plain string)")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Evaluate workflow bodies in declaration order")

	return cmd
}

// NewTokensCmd создаёт команду вывода токенов.
func NewTokensCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens FILE",
		Short: "Print the tokens of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			src, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			tokens, err := lexer.Tokenize(src)
			if err != nil {
				return err
			}

			type tokenView struct {
				Type   string `json:"type"`
				Value  string `json:"value,omitempty"`
				Line   int    `json:"line"`
				Column int    `json:"column"`
			}

			views := make([]tokenView, len(tokens))
			rows := make([][]string, len(tokens))
			for i, tok := range tokens {
				views[i] = tokenView{Type: tok.Type.String(), Value: tok.Value, Line: tok.Line, Column: tok.Column}
				rows[i] = []string{fmt.Sprintf("%d:%d", tok.Line, tok.Column), tok.Type.String(), tok.Value}
			}

			out.Print([]string{"POS", "TYPE", "VALUE"}, rows, views)
			return nil
		},
	}
}

// NewAstCmd создаёт команду вывода синтаксического дерева.
func NewAstCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "ast FILE",
		Short: "Print the syntax tree of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			src, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			prog, err := parser.ParseString(src)
			if err != nil {
				return err
			}

			if out.jsonMode {
				statements := make([]string, len(prog.Statements))
				for i, s := range prog.Statements {
					statements[i] = ast.Format(s)
				}
				out.JSON(map[string]any{"statements": statements})
				return nil
			}
			fmt.Fprint(out.w, ast.Sprint(prog))
			return nil
		},
	}
}

// readSource читает файл; "-" означает stdin.
func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

// parseInputs разбирает KEY=VALUE. VALUE читается как JSON,
// иначе остаётся строкой.
func parseInputs(kvs []string) (map[string]any, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	inputs := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		inputs[key] = v
	}
	return inputs, nil
}

func formatInterval(sec int) string {
	if sec <= 0 {
		return ""
	}
	return strconv.Itoa(sec) + "s"
}
