// Kira CLI — локальное вычисление программ и управление
// scripts, evaluations и schedules через HTTP API.
//
// Использование:
//
//	kira [--api-url URL] [--json] <command> [subcommand] [flags]
//
// Локальные команды:
//
//	run       Вычислить программу
//	tokens    Показать токены
//	ast       Показать синтаксическое дерево
//	repl      Интерактивная сессия
//
// Команды API:
//
//	script      Управление scripts
//	evaluation  Управление evaluations
//	schedule    Управление schedules
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Kira/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "kira",
		Short:         "Kira CLI — dataflow language and evaluation service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(outputFn),
		cli.NewTokensCmd(outputFn),
		cli.NewAstCmd(outputFn),
		cli.NewReplCmd(outputFn),
		cli.NewScriptCmd(clientFn, outputFn),
		cli.NewEvaluationCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
