package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/shaiso/Kira/internal/builder"
	"github.com/shaiso/Kira/internal/builtins"
	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/engine"
	"github.com/shaiso/Kira/internal/evaluator"
	"github.com/shaiso/Kira/internal/lexer"
	"github.com/shaiso/Kira/internal/parser"
)

const (
	historyFile = ".kira_history"
	promptMain  = "kira> "
	promptCont  = "...   "
)

// Session — состояние REPL: имена, объявленные в предыдущих вводах,
// остаются видимыми в следующих.
type Session struct {
	root *engine.Context
}

// NewSession создаёт сессию со стандартными функциями.
func NewSession() *Session {
	return &Session{root: builtins.Default().Install(engine.NewContext(nil))}
}

// Eval компилирует и вычисляет ввод в корневом контексте сессии.
func (s *Session) Eval(src string) ([]domain.OutputView, error) {
	prog, err := builder.Compile(src, builder.WithScope(s.root))
	if err != nil {
		return nil, err
	}

	var views []domain.OutputView
	for _, d := range prog.Run(s.root) {
		if d == nil {
			continue
		}
		views = append(views, evaluator.Render(d))
	}
	return views, nil
}

// Names возвращает имена, объявленные в сессии.
func (s *Session) Names() []string {
	return s.root.Names()
}

// incomplete сообщает, что ввод оборван и нужно продолжение:
// синтаксическая ошибка пришлась на конец текста.
func incomplete(err error) bool {
	var se *lexer.SyntaxError
	if !errors.As(err, &se) {
		return false
	}
	return se.Token.Type == lexer.EOF || se.Message == "unterminated string"
}

// NewReplCmd создаёт интерактивную команду.
func NewReplCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(outputFn())
		},
	}
}

func runRepl(out *Output) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := NewSession()
	for {
		code, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(out.errW)
			return nil
		}

		switch strings.TrimSpace(code) {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":names":
			out.Text(strings.Join(session.Names(), " "))
			continue
		}

		views, err := session.Eval(code)
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if err != nil {
			out.Error(err.Error())
			continue
		}
		out.Outputs(views)
	}
}

// readInput читает строки, пока ввод не станет синтаксически полным.
// false означает конец ввода (Ctrl-D) или прерывание (Ctrl-C).
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.ParseString(src); err == nil || !incomplete(err) {
			return src, true
		}
	}
}
