package value

import (
	"fmt"
	"strings"
)

// Exception — исключение-как-значение.
//
// Все исключения реализуют error, поэтому хост может использовать errors.As.
type Exception interface {
	Object
	error
	Message() string
}

// NodeExceptionKind — причина отказа узла.
type NodeExceptionKind string

const (
	MissingInputs    NodeExceptionKind = "Missing inputs"
	MissingOutputs   NodeExceptionKind = "Missing outputs"
	WrongInputTypes  NodeExceptionKind = "Wrong input types"
	WrongOutputTypes NodeExceptionKind = "Wrong output types"
	TooManyOutputs   NodeExceptionKind = "Too many outputs"
	FailedOutput     NodeExceptionKind = "Failed output"
	InvalidEdge      NodeExceptionKind = "Invalid edge"
)

// Code возвращает машинное имя причины (MISSING_INPUTS и т.д.).
func (k NodeExceptionKind) Code() string {
	return strings.ToUpper(strings.ReplaceAll(string(k), " ", "_"))
}

// ErrorValue — исключение, упакованное в значение.
// Позволяет передавать ошибку через слоты значений.
type ErrorValue struct {
	Err Exception
}

// Errorf создаёт ErrorValue с GenericException.
func Errorf(format string, args ...any) ErrorValue {
	return ErrorValue{Err: NewGenericException(fmt.Sprintf(format, args...))}
}

// Type реализует Value.
func (e ErrorValue) Type() TypeInfo { return ExceptionType() }

// String возвращает сообщение исключения.
func (e ErrorValue) String() string {
	if e.Err == nil {
		return "error"
	}
	return "error: " + e.Err.Message()
}

// GenericException — исключение с произвольным сообщением.
type GenericException struct {
	Msg string
}

// NewGenericException создаёт GenericException.
func NewGenericException(msg string) *GenericException {
	return &GenericException{Msg: msg}
}

func (e *GenericException) Name() string    { return "GenericException" }
func (e *GenericException) Type() TypeInfo  { return ExceptionType() }
func (e *GenericException) Message() string { return e.Msg }
func (e *GenericException) Error() string   { return e.Msg }

// TypeCheck — непрошедшая проверка типа.
type TypeCheck struct {
	Port     string
	Value    Value
	Expected TypeInfo
}

// String описывает проверку.
func (c TypeCheck) String() string {
	got := "nothing"
	if c.Value != nil {
		got = c.Value.Type().String()
	}
	if c.Port != "" {
		return fmt.Sprintf("%s: expected %s, got %s", c.Port, c.Expected, got)
	}
	return fmt.Sprintf("expected %s, got %s", c.Expected, got)
}

// NodeException — отказ узла на одном из этапов валидации.
type NodeException struct {
	Node    string
	Kind    NodeExceptionKind
	Msg     string
	Missing []string    // для MissingInputs
	Checks  []TypeCheck // для WrongInputTypes и WrongOutputTypes
	Cause   Exception   // для FailedOutput
}

func (e *NodeException) Name() string   { return "NodeException" }
func (e *NodeException) Type() TypeInfo { return ExceptionType() }

// Message возвращает причину и подробности.
func (e *NodeException) Message() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Node != "" {
		b.WriteString(" in node '")
		b.WriteString(e.Node)
		b.WriteString("'")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *NodeException) Error() string { return e.Message() }

// Unwrap возвращает исходное исключение для FailedOutput.
func (e *NodeException) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// MissingResult — в наборе нет ячейки с таким именем.
type MissingResult struct {
	Missing string
	Msg     string
}

func (e *MissingResult) Name() string    { return "MissingResult" }
func (e *MissingResult) Type() TypeInfo  { return ExceptionType() }
func (e *MissingResult) Message() string { return e.Msg }
func (e *MissingResult) Error() string   { return e.Msg }

// FailedDependency — отказали вышестоящие объекты.
type FailedDependency struct {
	Dependencies []Object
}

func (e *FailedDependency) Name() string   { return "FailedDependency" }
func (e *FailedDependency) Type() TypeInfo { return ExceptionType() }

// Message перечисляет отказавшие зависимости.
func (e *FailedDependency) Message() string {
	names := make([]string, len(e.Dependencies))
	for i, d := range e.Dependencies {
		names[i] = d.Name()
	}
	return "Failed dependencies: " + strings.Join(names, ", ")
}

func (e *FailedDependency) Error() string { return e.Message() }

// FailedTypeChecks — значения не прошли проверку типов.
type FailedTypeChecks struct {
	Checks []TypeCheck
}

func (e *FailedTypeChecks) Name() string   { return "FailedTypeChecks" }
func (e *FailedTypeChecks) Type() TypeInfo { return ExceptionType() }

// Message перечисляет непрошедшие проверки.
func (e *FailedTypeChecks) Message() string {
	parts := make([]string, len(e.Checks))
	for i, c := range e.Checks {
		parts[i] = c.String()
	}
	return "Failed type checks: " + strings.Join(parts, "; ")
}

func (e *FailedTypeChecks) Error() string { return e.Message() }
