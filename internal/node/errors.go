package node

import "errors"

// Ошибки конструирования узлов.
var (
	// ErrBadSignature — функция не подходит для Function.
	ErrBadSignature = errors.New("function has unsupported signature")

	// ErrArityMismatch — число параметров функции не совпадает с числом входов.
	ErrArityMismatch = errors.New("function arity does not match declared inputs")
)

// Сообщения отказов, которые видны пользователю.
const (
	msgCycle        = "The workflow contains a cycle and cannot be executed."
	msgNotConnected = "Output %s is not connected."
)
