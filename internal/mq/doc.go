// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — объявление exchanges, queues, bindings
//   - message.go    — конверт сообщения и payload
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - evaluation.pending   — evaluation создано и ждёт воркера
//   - evaluation.completed — evaluation завершено
package mq
