// Package api содержит HTTP API сервер kira-api.
//
// Структура:
//   - handler.go            — Handler и интерфейсы хранилищ
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (recovery, logging, metrics)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - script_handler.go     — обработчики для /scripts и версий
//   - evaluation_handler.go — /evaluate и /evaluations
//   - schedule_handler.go   — обработчики для /schedules
//
// Отказы узлов и ошибки компиляции не являются ошибками запроса:
// они возвращаются в теле evaluation со статусом FAILED.
package api
