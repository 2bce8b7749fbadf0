// Package scheduler создаёт evaluations по расписаниям.
//
// Scheduler периодически находит schedules с истёкшим next_due_at
// и создаёт evaluation последней версии script.
//
// Структура:
//   - scheduler.go — Tick и обработка одного schedule
//   - cron.go      — cron-выражения и вычисление следующего времени
//
// Повторный тик для того же срока не создаёт дубликат: ключ
// идемпотентности "{schedule_id}_{next_due_unix}" уникален в БД.
//
// Scheduler не выбирает лидера сам: kira-scheduler берёт
// pg_try_advisory_lock и вызывает Tick только удерживая его.
package scheduler
