// Package cli реализует инструмент командной строки Kira.
//
// # Локальные команды
//
// Работают без сервера, вычисляя программы в процессе:
//   - run FILE      — вычислить программу или workflow (--workflow, --input k=v)
//   - tokens FILE   — показать токены
//   - ast FILE      — показать синтаксическое дерево
//   - repl          — интерактивная сессия (peterh/liner), имена сохраняются между вводами
//
// # Удалённые команды
//
// Client — HTTP-клиент для Kira API. Разбирает конверт {"data": ...}
// и превращает {"error": ...} в *APIError. Не импортирует internal/api.
//
//	client := cli.NewClient("http://localhost:8080")
//	scripts, err := client.ListScripts()
//
// Команды организованы по ресурсам:
//   - script: list, create, show, update, delete, versions, eval
//   - evaluation: list, show
//   - schedule: list, create, show, delete, enable, disable
//
// Каждая группа создаётся через фабричную функцию (NewScriptCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
//
// # Output
//
// Таблицы go-pretty по умолчанию, JSON с флагом --json.
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr:
//
//	kira script list --json | jq .
package cli
