package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Kira/internal/domain"
)

// cronParser — парсер пятипольных cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NextDue вычисляет следующее время вычисления после from.
// Cron вычисляется в часовом поясе schedule; результат в UTC.
func NextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc := time.UTC
	if sched.Timezone != "" {
		l, err := time.LoadLocation(sched.Timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("load timezone %q: %w", sched.Timezone, err)
		}
		loc = l
	}

	switch {
	case sched.IsCron():
		rule, err := cronParser.Parse(sched.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
		}
		return rule.Next(from.In(loc)).UTC(), nil
	case sched.IsInterval():
		return from.Add(time.Duration(sched.IntervalSec) * time.Second).UTC(), nil
	}
	return time.Time{}, domain.ErrInvalidSchedule
}

// Prepare проверяет новое расписание и назначает первое время вычисления.
// Используется при создании schedule через API.
func Prepare(sched *domain.Schedule, now time.Time) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	if sched.Timezone == "" {
		sched.Timezone = "UTC"
	}
	next, err := NextDue(sched, now)
	if err != nil {
		return err
	}
	sched.NextDueAt = &next
	return nil
}
