package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	applogger "TurtleDesk/pkg/logger"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Logger routes gorm logs through the application logger.
type Logger struct {
	log           *applogger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewLogger logs errors always, slow queries as warnings and every query at Info level.
func NewLogger(l *applogger.Logger, level gormlogger.LogLevel, slow time.Duration) *Logger {
	return &Logger{log: l, level: level, slowThreshold: slow}
}

func (g *Logger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *Logger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *Logger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *Logger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *Logger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error("sql error",
			applogger.Error(err),
			applogger.String("sql", sql),
			applogger.Int64("rows", rows),
			applogger.Duration("elapsed_ms", elapsed))
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn("slow sql",
			applogger.String("sql", sql),
			applogger.Int64("rows", rows),
			applogger.Duration("elapsed_ms", elapsed))
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug("sql",
			applogger.String("sql", sql),
			applogger.Int64("rows", rows),
			applogger.Duration("elapsed_ms", elapsed))
	}
}
