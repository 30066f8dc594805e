package broker

import (
	"fmt"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/redalert/internal/logger"
)

// pahoLogger forwards one Paho log channel to zap at a fixed level.
type pahoLogger struct {
	log   *zap.SugaredLogger
	level zapcore.Level
}

// Println implements pahomqtt.Logger.
func (p pahoLogger) Println(v ...any) {
	p.write(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf implements pahomqtt.Logger.
func (p pahoLogger) Printf(format string, v ...any) {
	p.write(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// write logs the message at the channel level.
func (p pahoLogger) write(message string) {
	switch p.level {
	case zapcore.DebugLevel:
		p.log.Debug(message)
	case zapcore.InfoLevel:
		p.log.Info(message)
	case zapcore.WarnLevel:
		p.log.Warn(message)
	default:
		p.log.Error(message)
	}
}

// InstallClientLogger routes the Paho client's own logs into the process
// logger, dropping everything below level.
func InstallClientLogger(level zapcore.Level) {
	base := logger.Logger().Desugar().WithOptions(logger.WithLevel(level)).Sugar().Named("paho")

	pahomqtt.DEBUG = pahoLogger{log: base, level: zapcore.DebugLevel}
	pahomqtt.WARN = pahoLogger{log: base, level: zapcore.WarnLevel}
	pahomqtt.ERROR = pahoLogger{log: base, level: zapcore.ErrorLevel}
	pahomqtt.CRITICAL = pahoLogger{log: base, level: zapcore.ErrorLevel}
}
