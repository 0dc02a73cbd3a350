package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/user"
)

// RollbarLogger reports to Rollbar and mirrors everything to a zap console logger.
type RollbarLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(sugar *zap.SugaredLogger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{sugar: sugar}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close flushes pending reports.
func (l *RollbarLogger) Close() {
	rollbar.Close()
	_ = l.sugar.Sync()
}

// expected fmt: msg | error, map[string]interface{}, user.Principal
func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var principalSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set the caller
		if p, ok := arg.(user.Principal); ok {
			if !principalSet && p.IsAuthenticated() { // only set one Principal
				rollbar.SetPerson(p.UserID, p.Role.String(), "")
				principalSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !principalSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.sugar.Debugw(msg, keysAndValues(args)...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.sugar.Infow(msg, keysAndValues(args)...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.sugar.Warnw(msg, keysAndValues(args)...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.sugar.Errorw(msg, keysAndValues(args)...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.sugar.Fatalw(msg, keysAndValues(args)...)
}
