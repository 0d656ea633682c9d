package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/user"
)

// RollbarLogger reports entries to rollbar and prints them as `LEVEL msg key=value ...` with std.
// In test mode only errors are printed.
type RollbarLogger struct {
	std   *log.Logger
	quiet bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, quiet: conf.TestMode}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// report forwards an entry to rollbar. The first user.User or authz.Caller of args is the entry's person.
func report(send func(...interface{}), msg string, args []interface{}) {
	var personSet bool
	entry := make([]interface{}, 0, len(args)+1)
	entry = append(entry, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if !personSet {
				rollbar.SetPerson(v.ID, v.Name, v.Email)
				personSet = true
			}
		case authz.Caller:
			if !personSet {
				rollbar.SetPerson(v.ID, v.Role, "")
				personSet = true
			}
		default:
			entry = append(entry, arg)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	send(entry...)
}

func format(level, msg string, args []interface{}) string {
	var b strings.Builder
	b.WriteString(level + " " + msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		case error:
			fmt.Fprintf(&b, " error=%q", v.Error())
		case user.User:
			fmt.Fprintf(&b, " user_id=%s", v.ID)
		case authz.Caller:
			fmt.Fprintf(&b, " caller_id=%s", v.ID)
		default:
			fmt.Fprintf(&b, " %v", v)
		}
	}
	return b.String()
}

func (l *RollbarLogger) log(level string, send func(...interface{}), msg string, args []interface{}) {
	report(send, msg, args)
	if l.quiet && level != "ERROR" {
		return
	}
	l.std.Println(format(level, msg, args))
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", rollbar.Debug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log("INFO", rollbar.Info, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log("WARN", rollbar.Warning, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log("ERROR", rollbar.Error, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	report(rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatalln(format("FATAL", msg, args))
}
