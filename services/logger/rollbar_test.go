package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lingo/core"
	"github.com/trezcool/lingo/core/authz"
	"github.com/trezcool/lingo/core/user"
)

func Test_format(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{name: "no args", want: "INFO started"},
		{name: "sorted fields", args: []interface{}{map[string]interface{}{"b": 2, "a": "x"}}, want: "INFO started a=x b=2"},
		{name: "error", args: []interface{}{errors.New("boom")}, want: `INFO started error="boom"`},
		{name: "user", args: []interface{}{user.User{ID: "auth0|1"}}, want: "INFO started user_id=auth0|1"},
		{name: "caller", args: []interface{}{authz.Caller{ID: "auth0|2"}}, want: "INFO started caller_id=auth0|2"},
		{name: "other", args: []interface{}{42}, want: "INFO started 42"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, format("INFO", "started", tt.args))
		})
	}
}

func TestRollbarLogger_quiet(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewRollbarLogger(log.New(out, "", 0), core.NewTestConfig())

	logger.Info("hidden")
	logger.Warn("hidden")
	assert.Empty(t, out.String())

	logger.Error("failed", map[string]interface{}{"attempt_id": "att-1"})
	assert.Equal(t, "ERROR failed attempt_id=att-1\n", out.String())
}
