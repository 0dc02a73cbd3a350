package logsvc

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/user"
)

// NewZap builds the console logger: JSON in production, human friendly otherwise.
func NewZap(conf *core.Config) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if conf.Env == "PROD" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	if conf.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return zl.Sugar().With("app", conf.AppName, "build", conf.Build), nil
}

// keysAndValues flattens core.Logger arguments into zap key-value pairs.
func keysAndValues(args []interface{}) []interface{} {
	kvs := make([]interface{}, 0, 2*len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			kvs = append(kvs, "error", fmt.Sprintf("%+v", v))
		case map[string]interface{}:
			for k, val := range v {
				kvs = append(kvs, k, val)
			}
		case user.Principal:
			kvs = append(kvs, "principal_id", v.UserID, "principal_role", v.Role.String())
		default:
			kvs = append(kvs, fmt.Sprintf("arg%d", i), v)
		}
	}
	return kvs
}
