package exec

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/scripthost/util/logging"
)

func Module(config Config) fx.Option {
	return fx.Module(
		"exec",
		// provide exec config
		fx.Supply(config),
		// rename logger for module
		logging.DecorateLogger("exec"),
		// provide invocation
		fx.Provide(NewLifecycleInvocation),
		// invoke invocation
		fx.Invoke(func(*Invocation) {}),
	)
}
