package cmd

import (
	"context"
	"sync"

	"github.com/khanhnv2901/linkguard/internal/application"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type appContextKey struct{}

// AppContext is the per-invocation state shared by all commands.
type AppContext struct {
	Logger *zap.Logger
	Config *CLIConfig

	once     sync.Once
	services *application.Container
	err      error
}

var globalAppContext *AppContext

// Services wires the scan pipeline on first use so commands that never scan
// do not fail on bad endpoint configuration.
func (a *AppContext) Services() (*application.Container, error) {
	a.once.Do(func() {
		a.services, a.err = application.NewContainer(a.Config.containerConfig(), a.Logger)
	})
	return a.services, a.err
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	if globalAppContext != nil {
		return globalAppContext
	}
	return &AppContext{Logger: zap.NewNop(), Config: cliConfig}
}
