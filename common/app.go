package common

import (
	"context"
	"fmt"
	"sync"

	"github.com/sonicx222/arbitrage-new-sub015/common/console"
	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
)

// App represents an application that will run as a deployable component.
// It's an entrypoint at main.go. ctx is cancelled on process shutdown
// (SIGINT/SIGTERM); each App is responsible for honoring it within its own
// shutdown budget.
type App interface {
	Run(ctx context.Context, launcher *Launcher) error
}

// LauncherOption defines a function option for Launcher.
type LauncherOption func(l *Launcher)

// WithLogger adds a mlog.Logger component to launcher.
func WithLogger(logger mlog.Logger) LauncherOption {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// WithContext sets the shutdown context fanned into every registered App.
func WithContext(ctx context.Context) LauncherOption {
	return func(l *Launcher) {
		l.ctx = ctx
	}
}

// RunApp registers app under name on the launcher; Launcher.Run starts it.
func RunApp(name string, app App) LauncherOption {
	return func(l *Launcher) {
		l.Add(name, app)
	}
}

// Launcher manages apps.
type Launcher struct {
	Logger  mlog.Logger
	apps    map[string]App
	wg      *sync.WaitGroup
	ctx     context.Context
	Verbose bool
}

// Add registers an application under appName; Run starts it in its own goroutine.
func (l *Launcher) Add(appName string, a App) *Launcher {
	l.apps[appName] = a
	return l
}

// Run every application registered before with Run method.
func (l *Launcher) Run() {
	count := len(l.apps)
	l.wg.Add(count)

	fmt.Println(console.Title("Launcher Run"))

	l.Logger.Infof("Starting %d app(s)\n", count)

	for name, app := range l.apps {
		go func(name string, app App) {
			l.Logger.Info("--")
			l.Logger.Infof("Launcher: App \u001b[33m(%s)\u001b[0m starting\n", name)

			if err := app.Run(l.ctx, l); err != nil {
				l.Logger.Infof("Launcher: App (%s) error:", name)
				l.Logger.Infof("\u001b[31m%s\u001b[0m", err)
			}

			l.wg.Done()

			l.Logger.Infof("Launcher: App (%s) finished\n", name)
		}(name, app)
	}

	l.wg.Wait()

	l.Logger.Info("Launcher: Terminated")
}

// NewLauncher create an instance of Launch.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{
		apps:    make(map[string]App),
		wg:      new(sync.WaitGroup),
		ctx:     context.Background(),
		Verbose: true,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}
