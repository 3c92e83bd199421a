package core

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"

	"github.com/linen-net/linen/state"
)

// Start brings up one router and blocks running its main loop until the
// context is cancelled by a signal or a fatal error. Every piece of mutable
// router state is owned by the main loop goroutine; all other goroutines
// feed it closures through the dispatch channel.
func Start(topo state.TopologyCfg, local state.LocalCfg, logLevel slog.Level, sink RouteSink) error {
	ctx, cancel := context.WithCancelCause(context.Background())

	dispatch := make(chan func(s *state.State) error, 128)

	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: string(local.Id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if local.LogPath != "" {
		err := os.MkdirAll(path.Dir(local.LogPath), 0700)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(local.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))

	s := state.State{
		Modules: make(map[string]state.Module),
		Db:      state.NewLsdb(),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			TopologyCfg:     topo,
			LocalCfg:        local,
			Log:             logger,
		},
	}

	s.Log.Info("init modules")
	if err := initModules(&s, sink); err != nil {
		cancel(err)
		cleanup(&s)
		return err
	}
	s.Log.Info("init modules complete")

	s.Log.Info("router is up. To gracefully exit, send SIGINT or Ctrl+C.")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()

	return MainLoop(&s, dispatch)
}

func initModules(s *state.State, sink RouteSink) error {
	sock := &Sock{}
	modules := []state.Module{
		sock,
		&Router{Sink: sink},
		&Flood{W: sock},
		&NeighborMgr{W: sock},
	}

	for _, module := range modules {
		if err := Register(s, module); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	for {
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			if elapsed > time.Millisecond*50 {
				s.Log.Warn("dispatch took a long time!", "elapsed", elapsed)
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	cleanup(s)
	return nil
}

func cleanup(s *state.State) {
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during cleanup", "module", moduleName, "error", err)
		}
	}
	s.Cancel(context.Canceled)
}
