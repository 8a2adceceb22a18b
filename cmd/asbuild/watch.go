package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"asbuild/internal/buildpipeline"
	"asbuild/internal/config"
	"asbuild/internal/project"
	"asbuild/internal/source"
	"asbuild/internal/trace"
	"asbuild/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [path]",
	Short: "Rebuild the project whenever its files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  watchExecution,
}

func watchExecution(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	env, err := prepareBuild(cmd, dir)
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()

	res, err := env.run(ctx, nil, "asbuild watch")
	reportWatchBuild(cmd, err)
	state := res.State
	// --force относится только к первой сборке
	env.cfg.ForceRecompile = false

	for {
		wctx, cancelWatch := context.WithCancel(ctx)
		events, err := startWatching(wctx, env.project, quiet)
		if err != nil {
			cancelWatch()
			return err
		}
		if !env.quiet {
			fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", env.project.Manifest.Root)
		}
		restart := false
		for ev := range events {
			if ev.Kind == watch.ChangeStructure {
				// манифест или архив: начинаем с чистого листа
				if err := env.reopen(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				state = nil
				restart = true
				env.cfg.ForceRecompile = true
			} else {
				markChanged(state, ev.Paths)
			}
			if !env.quiet {
				fmt.Fprintf(out, "%d %s change(s)\n", len(ev.Paths), ev.Kind)
			}
			res, err = env.run(ctx, state, "asbuild watch")
			env.cfg.ForceRecompile = false
			reportWatchBuild(cmd, err)
			if res.State != nil {
				state = res.State
			}
			if restart {
				// каталоги могли измениться
				break
			}
		}
		cancelWatch()
		if !restart || ctx.Err() != nil {
			return nil
		}
	}
}

// startWatching wires a file watcher and a debouncer for p. The returned
// channel closes when ctx is done or the watcher is restarted.
func startWatching(ctx context.Context, p *project.Project, quiet time.Duration) (<-chan watch.ChangeEvent, error) {
	dirs := p.WatchDirs()
	for _, a := range p.Archives {
		dirs = append(dirs, filepath.Dir(a.Path))
	}
	fw, err := watch.NewFileWatcher(dirs, watch.ProjectClassifier(p), trace.FromContext(ctx))
	if err != nil {
		return nil, err
	}
	if err := fw.Start(ctx); err != nil {
		return nil, err
	}
	d := watch.NewDebouncer(fw.Events(), quiet, 10*quiet)
	d.Start(ctx)
	return d.Output(), nil
}

// markChanged flags the kept units behind the changed files as updated, so
// an edit that preserved the mtime is still seen by the validator.
func markChanged(state *buildpipeline.State, paths []string) {
	if state == nil {
		return
	}
	changed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			changed[abs] = struct{}{}
		}
	}
	for _, u := range state.Units {
		fc, ok := u.Source.Content.(source.FileContent)
		if !ok {
			continue
		}
		if abs, err := filepath.Abs(fc.Path); err == nil {
			if _, hit := changed[abs]; hit {
				u.Source.SetUpdated()
			}
		}
	}
}

// reopen re-reads the manifest and the configuration.
func (e *buildEnv) reopen() error {
	p, err := project.Open(e.project.Manifest.Path)
	if err != nil {
		return err
	}
	e.project = p
	return e.loadConfig()
}

func reportWatchBuild(cmd *cobra.Command, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
}

func init() {
	config.RegisterFlags(watchCmd.Flags())
	watchCmd.Flags().Duration("debounce", 200*time.Millisecond, "quiet period before a rebuild")
}
