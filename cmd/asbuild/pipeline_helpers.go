package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"asbuild/internal/buildpipeline"
	"asbuild/internal/config"
	"asbuild/internal/diag"
	"asbuild/internal/incr"
	"asbuild/internal/project"
	"asbuild/internal/session"
	"asbuild/internal/trace"
)

const noManifestMessage = "no asbuild.toml found in this directory or any parent; create one with a [project] table"

// maxShownDiagnostics bounds what is printed; the session still counts all.
const maxShownDiagnostics = 200

// buildEnv is everything a build command resolves before the first build.
type buildEnv struct {
	cmd     *cobra.Command
	project *project.Project
	cfg     session.Config
	store   *incr.Store
	color   bool
	quiet   bool
	timings bool
	ui      uiMode
}

func prepareBuild(cmd *cobra.Command, dir string) (*buildEnv, error) {
	p, ok, err := project.Load(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(noManifestMessage)
	}
	env := &buildEnv{cmd: cmd, project: p}
	if err := env.loadConfig(); err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	env.color = colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
	if env.quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if env.timings, err = flags.GetBool("timings"); err != nil {
		return nil, err
	}
	uiValue := "off"
	if f := cmd.Flags().Lookup("ui"); f != nil {
		uiValue = f.Value.String()
	}
	if env.ui, err = readUIMode(uiValue); err != nil {
		return nil, err
	}
	return env, nil
}

// loadConfig (re)reads the layered configuration and opens the store.
func (e *buildEnv) loadConfig() error {
	b, err := config.Load(e.project.Manifest.Path, e.cmd.Flags())
	if err != nil {
		return err
	}
	if e.cfg, err = b.Session(); err != nil {
		return fmt.Errorf("%s: %w", e.project.Manifest.Path, err)
	}
	e.store = nil
	if b.NoCache {
		return nil
	}
	if b.CacheDir != "" {
		e.store, err = incr.NewStore(b.CacheDir)
	} else {
		e.store, err = incr.OpenStore("asbuild")
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	return nil
}

// run performs one build and prints its diagnostics.
func (e *buildEnv) run(ctx context.Context, prev *buildpipeline.State, title string) (buildpipeline.Result, error) {
	bag := diag.NewBag(maxShownDiagnostics)
	req := &buildpipeline.Request{
		Project:  e.project,
		Config:   e.cfg,
		Store:    e.store,
		Previous: prev,
		Reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		Tracer:   trace.FromContext(ctx),
	}
	var (
		res buildpipeline.Result
		err error
	)
	activeHeartbeat.SetStatus("building " + e.project.Manifest.Path)
	if shouldUseTUI(e.ui) {
		res, err = runBuildWithUI(ctx, title, e.project.EntryNames(), req)
	} else {
		res, err = buildpipeline.Build(ctx, req)
	}
	activeHeartbeat.SetStatus("idle after " + res.Status.String())
	if err != nil {
		traceFailed = true
	}
	out := e.cmd.OutOrStdout()
	printDiagnostics(out, bag, e.color, e.quiet)
	if !e.quiet {
		printSummary(out, res)
	}
	if e.timings {
		printStageTimings(out, res)
	}
	return res, err
}
