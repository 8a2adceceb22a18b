// Package config layers the build configuration: defaults, the [build]
// table of asbuild.toml, ASBUILD_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"asbuild/internal/session"
	"asbuild/internal/source"
)

// EnvPrefix is the prefix of configuration environment variables:
// ASBUILD_MAX_ERRORS sets max-errors.
const EnvPrefix = "ASBUILD_"

// Build holds every build setting. Keys match the flag names.
type Build struct {
	Strict             bool     `koanf:"strict"`
	Warnings           bool     `koanf:"warnings"`
	Factor             int      `koanf:"factor"`
	DisableIncremental bool     `koanf:"disable-incremental"`
	MaxErrors          int      `koanf:"max-errors"`
	Strategy           string   `koanf:"strategy"`
	Locales            []string `koanf:"locales"`
	Force              bool     `koanf:"force"`
	SignatureExcluded  []string `koanf:"signature-excluded"`
	NoCache            bool     `koanf:"no-cache"`
	CacheDir           string   `koanf:"cache-dir"`
}

func defaults() map[string]interface{} {
	d := session.DefaultConfig()
	return map[string]interface{}{
		"strict":              d.Strict,
		"warnings":            d.Warnings,
		"factor":              d.Factor,
		"disable-incremental": d.DisableIncremental,
		"max-errors":          d.MaxErrors,
		"strategy":            d.Strategy.String(),
		"locales":             d.Locales,
		"force":               false,
		"signature-excluded":  []string{".mxml"},
		"no-cache":            false,
		"cache-dir":           "",
	}
}

// RegisterFlags declares one flag per setting on fs. Only flags the user
// set override the lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	d := session.DefaultConfig()
	fs.Bool("strict", d.Strict, "resolve imports and expression references before Analyze4 (unresolved expressions stay warnings)")
	fs.Bool("warnings", d.Warnings, "report warnings")
	fs.Int("factor", d.Factor, "batch2 budget factor")
	fs.Bool("disable-incremental", d.DisableIncremental, "treat every content change as a signature change")
	fs.Int("max-errors", d.MaxErrors, "abort the build after this many errors")
	fs.String("strategy", d.Strategy.String(), "scheduling strategy (auto|batch1|batch2)")
	fs.StringSlice("locales", d.Locales, "locales resource bundles are resolved for")
	fs.BoolP("force", "f", false, "recompile everything")
	fs.StringSlice("signature-excluded", []string{".mxml"}, "extensions or mime types whose signature is never trusted")
	fs.Bool("no-cache", false, "neither read nor write the snapshot store")
	fs.String("cache-dir", "", "snapshot store directory (default $XDG_CACHE_HOME/asbuild)")
}

// Load merges the layers. manifest may be empty; flags may be nil.
func Load(manifest string, flags *pflag.FlagSet) (Build, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return Build{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. [build] table of the manifest
	if manifest != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(manifest), toml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Build{}, fmt.Errorf("%s: %w", manifest, err)
			}
		} else if err := k.Merge(fk.Cut("build")); err != nil {
			return Build{}, fmt.Errorf("%s: %w", manifest, err)
		}
	}

	// 3. Environment: ASBUILD_DISABLE_INCREMENTAL -> disable-incremental
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return Build{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Build{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var b Build
	if err := k.Unmarshal("", &b); err != nil {
		return Build{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	b.Locales = splitList(b.Locales)
	b.SignatureExcluded = splitList(b.SignatureExcluded)
	return b, nil
}

// Session converts the settings into a session configuration.
func (b Build) Session() (session.Config, error) {
	cfg := session.DefaultConfig()
	strategy, err := session.ParseStrategy(b.Strategy)
	if err != nil {
		return cfg, err
	}
	if b.Factor <= 0 {
		return cfg, fmt.Errorf("factor must be positive, got %d", b.Factor)
	}
	cfg.Strict = b.Strict
	cfg.Warnings = b.Warnings
	cfg.Factor = b.Factor
	cfg.DisableIncremental = b.DisableIncremental
	cfg.MaxErrors = b.MaxErrors
	cfg.Strategy = strategy
	cfg.ForceRecompile = b.Force
	if len(b.Locales) > 0 {
		cfg.Locales = b.Locales
	}
	cfg.SignatureExcludedMimes = cfg.SignatureExcludedMimes[:0:0]
	for _, m := range b.SignatureExcluded {
		mime, err := parseMime(m)
		if err != nil {
			return cfg, err
		}
		cfg.SignatureExcludedMimes = append(cfg.SignatureExcludedMimes, mime)
	}
	return cfg, nil
}

// parseMime accepts a mime type or a file extension (".mxml").
func parseMime(s string) (source.Mime, error) {
	if strings.HasPrefix(s, ".") {
		if m, ok := source.MimeForPath("x" + s); ok {
			return m, nil
		}
		return "", fmt.Errorf("unknown source extension %q", s)
	}
	switch m := source.Mime(s); m {
	case source.MimeScript, source.MimeMarkup, source.MimeArchived, source.MimeProperties:
		return m, nil
	}
	return "", fmt.Errorf("unknown mime type %q", s)
}

// splitList accepts both lists and comma separated strings (env values).
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type mapProvider map[string]interface{}

func (p mapProvider) Read() (map[string]interface{}, error) {
	return p, nil
}

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
