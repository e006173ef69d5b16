package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/golang-dep/descbuild/internal/descio"
	"github.com/golang-dep/descbuild/internal/model"
	"github.com/golang-dep/descbuild/internal/obslog"
)

type buildCommand struct {
	repo      string
	verbose   bool
	process   bool
	cacheFile string
	dumpCache bool
}

func (c *buildCommand) Name() string      { return "build" }
func (c *buildCommand) Args() string      { return "<descriptor-path>" }
func (c *buildCommand) ShortHelp() string { return "build the effective model for a descriptor" }

func (c *buildCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.repo, "repo", "", "repository root for parent/import resolution (defaults to the current working directory)")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose logging")
	fs.BoolVar(&c.process, "process-plugins", false, "run lifecycle-binding and plugin/report expansion")
	fs.StringVar(&c.cacheFile, "cache-file", "", "persist the model cache to this bbolt file across invocations (defaults to an in-memory cache)")
	fs.BoolVar(&c.dumpCache, "dump-cache", false, "after building, print every cache entry sharing the built descriptor's groupId:artifactId prefix (in-memory cache only; prints no entries with -cache-file)")
}

// openCache returns the in-memory cache by default, or a bbolt-backed
// PersistentCache when -cache-file is set so repeated builds reuse raw
// and import-resolution work across process invocations.
func (c *buildCommand) openCache() (model.Cache, func() error, error) {
	if c.cacheFile == "" {
		return model.NewCache(), func() error { return nil }, nil
	}
	pc, err := model.OpenPersistentCache(c.cacheFile)
	if err != nil {
		return nil, nil, err
	}
	return pc, pc.Close, nil
}

func (c *buildCommand) Run(cfg *Config, fs *flag.FlagSet, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one descriptor path, got %d", len(args))
	}
	path := args[0]
	repoRoot := c.repo
	if repoRoot == "" {
		repoRoot = cfg.WorkingDir
	}

	logger, err := obslog.New(c.verbose)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	parser := descio.TOMLModelProcessor{}
	resolver := descio.NewPathModelResolver(repoRoot, "")
	workspace, err := descio.NewDirWorkspaceResolver(repoRoot, parser)
	if err != nil {
		return fmt.Errorf("scanning workspace: %w", err)
	}

	collaborators := &model.Collaborators{
		Parser:               parser,
		ModelResolver:        resolver,
		WorkspaceResolver:    workspace,
		ProfileSelector:      descio.DefaultProfileSelector{},
		ProfileInjector:      descio.DefaultProfileInjector{},
		Assembler:            descio.DefaultAssembler{},
		Interpolator:         descio.DefaultInterpolator{},
		Normalizer:           descio.DefaultNormalizer{},
		Validator:            descio.DefaultValidator{},
		PathTranslator:       descio.DefaultPathTranslator{},
		SuperModel:           descio.DefaultSuperModel{},
		PluginManagement:     descio.DefaultPluginManagementInjector{},
		DependencyManagement: descio.DefaultDependencyManagementInjector{},
		Importer:             descio.DefaultDependencyManagementImporter{},
		LifecycleBindings:    descio.DefaultLifecycleBindings{},
		PluginConfig:         descio.DefaultPluginConfigurationExpander{},
		ReportConfig:         descio.DefaultReportConfigurationExpander{},
		ReportingConverter:   descio.DefaultReportingConverter{},
	}

	cache, closeCache, err := c.openCache()
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer closeCache() //nolint:errcheck

	req := &model.Request{
		ModelSource:      descio.NewFileSource(path),
		ValidationLevel:  model.ValidationV30,
		ProcessPlugins:   c.process,
		LocationTracking: true,
		Cache:            cache,
		Collaborators:    collaborators,
	}

	b := &model.Builder{Log: logger}
	result, err := b.Build(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(cfg.Stdout, "effective model: %s\n", result.EffectiveModel.ModelID())
	fmt.Fprintf(cfg.Stdout, "lineage: %v\n", result.ModelIDs)
	if len(result.Problems) == 0 {
		fmt.Fprintln(cfg.Stdout, "no problems")
	} else {
		fmt.Fprintln(cfg.Stdout, "problems:")
		for _, p := range result.Problems {
			fmt.Fprintf(cfg.Stdout, "  %s\n", p.Trace())
		}
	}

	if c.dumpCache {
		coord := result.EffectiveModel.EffectiveCoordinates()
		prefix := fmt.Sprintf("%s:%s:", coord.GroupID, coord.ArtifactID)
		fmt.Fprintf(cfg.Stdout, "cache entries for %s*:\n", prefix)
		model.WalkCoordinatePrefix(cache, prefix, func(key string) {
			fmt.Fprintf(cfg.Stdout, "  %s\n", key)
		})
	}
	return nil
}
