package model

import (
	"context"

	"github.com/pkg/errors"
)

// EffectiveBuilder is C10: applies path translation, management
// injection, defaults, plugin expansion, and validation, in the order
// §4.10 specifies.
type EffectiveBuilder struct {
	PathTranslator     PathTranslator
	PluginManagement   PluginManagementInjector
	Listener           BuildExtensionsListener // optional
	LifecycleBindings  LifecycleBindingsInjector
	Import             *ImportResolver
	DepManagement      DependencyManagementInjector
	Importer           DependencyManagementImporter
	Normalizer         Normalizer
	PluginConfig       PluginConfigurationExpander
	ReportConfig       ReportConfigurationExpander
	ReportingConverter ReportingConverter
	Validator          Validator
}

// Build applies the nine steps of §4.10 to d in place and returns it as
// the effective model.
func (eb *EffectiveBuilder) Build(ctx context.Context, d *Descriptor, req *Request, level ValidationLevel, pc *ProblemCollector) (*Descriptor, error) {
	// 1. Path translation.
	if eb.PathTranslator != nil && d.ProjectDirectory != "" {
		eb.PathTranslator.Translate(d, d.ProjectDirectory)
	}

	// 2. PluginManagement injection.
	if eb.PluginManagement != nil {
		eb.PluginManagement.InjectPluginManagement(d)
	}

	// 3. BUILD_EXTENSIONS_ASSEMBLED event.
	if eb.Listener != nil {
		eb.Listener.BuildExtensionsAssembled(d, pc)
	}

	// 4. Lifecycle bindings, if plugin processing requested.
	if req.ProcessPlugins {
		if eb.LifecycleBindings == nil {
			return nil, errors.New("lifecycle bindings injector is missing")
		}
		if err := eb.LifecycleBindings.InjectBindings(d, pc); err != nil {
			return nil, errors.Wrap(err, "injecting lifecycle bindings")
		}
	}

	// 5. Dependency-management import.
	chain := req.ImportChain
	if chain == nil {
		chain = NewImportChain()
	}
	imported, err := eb.Import.Resolve(ctx, d, req, level, chain, pc)
	if err != nil {
		return nil, errors.Wrap(err, "resolving dependency-management imports")
	}

	// 6. Dependency-management injection (wholesale management block, not
	// the import accumulation above — the external injector's own
	// defaults).
	if eb.DepManagement != nil {
		eb.DepManagement.InjectDependencyManagement(d)
	}
	if eb.Importer != nil {
		eb.Importer.Import(d, imported)
	}

	// 7. Default-value injection.
	if eb.Normalizer != nil {
		eb.Normalizer.Normalize(d)
	}

	// 8. Plugin/report expansion, if plugin processing requested.
	if req.ProcessPlugins {
		if eb.ReportConfig != nil {
			eb.ReportConfig.ExpandReportConfiguration(d)
		}
		if eb.ReportingConverter != nil {
			eb.ReportingConverter.ConvertReportingToSite(d)
		}
		if eb.PluginConfig != nil {
			eb.PluginConfig.ExpandPluginConfiguration(d)
		}
	}

	// 9. Effective-model validation.
	if eb.Validator != nil {
		eb.Validator.ValidateEffectiveModel(d, level, pc)
	}

	if pc.HasErrors() {
		return d, newBuildFailed(d.ModelID(), pc)
	}
	return d, nil
}
