package descio

import (
	"context"
	"io"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/golang-dep/descbuild/internal/model"
)

// tomlMapper walks a *toml.TomlTree accumulating the first error seen,
// so callers can chain reads without checking after every field.
type tomlMapper struct {
	Tree  *toml.TomlTree
	Error error
}

// TOMLModelProcessor is the reference model.ModelProcessor: it decodes a
// descriptor document written in TOML (this corpus's closest analog to
// a structured build manifest) into a *model.Descriptor.
type TOMLModelProcessor struct{}

func (TOMLModelProcessor) Read(ctx context.Context, r model.ReadCloser, opts model.ParseOptions) (*model.Descriptor, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading descriptor source")
	}
	tree, err := toml.LoadBytes(raw)
	if err != nil {
		if opts.Strict {
			return nil, errors.Wrap(err, "parsing descriptor (strict)")
		}
		return nil, errors.Wrap(err, "parsing descriptor")
	}

	mapper := &tomlMapper{Tree: tree}
	d := &model.Descriptor{
		GroupID:    readKeyAsString(mapper, "groupId"),
		ArtifactID: readKeyAsString(mapper, "artifactId"),
		Version:    readKeyAsString(mapper, "version"),
		Packaging:  readKeyAsString(mapper, "packaging"),
		Properties: readTableAsStringMap(mapper, "properties"),
	}

	if parentTree := readSubTree(mapper, "parent"); parentTree != nil {
		pm := &tomlMapper{Tree: parentTree}
		d.Parent = &model.ParentReference{
			Coordinates: model.Coordinates{
				GroupID:    readKeyAsString(pm, "groupId"),
				ArtifactID: readKeyAsString(pm, "artifactId"),
				Version:    readKeyAsString(pm, "version"),
			},
			RelativePath: readKeyAsString(pm, "relativePath"),
		}
		mapper.Error = firstOf(mapper.Error, pm.Error)
	}

	d.Dependencies = readTableAsDependencies(mapper, "dependencies")
	d.DependencyManagement.Dependencies = readTableAsDependencies(mapper, "dependencyManagement.dependencies")
	d.Build.Plugins = readTableAsPlugins(mapper, "build.plugins")
	d.Build.PluginManagement = readTableAsPlugins(mapper, "build.pluginManagement.plugins")
	d.Repositories = readTableAsRepositories(mapper, "repositories")
	d.Profiles = readTableAsProfiles(mapper, "profiles")

	if mapper.Error != nil {
		return nil, errors.Wrap(mapper.Error, "decoding descriptor")
	}

	if opts.Source != nil {
		d.PomFile = opts.Source.Location()
	}
	return d, nil
}

func firstOf(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func readSubTree(mapper *tomlMapper, key string) *toml.TomlTree {
	if mapper.Error != nil {
		return nil
	}
	v := mapper.Tree.Get(key)
	if v == nil {
		return nil
	}
	sub, ok := v.(*toml.TomlTree)
	if !ok {
		mapper.Error = errors.Errorf("invalid type for %s, should be a table but got %T", key, v)
		return nil
	}
	return sub
}

func readKeyAsString(mapper *tomlMapper, key string) string {
	if mapper.Error != nil {
		return ""
	}
	rawValue := mapper.Tree.GetDefault(key, "")
	value, ok := rawValue.(string)
	if !ok {
		mapper.Error = errors.Errorf("invalid type for %s, should be a string but got %T", key, rawValue)
		return ""
	}
	return value
}

func readKeyAsBool(mapper *tomlMapper, key string) bool {
	if mapper.Error != nil {
		return false
	}
	rawValue := mapper.Tree.GetDefault(key, false)
	value, ok := rawValue.(bool)
	if !ok {
		mapper.Error = errors.Errorf("invalid type for %s, should be a bool but got %T", key, rawValue)
		return false
	}
	return value
}

func readTableAsStringMap(mapper *tomlMapper, table string) map[string]string {
	if mapper.Error != nil {
		return nil
	}
	sub := readSubTree(mapper, table)
	if sub == nil {
		return nil
	}
	result := map[string]string{}
	for _, k := range sub.Keys() {
		v, ok := sub.Get(k).(string)
		if !ok {
			mapper.Error = errors.Errorf("invalid type for %s.%s, should be a string but got %T", table, k, sub.Get(k))
			return nil
		}
		result[k] = v
	}
	return result
}

func readTableArray(mapper *tomlMapper, table string) []*toml.TomlTree {
	if mapper.Error != nil {
		return nil
	}
	query, err := mapper.Tree.Query("$." + table)
	if err != nil {
		mapper.Error = errors.Wrapf(err, "querying [[%s]]", table)
		return nil
	}
	matches := query.Values()
	if len(matches) == 0 {
		return nil
	}
	tables, ok := matches[0].([]*toml.TomlTree)
	if !ok {
		mapper.Error = errors.Errorf("invalid query result type for [[%s]], should be an array of tables but got %T", table, matches[0])
		return nil
	}
	return tables
}

func readTableAsDependencies(mapper *tomlMapper, table string) []model.Dependency {
	tables := readTableArray(mapper, table)
	if mapper.Error != nil || len(tables) == 0 {
		return nil
	}
	deps := make([]model.Dependency, len(tables))
	for i, t := range tables {
		m := &tomlMapper{Tree: t}
		deps[i] = model.Dependency{
			Coordinates: model.Coordinates{
				GroupID:    readKeyAsString(m, "groupId"),
				ArtifactID: readKeyAsString(m, "artifactId"),
				Version:    readKeyAsString(m, "version"),
			},
			Type:  defaultString(readKeyAsString(m, "type"), "jar"),
			Scope: defaultString(readKeyAsString(m, "scope"), "compile"),
		}
		if m.Error != nil {
			mapper.Error = m.Error
			return nil
		}
	}
	return deps
}

func readTableAsPlugins(mapper *tomlMapper, table string) []model.Plugin {
	tables := readTableArray(mapper, table)
	if mapper.Error != nil || len(tables) == 0 {
		return nil
	}
	plugins := make([]model.Plugin, len(tables))
	for i, t := range tables {
		m := &tomlMapper{Tree: t}
		plugins[i] = model.Plugin{
			GroupID:    readKeyAsString(m, "groupId"),
			ArtifactID: readKeyAsString(m, "artifactId"),
			Version:    readKeyAsString(m, "version"),
		}
		if m.Error != nil {
			mapper.Error = m.Error
			return nil
		}
	}
	return plugins
}

func readTableAsRepositories(mapper *tomlMapper, table string) []model.Repository {
	tables := readTableArray(mapper, table)
	if mapper.Error != nil || len(tables) == 0 {
		return nil
	}
	repos := make([]model.Repository, len(tables))
	for i, t := range tables {
		m := &tomlMapper{Tree: t}
		repos[i] = model.Repository{
			ID:  readKeyAsString(m, "id"),
			URL: readKeyAsString(m, "url"),
		}
		if m.Error != nil {
			mapper.Error = m.Error
			return nil
		}
	}
	return repos
}

func readTableAsProfiles(mapper *tomlMapper, table string) []model.Profile {
	tables := readTableArray(mapper, table)
	if mapper.Error != nil || len(tables) == 0 {
		return nil
	}
	profiles := make([]model.Profile, len(tables))
	for i, t := range tables {
		m := &tomlMapper{Tree: t}
		p := model.Profile{
			ID:         readKeyAsString(m, "id"),
			Properties: readTableAsStringMap(m, "properties"),
		}
		if act := readSubTree(m, "activation"); act != nil {
			am := &tomlMapper{Tree: act}
			p.Activation = &model.Activation{
				ActiveByDefault: readKeyAsBool(am, "activeByDefault"),
				JDK:             readKeyAsString(am, "jdk"),
			}
			if os := readSubTree(am, "os"); os != nil {
				osm := &tomlMapper{Tree: os}
				p.Activation.OS = &model.OSActivation{
					Name:    readKeyAsString(osm, "name"),
					Family:  readKeyAsString(osm, "family"),
					Arch:    readKeyAsString(osm, "arch"),
					Version: readKeyAsString(osm, "version"),
				}
				m.Error = firstOf(m.Error, osm.Error)
			}
			if f := readSubTree(am, "file"); f != nil {
				fm := &tomlMapper{Tree: f}
				p.Activation.File = &model.FileActivation{
					Exists:  readKeyAsString(fm, "exists"),
					Missing: readKeyAsString(fm, "missing"),
				}
				m.Error = firstOf(m.Error, fm.Error)
			}
			if pr := readSubTree(am, "property"); pr != nil {
				prm := &tomlMapper{Tree: pr}
				p.Activation.Property = &model.PropertyActivation{
					Name:  readKeyAsString(prm, "name"),
					Value: readKeyAsString(prm, "value"),
				}
				m.Error = firstOf(m.Error, prm.Error)
			}
			m.Error = firstOf(m.Error, am.Error)
		}
		p.Dependencies = readTableAsDependencies(m, "dependencies")
		p.DependencyManagement.Dependencies = readTableAsDependencies(m, "dependencyManagement.dependencies")
		p.Build.Plugins = readTableAsPlugins(m, "build.plugins")
		p.Repositories = readTableAsRepositories(m, "repositories")
		if m.Error != nil {
			mapper.Error = m.Error
			return nil
		}
		profiles[i] = p
	}
	return profiles
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
