package descio

import (
	"context"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/golang-dep/descbuild/internal/model"
)

// DirWorkspaceResolver is the reference model.WorkspaceModelResolver: it
// scans a workspace directory tree for sibling descriptors and indexes
// them by coordinates, the way the teacher's fs.go helpers walk a
// directory tree looking for project-shaped state rather than hitting a
// repository.
type DirWorkspaceResolver struct {
	Root   string
	Parser model.ModelProcessor

	raw       map[string]*model.Descriptor
	effective map[string]*model.Descriptor
}

// NewDirWorkspaceResolver scans root once, eagerly, for descriptor files
// named DefaultDescriptorName and parses each into its raw form.
func NewDirWorkspaceResolver(root string, parser model.ModelProcessor) (*DirWorkspaceResolver, error) {
	w := &DirWorkspaceResolver{
		Root:      root,
		Parser:    parser,
		raw:       map[string]*model.Descriptor{},
		effective: map[string]*model.Descriptor{},
	}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || filepath.Base(path) != DefaultDescriptorName {
				return nil
			}
			d, err := w.parse(path)
			if err != nil {
				return nil // skip unparseable siblings, don't fail the whole scan
			}
			w.raw[d.EffectiveCoordinates().ModelID()] = d
			return nil
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning workspace %s", root)
	}
	return w, nil
}

func (w *DirWorkspaceResolver) parse(path string) (*model.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src := &fileSource{path: path}
	return w.Parser.Read(context.Background(), f, model.ParseOptions{Source: src})
}

func (w *DirWorkspaceResolver) ResolveRawModel(c model.Coordinates) (*model.Descriptor, bool) {
	d, ok := w.raw[c.ModelID()]
	return d, ok
}

// ResolveEffectiveModel looks up a previously-registered effective
// model. Workspace members only populate this once they've been built
// by the caller (the workspace resolver has no build pipeline of its
// own); RegisterEffective lets a multi-module driver fill it in.
func (w *DirWorkspaceResolver) ResolveEffectiveModel(c model.Coordinates) (*model.Descriptor, bool) {
	d, ok := w.effective[c.ModelID()]
	return d, ok
}

// RegisterEffective records a built effective model for later lookups
// within the same workspace, e.g. when a caller builds modules in
// dependency order across a multi-module workspace.
func (w *DirWorkspaceResolver) RegisterEffective(d *model.Descriptor) {
	w.effective[d.ModelID()] = d
}
