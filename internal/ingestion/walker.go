package ingestion

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/archlens/archlens/internal/errors"
)

// skipDirs are build output, tooling and VCS directories that never hold
// hand-written Java sources
var skipDirs = map[string]struct{}{
	".git":         {},
	".svn":         {},
	".hg":          {},
	".idea":        {},
	".vscode":      {},
	".gradle":      {},
	".mvn":         {},
	"target":       {},
	"build":        {},
	"out":          {},
	"bin":          {},
	"generated":    {},
	"node_modules": {},
	"vendor":       {},
}

// WalkJavaFiles returns the paths of all .java files under root in lexical
// order, skipping build and tooling directories
func WalkJavaFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if isJavaFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to walk %s", root)
	}

	sort.Strings(files)
	return files, nil
}

// shouldSkipDir returns true if directory should be excluded from the walk
func shouldSkipDir(name string) bool {
	if _, ok := skipDirs[name]; ok {
		return true
	}
	// Hidden directories
	return strings.HasPrefix(name, ".") && name != "."
}

func isJavaFile(name string) bool {
	return strings.HasSuffix(name, ".java") && !strings.HasPrefix(name, ".")
}
