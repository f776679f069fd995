package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/seedbed/internal/compiler"
	"github.com/roach88/seedbed/internal/dataset"
)

// DefError is a definition loading failure with a CLI error code.
type DefError struct {
	Code    string
	Message string
}

func (e *DefError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// LoadDefinitions reads dataset definitions from a file or a directory
// of files. YAML (.yaml/.yml) and CUE (.cue) definitions are supported;
// directories are read in name order. Dependencies resolve within one
// file, so a dataset and everything it depends on live together.
func LoadDefinitions(path string) ([]*dataset.Dataset, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &DefError{ErrCodeNotFound, fmt.Sprintf("path %s not found", path)}
	}
	if err != nil {
		return nil, &DefError{ErrCodeGeneric, err.Error()}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = definitionFiles(path)
		if err != nil {
			return nil, err
		}
	}

	var all []*dataset.Dataset
	seen := make(map[string]string)
	for _, file := range files {
		sets, err := parseFile(file)
		if err != nil {
			return nil, err
		}
		for _, ds := range sets {
			if prev, dup := seen[ds.Name()]; dup {
				return nil, &DefError{ErrCodeParse,
					fmt.Sprintf("dataset %s defined in both %s and %s", ds.Name(), prev, file)}
			}
			seen[ds.Name()] = file
		}
		all = append(all, sets...)
	}
	return all, nil
}

func definitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DefError{ErrCodeGeneric, err.Error()}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".cue":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, &DefError{ErrCodeEmpty, fmt.Sprintf("no definition files (.yaml, .yml, .cue) in %s", dir)}
	}
	sort.Strings(files)
	return files, nil
}

func parseFile(path string) ([]*dataset.Dataset, error) {
	var (
		sets []*dataset.Dataset
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		sets, err = dataset.Load(path)
	case ".cue":
		sets, err = compiler.CompileFile(path)
	default:
		return nil, &DefError{ErrCodeParse, fmt.Sprintf("unsupported definition file %s (want .yaml, .yml, or .cue)", path)}
	}
	if err != nil {
		var cerr *dataset.CycleError
		if errors.As(err, &cerr) {
			return nil, &DefError{ErrCodeCycle, fmt.Sprintf("%s: %v", path, err)}
		}
		return nil, &DefError{ErrCodeParse, fmt.Sprintf("%s: %v", path, err)}
	}
	return sets, nil
}
