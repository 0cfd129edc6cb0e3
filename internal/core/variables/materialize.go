package variables

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/layerprompt/layerprompt/internal/core"
	"github.com/layerprompt/layerprompt/internal/core/pathres"
)

// InputSource tags where the input content came from.
type InputSource string

const (
	InputSourceNone  InputSource = "none"
	InputSourceFile  InputSource = "file"
	InputSourceStdin InputSource = "stdin"
	InputSourceBoth  InputSource = "both"
)

// MaterializedVariables is the resolved variable set handed to rendering.
// InputContent is always defined; "" is a valid value.
type MaterializedVariables struct {
	InputContent    string            `json:"input_content"`
	InputPath       string            `json:"input_path,omitempty"`
	DestinationPath string            `json:"destination_path,omitempty"`
	SchemaContent   string            `json:"schema_content,omitempty"`
	SchemaPath      string            `json:"schema_path,omitempty"`
	TemplatePath    string            `json:"template_path"`
	InputSource     InputSource       `json:"input_source"`
	Custom          map[string]string `json:"custom"`
}

// ReadFileFunc reads a whole file; os.ReadFile by default.
type ReadFileFunc func(name string) ([]byte, error)

// Materializer resolves a Source into MaterializedVariables.
type Materializer struct {
	WorkingDir string
	ReadFile   ReadFileFunc
}

// NewMaterializer returns a materializer resolving relative paths under workingDir.
func NewMaterializer(workingDir string) *Materializer {
	return &Materializer{WorkingDir: workingDir, ReadFile: os.ReadFile}
}

// Materialize applies, in order: input content, provenance, destination,
// schema content and custom variables. It never creates files.
func (m *Materializer) Materialize(src Source, resolved pathres.ResolvedPath, schema pathres.SchemaPath) (MaterializedVariables, error) {
	out := MaterializedVariables{
		TemplatePath: resolved.Path,
		InputSource:  provenance(src),
		Custom:       make(map[string]string, len(src.Custom)),
	}

	switch {
	case src.FromFile != "":
		path, err := m.abs(src.FromFile)
		if err != nil {
			return MaterializedVariables{}, &core.Error{Kind: core.KindFileReadError, Msg: "cannot resolve input path", Value: src.FromFile, Err: err}
		}
		content, err := m.read(path, core.KindFileNotFound, "input file")
		if err != nil {
			return MaterializedVariables{}, err
		}
		out.InputPath = path
		out.InputContent = content
	case src.HasStdin:
		out.InputContent = src.Stdin
	}

	if src.Destination != "" {
		path, err := m.abs(src.Destination)
		if err != nil {
			return MaterializedVariables{}, &core.Error{Kind: core.KindFileReadError, Msg: "cannot resolve destination path", Value: src.Destination, Err: err}
		}
		out.DestinationPath = path
	}

	if src.UseSchema {
		if schema.Path == "" {
			return MaterializedVariables{}, &core.Error{Kind: core.KindSchemaFileNotFound, Msg: "schema requested but no schema path was resolved"}
		}
		if !schema.Exists {
			return MaterializedVariables{}, pathres.SchemaNotFound(schema.Path)
		}
		content, err := m.read(schema.Path, core.KindSchemaFileNotFound, "schema file")
		if err != nil {
			return MaterializedVariables{}, err
		}
		out.SchemaPath = schema.Path
		out.SchemaContent = content
	}

	keys := make([]string, 0, len(src.Custom))
	for key := range src.Custom {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := src.Custom[key]
		if key == "" {
			return MaterializedVariables{}, &core.Error{Kind: core.KindInvalidCustomVariable, Msg: "custom variable name is empty", Value: "=" + value}
		}
		if value == "" {
			return MaterializedVariables{}, &core.Error{Kind: core.KindInvalidCustomVariable, Msg: "custom variable value is empty", Value: key}
		}
		out.Custom[key] = value
	}

	return out, nil
}

func (m *Materializer) abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if m.WorkingDir != "" {
		return filepath.Abs(filepath.Join(m.WorkingDir, path))
	}
	return filepath.Abs(path)
}

func (m *Materializer) read(path string, missing core.Kind, label string) (string, error) {
	readFile := m.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &core.Error{Kind: missing, Msg: label + " does not exist", Value: path, Paths: []string{path}, Err: err}
		}
		return "", &core.Error{Kind: core.KindFileReadError, Msg: label + " could not be read", Value: path, Paths: []string{path}, Err: err}
	}
	return string(data), nil
}

func provenance(src Source) InputSource {
	hasFile := src.FromFile != ""
	switch {
	case hasFile && src.HasStdin:
		return InputSourceBoth
	case hasFile:
		return InputSourceFile
	case src.HasStdin:
		return InputSourceStdin
	default:
		return InputSourceNone
	}
}
