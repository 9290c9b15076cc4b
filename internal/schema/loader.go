package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"
)

//go:embed rules.cue
var rulesCUE string

// Load error codes (L0xx).
const (
	ErrCodeNotFound  = "L001" // rule file not found
	ErrCodeRead      = "L002" // file read error
	ErrCodeFormat    = "L003" // unknown extension or undecodable content
	ErrCodeStructure = "L004" // content does not satisfy the rule-file definition
)

// LoadError represents a failure to load a rule file from disk.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ruleFile is the on-disk shape of a rule file. MaxArgs is a pointer
// so an absent bound can be normalized to Unbounded.
type ruleFile struct {
	VectorPrefix string                  `json:"vector_prefix"`
	Operators    map[string]fileOperator `json:"operators"`
	Datafields   []DatafieldDecl         `json:"datafields"`
}

type fileOperator struct {
	MinArgs int                  `json:"min_args"`
	MaxArgs *int                 `json:"max_args"`
	Kwargs  map[string]KwargRule `json:"kwargs"`
}

// Load reads rules from a path that may be a single rule file or a
// directory of rule files.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "rules not found"}
		}
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadFile reads a .json or .yaml rule file, checks it against the
// embedded CUE definition, and builds a Schema. All structural
// problems surface here, before any expression is validated.
func LoadFile(path string) (*Schema, error) {
	file, err := readRuleFile(path)
	if err != nil {
		return nil, err
	}
	return buildSchema(*file)
}

// LoadDir reads every rule file in a directory (non-recursive, sorted
// by name) and merges their tables into one Schema. Splitting operator
// and datafield declarations across files is fine; redeclaring the same
// entry is not.
func LoadDir(dir string) (*Schema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: "rules directory not found"}
		}
		return nil, &LoadError{Code: ErrCodeRead, Path: dir, Message: err.Error()}
	}

	merged := ruleFile{Operators: make(map[string]fileOperator)}
	fieldSeen := make(map[string]string) // datafield id -> declaring file
	opSeen := make(map[string]string)    // operator name -> declaring file
	loaded := 0

	for _, entry := range entries {
		if entry.IsDir() || !isRuleFileName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		file, err := readRuleFile(path)
		if err != nil {
			return nil, err
		}
		loaded++

		if file.VectorPrefix != "" {
			if merged.VectorPrefix != "" && merged.VectorPrefix != file.VectorPrefix {
				return nil, &LoadError{Code: ErrCodeStructure, Path: path,
					Message: fmt.Sprintf("vector_prefix %q conflicts with %q declared earlier", file.VectorPrefix, merged.VectorPrefix)}
			}
			merged.VectorPrefix = file.VectorPrefix
		}
		for name, op := range file.Operators {
			if prev, dup := opSeen[name]; dup {
				return nil, &LoadError{Code: ErrCodeStructure, Path: path,
					Message: fmt.Sprintf("operator %q already declared in %s", name, prev)}
			}
			opSeen[name] = entry.Name()
			merged.Operators[name] = op
		}
		for _, decl := range file.Datafields {
			if prev, dup := fieldSeen[decl.ID]; dup {
				return nil, &LoadError{Code: ErrCodeStructure, Path: path,
					Message: fmt.Sprintf("datafield %q already declared in %s", decl.ID, prev)}
			}
			fieldSeen[decl.ID] = entry.Name()
			merged.Datafields = append(merged.Datafields, decl)
		}
	}

	if loaded == 0 {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: "no rule files (.json/.yaml) in directory"}
	}
	return buildSchema(merged)
}

func isRuleFileName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// readRuleFile reads one rule file from disk and checks it against the
// embedded CUE definition.
func readRuleFile(path string) (*ruleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "rule file not found"}
		}
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return decodeRuleFile(path, data)
	case ".yaml", ".yml":
		jsonData, err := yamlToJSON(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeFormat, Path: path, Message: err.Error()}
		}
		return decodeRuleFile(path, jsonData)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf("unsupported rule file extension %q", ext)}
	}
}

// LoadBytes builds a Schema from JSON rule-table content. The name is
// used in error messages only.
func LoadBytes(name string, data []byte) (*Schema, error) {
	file, err := decodeRuleFile(name, data)
	if err != nil {
		return nil, err
	}
	return buildSchema(*file)
}

func decodeRuleFile(name string, data []byte) (*ruleFile, error) {
	ctx := cuecontext.New()

	def := ctx.CompileString(rulesCUE)
	if err := def.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeStructure, Message: fmt.Sprintf("internal rule definition: %v", err)}
	}

	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeFormat, Path: name, Message: err.Error()}
	}

	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeFormat, Path: name, Message: err.Error()}
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeStructure, Path: name, Message: err.Error()}
	}

	var file ruleFile
	if err := unified.Decode(&file); err != nil {
		return nil, &LoadError{Code: ErrCodeStructure, Path: name, Message: err.Error()}
	}
	return &file, nil
}

func buildSchema(file ruleFile) (*Schema, error) {
	operators := make(map[string]OperatorRule, len(file.Operators))
	for opName, op := range file.Operators {
		maxArgs := Unbounded
		if op.MaxArgs != nil {
			maxArgs = *op.MaxArgs
		}
		operators[opName] = OperatorRule{
			MinArgs: op.MinArgs,
			MaxArgs: maxArgs,
			Kwargs:  op.Kwargs,
		}
	}
	return New(operators, file.Datafields, WithVectorPrefix(file.VectorPrefix))
}

// yamlToJSON re-encodes YAML content as JSON so both formats share the
// CUE checking path. Integral numbers survive as integers.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encoding YAML as JSON: %w", err)
	}
	return out, nil
}
