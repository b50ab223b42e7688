package verify

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"cmdtutor/internal/tutorerr"
)

// Spec is a closed set of verification predicates. Each implementation
// carries its own typed parameters; Evaluate switches over all of them.
type Spec interface {
	// Kind returns the YAML kind name.
	Kind() string
	// Legacy returns the colon-separated form, e.g. "check_file_exists:a.txt".
	Legacy() string
	isSpec()
}

// CommandSucceeded passes on exit status 0.
type CommandSucceeded struct{}

// PrintsDirectory passes when the command prints an absolute path.
type PrintsDirectory struct{}

// ListingSucceeded passes when a listing exits 0, even if empty.
type ListingSucceeded struct{}

// ListingShows passes when a listing exits 0 and mentions Name.
type ListingShows struct{ Name string }

// FileExists passes when Path exists after the command.
type FileExists struct{ Path string }

// FileAbsent passes when Path does not exist after the command.
type FileAbsent struct{ Path string }

// FilesAbsent passes when none of Paths exist after the command.
type FilesAbsent struct{ Paths []string }

// FileMoved passes when From is gone and To exists.
type FileMoved struct{ From, To string }

// DirExists passes when Path is a directory.
type DirExists struct{ Path string }

// OutputNonEmpty passes when a command reading Path exits 0 with output.
type OutputNonEmpty struct{ Path string }

// GrepMatch passes when the output contains Term. Matching ignores case
// when the learner passed -i.
type GrepMatch struct{ Term, File string }

func (CommandSucceeded) Kind() string { return "command_succeeded" }
func (PrintsDirectory) Kind() string  { return "prints_directory" }
func (ListingSucceeded) Kind() string { return "listing_succeeded" }
func (ListingShows) Kind() string     { return "listing_shows" }
func (FileExists) Kind() string       { return "file_exists" }
func (FileAbsent) Kind() string       { return "file_absent" }
func (FilesAbsent) Kind() string      { return "files_absent" }
func (FileMoved) Kind() string        { return "file_moved" }
func (DirExists) Kind() string        { return "dir_exists" }
func (OutputNonEmpty) Kind() string   { return "output_non_empty" }
func (GrepMatch) Kind() string        { return "grep_match" }

func (CommandSucceeded) Legacy() string { return "check_command_success" }
func (PrintsDirectory) Legacy() string  { return "check_pwd" }
func (ListingSucceeded) Legacy() string { return "check_ls" }
func (s ListingShows) Legacy() string   { return "check_ls_specific:" + s.Name }
func (s FileExists) Legacy() string     { return "check_file_exists:" + s.Path }
func (s FileAbsent) Legacy() string     { return "check_file_not_exists:" + s.Path }
func (s FilesAbsent) Legacy() string    { return "check_files_not_exist:" + strings.Join(s.Paths, ",") }
func (s FileMoved) Legacy() string      { return "check_file_moved:" + s.From + ":" + s.To }
func (s DirExists) Legacy() string      { return "check_dir_exists:" + s.Path }
func (s OutputNonEmpty) Legacy() string { return "check_cat_output:" + s.Path }
func (s GrepMatch) Legacy() string      { return "check_grep_output:" + s.Term + ":" + s.File }

func (CommandSucceeded) isSpec() {}
func (PrintsDirectory) isSpec()  {}
func (ListingSucceeded) isSpec() {}
func (ListingShows) isSpec()     {}
func (FileExists) isSpec()       {}
func (FileAbsent) isSpec()       {}
func (FilesAbsent) isSpec()      {}
func (FileMoved) isSpec()        {}
func (DirExists) isSpec()        {}
func (OutputNonEmpty) isSpec()   {}
func (GrepMatch) isSpec()        {}

func unknownSpec(op, msg string) error {
	return tutorerr.New("verify", op, tutorerr.ErrUnknownSpec, msg)
}

// ParseLegacy decodes the "kind:param:param" form. An empty string means
// CommandSucceeded. Unknown kinds and missing parameters are errors.
func ParseLegacy(s string) (Spec, error) {
	spec, err := parseLegacy(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func parseLegacy(s string) (Spec, error) {
	if s == "" {
		return CommandSucceeded{}, nil
	}

	kind, rest, hasParams := strings.Cut(s, ":")
	one := func() (string, error) {
		if !hasParams || rest == "" {
			return "", unknownSpec("ParseLegacy", fmt.Sprintf("%s requires a parameter", kind))
		}
		return rest, nil
	}
	two := func() (string, string, error) {
		a, b, ok := strings.Cut(rest, ":")
		if !hasParams || !ok || a == "" || b == "" {
			return "", "", unknownSpec("ParseLegacy", fmt.Sprintf("%s requires two parameters", kind))
		}
		return a, b, nil
	}

	switch kind {
	case "check_command_success":
		return CommandSucceeded{}, nil
	case "check_pwd":
		return PrintsDirectory{}, nil
	case "check_ls":
		return ListingSucceeded{}, nil
	case "check_ls_specific":
		p, err := one()
		return ListingShows{Name: p}, err
	case "check_file_exists":
		p, err := one()
		return FileExists{Path: p}, err
	case "check_file_not_exists":
		p, err := one()
		return FileAbsent{Path: p}, err
	case "check_files_not_exist":
		p, err := one()
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, f := range strings.Split(p, ",") {
			if f = strings.TrimSpace(f); f != "" {
				paths = append(paths, f)
			}
		}
		return FilesAbsent{Paths: paths}, nil
	case "check_file_moved":
		from, to, err := two()
		return FileMoved{From: from, To: to}, err
	case "check_dir_exists":
		p, err := one()
		return DirExists{Path: p}, err
	case "check_cat_output", "check_head_output", "check_tail_output":
		p, err := one()
		return OutputNonEmpty{Path: p}, err
	case "check_grep_output":
		term, file, err := two()
		return GrepMatch{Term: term, File: file}, err
	default:
		return nil, unknownSpec("ParseLegacy", fmt.Sprintf("unknown verification kind %q", kind))
	}
}

// yamlSpec is the mapping form of a spec.
type yamlSpec struct {
	Kind  string   `yaml:"kind"`
	Path  string   `yaml:"path,omitempty"`
	Paths []string `yaml:"paths,omitempty"`
	Name  string   `yaml:"name,omitempty"`
	From  string   `yaml:"from,omitempty"`
	To    string   `yaml:"to,omitempty"`
	Term  string   `yaml:"term,omitempty"`
	File  string   `yaml:"file,omitempty"`
}

func (y yamlSpec) toSpec() (Spec, error) {
	spec, err := y.decode()
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func (y yamlSpec) decode() (Spec, error) {
	need := func(field, v string) error {
		if v == "" {
			return unknownSpec("DecodeSpec", fmt.Sprintf("%s requires %q", y.Kind, field))
		}
		return nil
	}

	switch y.Kind {
	case "command_succeeded":
		return CommandSucceeded{}, nil
	case "prints_directory":
		return PrintsDirectory{}, nil
	case "listing_succeeded":
		return ListingSucceeded{}, nil
	case "listing_shows":
		return ListingShows{Name: y.Name}, need("name", y.Name)
	case "file_exists":
		return FileExists{Path: y.Path}, need("path", y.Path)
	case "file_absent":
		return FileAbsent{Path: y.Path}, need("path", y.Path)
	case "files_absent":
		if len(y.Paths) == 0 {
			return nil, unknownSpec("DecodeSpec", "files_absent requires \"paths\"")
		}
		return FilesAbsent{Paths: y.Paths}, nil
	case "file_moved":
		if err := need("from", y.From); err != nil {
			return nil, err
		}
		return FileMoved{From: y.From, To: y.To}, need("to", y.To)
	case "dir_exists":
		return DirExists{Path: y.Path}, need("path", y.Path)
	case "output_non_empty":
		return OutputNonEmpty{Path: y.Path}, need("path", y.Path)
	case "grep_match":
		if err := need("term", y.Term); err != nil {
			return nil, err
		}
		return GrepMatch{Term: y.Term, File: y.File}, need("file", y.File)
	default:
		return nil, unknownSpec("DecodeSpec", fmt.Sprintf("unknown verification kind %q", y.Kind))
	}
}

func fromSpec(s Spec) yamlSpec {
	y := yamlSpec{Kind: s.Kind()}
	switch v := s.(type) {
	case ListingShows:
		y.Name = v.Name
	case FileExists:
		y.Path = v.Path
	case FileAbsent:
		y.Path = v.Path
	case FilesAbsent:
		y.Paths = v.Paths
	case FileMoved:
		y.From, y.To = v.From, v.To
	case DirExists:
		y.Path = v.Path
	case OutputNonEmpty:
		y.Path = v.Path
	case GrepMatch:
		y.Term, y.File = v.Term, v.File
	}
	return y
}

// SpecField holds a Spec in YAML documents. It accepts either the legacy
// string form or a {kind: ...} mapping and always writes the mapping.
type SpecField struct {
	Spec Spec
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *SpecField) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s, err := ParseLegacy(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		f.Spec = s
		return nil
	case yaml.MappingNode:
		var y yamlSpec
		if err := node.Decode(&y); err != nil {
			return err
		}
		s, err := y.toSpec()
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		f.Spec = s
		return nil
	default:
		return unknownSpec("DecodeSpec", fmt.Sprintf("line %d: verification must be a string or a mapping", node.Line))
	}
}

// MarshalYAML implements yaml.Marshaler.
func (f SpecField) MarshalYAML() (interface{}, error) {
	if f.Spec == nil {
		return fromSpec(CommandSucceeded{}), nil
	}
	return fromSpec(f.Spec), nil
}

// Exercise is one task: an instruction, the exact command that solves it,
// and how to judge the result. Exercises are not modified after loading.
type Exercise struct {
	Instruction string    `yaml:"instruction"`
	Command     string    `yaml:"command"`
	Check       SpecField `yaml:"verification"`
}

// Spec returns the exercise's verification, CommandSucceeded if unset.
func (e Exercise) Spec() Spec {
	if e.Check.Spec == nil {
		return CommandSucceeded{}
	}
	return e.Check.Spec
}
