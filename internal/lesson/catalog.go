// Package lesson holds the lesson catalog: the ordered lessons, their
// exercises and the command reference shown before each lesson.
// The built-in catalog is baked into the binary with go:embed; instructors
// may supply their own YAML file with the same layout.
package lesson

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"cmdtutor/internal/logging"
	"cmdtutor/internal/tutorerr"
	"cmdtutor/internal/verify"

	"gopkg.in/yaml.v3"
)

//go:embed lessons.yaml
var embeddedCatalog []byte

// Lesson is an ordered group of exercises.
type Lesson struct {
	Title       string
	Description string
	Commands    []string
	Notes       string // markdown shown after the command reference
	Exercises   []verify.Exercise
}

// Catalog is an immutable list of lessons plus the command explanations.
type Catalog struct {
	lessons   []Lesson
	reference map[string]string
	source    string
}

// catalogFile matches the YAML layout of lessons.yaml.
type catalogFile struct {
	Reference map[string]string `yaml:"reference"`
	Lessons   []yamlLesson      `yaml:"lessons"`
}

type yamlLesson struct {
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Commands    []string          `yaml:"commands"`
	Notes       string            `yaml:"notes,omitempty"`
	Exercises   []verify.Exercise `yaml:"exercises"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(embeddedCatalog, "embedded")
}

// LoadCatalog reads an instructor catalog from path. Command explanations
// missing from the file are taken from the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	timer := logging.StartTimer(logging.CategoryLesson, "LoadCatalog")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	cat, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	if builtin, err := Default(); err == nil {
		for cmd, text := range builtin.reference {
			if _, ok := cat.reference[cmd]; !ok {
				cat.reference[cmd] = text
			}
		}
	} else {
		logging.LessonWarn("built-in catalog unavailable: %v", err)
	}
	return cat, nil
}

// Parse decodes a catalog document. source names it in errors.
func Parse(data []byte, source string) (*Catalog, error) {
	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, tutorerr.Wrap("lesson", "Parse", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("cannot parse catalog %s", source), err)
	}
	if len(raw.Lessons) == 0 {
		return nil, tutorerr.New("lesson", "Parse", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("catalog %s has no lessons", source))
	}

	cat := &Catalog{
		reference: make(map[string]string, len(raw.Reference)),
		source:    source,
	}
	for cmd, text := range raw.Reference {
		cat.reference[cmd] = text
	}
	for i, rl := range raw.Lessons {
		l, err := convertLesson(rl)
		if err != nil {
			return nil, tutorerr.Wrap("lesson", "Parse", tutorerr.ErrInvalidConfig,
				fmt.Sprintf("catalog %s lesson %d", source, i+1), err)
		}
		cat.lessons = append(cat.lessons, l)
	}

	logging.Lesson("Loaded %d lessons (%d exercises) from %s", len(cat.lessons), cat.TotalExercises(), source)
	return cat, nil
}

func convertLesson(rl yamlLesson) (Lesson, error) {
	if strings.TrimSpace(rl.Title) == "" {
		return Lesson{}, fmt.Errorf("lesson title is required")
	}
	if len(rl.Exercises) == 0 {
		return Lesson{}, fmt.Errorf("lesson %q has no exercises", rl.Title)
	}
	for i, ex := range rl.Exercises {
		if strings.TrimSpace(ex.Command) == "" {
			return Lesson{}, fmt.Errorf("lesson %q exercise %d has no command", rl.Title, i+1)
		}
		if strings.TrimSpace(ex.Instruction) == "" {
			return Lesson{}, fmt.Errorf("lesson %q exercise %d has no instruction", rl.Title, i+1)
		}
	}
	return Lesson{
		Title:       rl.Title,
		Description: rl.Description,
		Commands:    append([]string(nil), rl.Commands...),
		Notes:       strings.TrimSpace(rl.Notes),
		Exercises:   append([]verify.Exercise(nil), rl.Exercises...),
	}, nil
}

// Len returns the number of lessons.
func (c *Catalog) Len() int { return len(c.lessons) }

// Source names where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Lesson returns the lesson at zero-based index i.
func (c *Catalog) Lesson(i int) (Lesson, bool) {
	if i < 0 || i >= len(c.lessons) {
		return Lesson{}, false
	}
	return c.lessons[i], true
}

// Lessons returns the lessons in order.
func (c *Catalog) Lessons() []Lesson {
	return append([]Lesson(nil), c.lessons...)
}

// TotalExercises counts exercises across all lessons.
func (c *Catalog) TotalExercises() int {
	n := 0
	for _, l := range c.lessons {
		n += len(l.Exercises)
	}
	return n
}

// Explain returns the one-line explanation for a command.
func (c *Catalog) Explain(cmd string) (string, bool) {
	text, ok := c.reference[cmd]
	return text, ok
}

// Commands lists every explained command, sorted.
func (c *Catalog) Commands() []string {
	out := make([]string, 0, len(c.reference))
	for cmd := range c.reference {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Reference builds the markdown command reference for a lesson.
// Commands without an explanation are left out.
func (c *Catalog) Reference(l Lesson) string {
	var b strings.Builder
	b.WriteString("### Command Reference\n\n")
	for _, cmd := range l.Commands {
		if text, ok := c.reference[cmd]; ok {
			fmt.Fprintf(&b, "- `%s` %s\n", cmd, text)
		}
	}
	if l.Notes != "" {
		b.WriteString("\n")
		b.WriteString(l.Notes)
		b.WriteString("\n")
	}
	return b.String()
}

// Artifacts lists the paths the exercises create outside the seeded
// Documents directory, in first-seen order.
func (c *Catalog) Artifacts() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p == "" || seen[p] || strings.HasPrefix(p, DocumentsDir+"/") {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, l := range c.lessons {
		for _, ex := range l.Exercises {
			switch s := ex.Spec().(type) {
			case verify.FileExists:
				add(s.Path)
			case verify.FileMoved:
				add(s.From)
				add(s.To)
			case verify.DirExists:
				add(s.Path)
			}
		}
	}
	return out
}
