// Package types defines the core data structures of the trellis planning store.
package types

import (
	"fmt"
	"strings"
)

// Kind is one of the four planning object kinds. The set is closed.
type Kind string

// Kind constants
const (
	KindProject Kind = "project"
	KindEpic    Kind = "epic"
	KindFeature Kind = "feature"
	KindTask    Kind = "task"
)

// AllKinds lists every kind from the top of the hierarchy down.
var AllKinds = []Kind{KindProject, KindEpic, KindFeature, KindTask}

// ParseKind converts user input into a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("invalid kind %q (expected project, epic, feature or task)", s)
	}
	return k, nil
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindProject, KindEpic, KindFeature, KindTask:
		return true
	}
	return false
}

// Prefix returns the id prefix used on disk for the kind ("P-", "E-", ...).
func (k Kind) Prefix() string {
	switch k {
	case KindProject:
		return "P-"
	case KindEpic:
		return "E-"
	case KindFeature:
		return "F-"
	case KindTask:
		return "T-"
	}
	return ""
}

// ParentKind returns the kind a parent of k must have. Projects have none.
func (k Kind) ParentKind() (Kind, bool) {
	switch k {
	case KindEpic:
		return KindProject, true
	case KindFeature:
		return KindEpic, true
	case KindTask:
		return KindFeature, true
	}
	return "", false
}

// ChildKind returns the kind of the immediate children of k. Tasks have none.
func (k Kind) ChildKind() (Kind, bool) {
	switch k {
	case KindProject:
		return KindEpic, true
	case KindEpic:
		return KindFeature, true
	case KindFeature:
		return KindTask, true
	}
	return "", false
}

// FileName returns the fixed markdown file name for container kinds.
// Task files are named after their id and return "".
func (k Kind) FileName() string {
	switch k {
	case KindProject:
		return "project.md"
	case KindEpic:
		return "epic.md"
	case KindFeature:
		return "feature.md"
	}
	return ""
}

// DirName returns the directory under a parent that holds objects of kind k.
// Tasks are split between TasksOpenDir and TasksDoneDir and return "".
func (k Kind) DirName() string {
	switch k {
	case KindProject:
		return "projects"
	case KindEpic:
		return "epics"
	case KindFeature:
		return "features"
	}
	return ""
}

// Task directory names, used both under features and at the planning root.
const (
	TasksOpenDir = "tasks-open"
	TasksDoneDir = "tasks-done"
)

// Object is the front-matter record of a planning object.
type Object struct {
	Kind          Kind     `yaml:"kind" json:"kind" validate:"required,oneof=project epic feature task"`
	ID            string   `yaml:"id" json:"id" validate:"required,max=40"`
	Parent        string   `yaml:"parent,omitempty" json:"parent,omitempty"`
	Status        Status   `yaml:"status" json:"status" validate:"required"`
	Title         string   `yaml:"title" json:"title" validate:"required"`
	Priority      string   `yaml:"priority,omitempty" json:"priority,omitempty" validate:"omitempty,oneof=high normal low"`
	Prerequisites []string `yaml:"prerequisites,omitempty" json:"prerequisites,omitempty" validate:"dive,required"`
	Created       string   `yaml:"created,omitempty" json:"created,omitempty"`
	Updated       string   `yaml:"updated,omitempty" json:"updated,omitempty"`
	SchemaVersion string   `yaml:"schema_version,omitempty" json:"schema_version,omitempty"`

	// Path is where the object was read from. Never serialized.
	Path string `yaml:"-" json:"path,omitempty"`
}

// CleanID returns the object id without its kind prefix.
func (o *Object) CleanID() string {
	return StripKnownPrefix(strings.TrimSpace(o.ID))
}

// IsStandalone reports whether o is a task with no parent feature.
func (o *Object) IsStandalone() bool {
	return o.Kind == KindTask && strings.TrimSpace(o.Parent) == ""
}

// StripKnownPrefix removes a single leading "P-", "E-", "F-" or "T-".
// The prefix does not have to match any particular kind.
func StripKnownPrefix(id string) string {
	if len(id) >= 2 && id[1] == '-' {
		switch id[0] {
		case 'P', 'E', 'F', 'T':
			return id[2:]
		}
	}
	return id
}

// ChildSummary describes one immediate child of a planning object.
// Fields missing from the child's front-matter are empty strings.
type ChildSummary struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Created  string `json:"created"`
	FilePath string `json:"file_path"`
}
