package core

import (
	"path/filepath"
	"strings"

	"github.com/please-build/descgen/src/fs"
)

// A QualifiedTarget identifies a target uniquely across all loaded files.
// Its canonical form is file:name#toolset, with the toolset segment omitted when empty.
type QualifiedTarget struct {
	File    string
	Name    string
	Toolset string
}

// ParseQualifiedTarget splits a target reference into its parts.
// Any of File and Toolset may be empty if the reference doesn't specify them.
func ParseQualifiedTarget(target string) QualifiedTarget {
	var qt QualifiedTarget
	if idx := strings.LastIndexByte(target, ':'); idx != -1 {
		qt.File = target[:idx]
		target = target[idx+1:]
	}
	if idx := strings.LastIndexByte(target, '#'); idx != -1 {
		qt.Toolset = target[idx+1:]
		target = target[:idx]
	}
	qt.Name = target
	return qt
}

// String returns the canonical form of this target.
func (qt QualifiedTarget) String() string {
	s := qt.File + ":" + qt.Name
	if qt.Toolset != "" {
		return s + "#" + qt.Toolset
	}
	return s
}

// IsWildcard returns true if this names every target (or every toolset) of its file.
func (qt QualifiedTarget) IsWildcard() bool {
	return qt.Name == "*" || qt.Toolset == "*"
}

// Dir returns the directory of the file declaring this target, or "." if it is at the root.
func (qt QualifiedTarget) Dir() string {
	if dir := fs.Dir(qt.File); dir != "" {
		return dir
	}
	return "."
}

// QualifiedTargetString returns the canonical form of a target from its parts.
func QualifiedTargetString(file, name, toolset string) string {
	return QualifiedTarget{File: file, Name: name, Toolset: toolset}.String()
}

// ResolveTarget resolves a target reference found in buildFile into a fully specified target.
// A file given in the reference is relative to buildFile's directory, and the result's file is
// made relative to the working directory (unless buildFile is absolute, in which case so is the result).
// A missing file defaults to buildFile and a missing toolset to the given toolset.
func ResolveTarget(buildFile, target, toolset string) QualifiedTarget {
	qt := ParseQualifiedTarget(target)
	if qt.File != "" && buildFile != "" {
		qt.File = filepath.Clean(filepath.Join(filepath.Dir(buildFile), qt.File))
		if !filepath.IsAbs(buildFile) && !filepath.IsAbs(qt.File) {
			qt.File = fs.RelativePath(qt.File, ".")
		}
	} else if qt.File == "" {
		qt.File = buildFile
	}
	if qt.Toolset == "" {
		qt.Toolset = toolset
	}
	return qt
}
