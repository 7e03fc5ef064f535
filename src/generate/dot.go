package generate

import (
	"fmt"
	"strings"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/resolve"
)

// dotGenerator writes the dependency graph out in Graphviz format, with the targets of each file grouped together.
type dotGenerator struct{}

func (dotGenerator) Name() string {
	return "dot"
}

func (dotGenerator) InputInfo() core.InputInfo {
	return core.InputInfo{SupportsMultipleToolsets: true}
}

func (g dotGenerator) GenerateOutput(result *resolve.Result, params Params) error {
	return writeOutput(params, params.Flag("output_name", "descgen")+".dot", []byte(g.render(result)))
}

func (dotGenerator) render(result *resolve.Result) string {
	var files []string
	byFile := map[string][]core.QualifiedTarget{}
	for _, t := range result.FlatList {
		qt := core.ParseQualifiedTarget(t)
		if _, present := byFile[qt.File]; !present {
			files = append(files, qt.File)
		}
		byFile[qt.File] = append(byFile[qt.File], qt)
	}
	var sb strings.Builder
	sb.WriteString("digraph D {\n")
	sb.WriteString("  fontsize=8\n")
	sb.WriteString("  node [fontsize=8]\n")
	for _, file := range files {
		targets := byFile[file]
		if len(targets) == 1 {
			fmt.Fprintf(&sb, "  %q [shape=box, label=%q]\n", targets[0].String(), file+"\n"+label(targets[0]))
			continue
		}
		fmt.Fprintf(&sb, "  subgraph %q {\n", "cluster_"+file)
		fmt.Fprintf(&sb, "    label = %q\n", file)
		for _, t := range targets {
			fmt.Fprintf(&sb, "    %q [label=%q]\n", t.String(), label(t))
		}
		sb.WriteString("  }\n")
	}
	for _, t := range result.FlatList {
		deps, _ := result.Targets[t].GetList("dependencies")
		for _, dep := range deps.Strings() {
			fmt.Fprintf(&sb, "  %q -> %q\n", t, dep)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// label returns the label shown for a target, which includes its toolset if it isn't the default one.
func label(t core.QualifiedTarget) string {
	if t.Toolset == "" || t.Toolset == "target" {
		return t.Name
	}
	return t.Name + "#" + t.Toolset
}
