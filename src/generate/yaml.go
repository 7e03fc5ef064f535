package generate

import (
	"bytes"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/please-build/descgen/src/core"
	"github.com/please-build/descgen/src/expand"
	"github.com/please-build/descgen/src/resolve"
	"github.com/please-build/descgen/src/targets"
)

// yamlGenerator writes the whole resolved graph out as a single YAML document.
type yamlGenerator struct{}

type yamlOutput struct {
	FlatList   []string               `yaml:"flat_list"`
	Targets    map[string]interface{} `yaml:"targets"`
	BuildFiles map[string][]string    `yaml:"build_files,omitempty"`
	Variables  map[string]interface{} `yaml:"variables,omitempty"`
}

func (yamlGenerator) Name() string {
	return "yaml"
}

func (yamlGenerator) InputInfo() core.InputInfo {
	return core.InputInfo{
		SupportsMultipleToolsets:               true,
		WantsStaticLibraryDependenciesAdjusted: true,
	}
}

func (yamlGenerator) CalculateVariables(vars expand.Variables, params Params) {
	flavor, _ := vars["OS"].(core.String)
	vars["EXECUTABLE_PREFIX"] = core.String("")
	vars["STATIC_LIB_PREFIX"] = core.String("lib")
	vars["SHARED_LIB_PREFIX"] = core.String("lib")
	switch flavor {
	case "win":
		vars["EXECUTABLE_SUFFIX"] = core.String(".exe")
		vars["STATIC_LIB_PREFIX"] = core.String("")
		vars["STATIC_LIB_SUFFIX"] = core.String(".lib")
		vars["SHARED_LIB_PREFIX"] = core.String("")
		vars["SHARED_LIB_SUFFIX"] = core.String(".dll")
	case "mac":
		vars["EXECUTABLE_SUFFIX"] = core.String("")
		vars["STATIC_LIB_SUFFIX"] = core.String(".a")
		vars["SHARED_LIB_SUFFIX"] = core.String(".dylib")
	default:
		vars["EXECUTABLE_SUFFIX"] = core.String("")
		vars["STATIC_LIB_SUFFIX"] = core.String(".a")
		vars["SHARED_LIB_SUFFIX"] = core.String(".so")
	}
	outputDir := params.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	vars["PRODUCT_DIR"] = core.String(filepath.ToSlash(outputDir))
	vars["INTERMEDIATE_DIR"] = core.String(filepath.ToSlash(filepath.Join(outputDir, "obj")))
}

func (g yamlGenerator) GenerateOutput(result *resolve.Result, params Params) error {
	contents, err := g.marshal(result, params)
	if err != nil {
		return err
	}
	return writeOutput(params, params.Flag("output_name", "descgen")+".yaml", contents)
}

func (yamlGenerator) marshal(result *resolve.Result, params Params) ([]byte, error) {
	out := yamlOutput{
		FlatList:   result.FlatList,
		Targets:    make(map[string]interface{}, len(result.Targets)),
		BuildFiles: map[string][]string{},
	}
	for name, target := range result.Targets {
		out.Targets[name] = core.Interface(target)
	}
	for file, data := range result.Data {
		if targets.IsTargetFile(data) {
			included, _ := data.GetList("included_files")
			out.BuildFiles[file] = included.Strings()
		}
	}
	if params.Flag("include_variables", "0") != "0" {
		out.Variables = map[string]interface{}{}
		for file, data := range result.Data {
			if vars, present := data.GetMap("variables"); present {
				out.Variables[file] = core.Interface(vars)
			}
		}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
