// Package bindings supplies the standard PropertyBinding catalogue: a set
// of well-known devicetree property rules loaded from an embedded YAML
// document, plus the named additionalCheck and required closures the YAML
// refers to by name (spec §4.6, §9).
package bindings

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/devicetree-lang/dts-core/internal/types"
)

//go:embed standard.yaml
var standardYAML []byte

// yamlDoc mirrors standard.yaml's shape.
type yamlDoc struct {
	Bindings []yamlBinding `yaml:"bindings"`
}

type yamlBinding struct {
	Name            string   `yaml:"name"`
	Pattern         string   `yaml:"pattern"`
	TypeSpec        []string `yaml:"typeSpec"`
	List            bool     `yaml:"list"`
	Required        string   `yaml:"required"`
	Default         string   `yaml:"default"`
	Enum            []string `yaml:"enum"`
	AdditionalCheck string   `yaml:"additionalCheck"`
}

var typeNames = map[string]types.PropertyType{
	"empty":              types.Empty,
	"u32":                types.U32,
	"u64":                types.U64,
	"string":             types.String,
	"prop-encoded-array": types.PropEncodedArray,
	"stringlist":         types.Stringlist,
	"bytestring":         types.Bytestring,
	"unknown":            types.Unknown,
}

// requiredFuncs maps a YAML `required:` value that is not one of the three
// literal states to a RequirementFunc computed from the owning node.
var requiredFuncs = map[string]types.RequirementFunc{
	"unitAddress": requiredIfUnitAddress,
}

// additionalChecks maps a YAML `additionalCheck:` name to its Go
// implementation.
var additionalChecks = map[string]types.AdditionalCheckFunc{
	"interruptsExtended": interruptsExtendedCheck,
}

// Standard returns the built-in PropertyBinding catalogue, decoded fresh
// from the embedded YAML document on every call so callers can mutate
// their own copy freely.
func Standard() *types.Catalogue {
	var doc yamlDoc
	if err := yaml.Unmarshal(standardYAML, &doc); err != nil {
		// The embedded document is authored in this package and never
		// varies at runtime; a decode failure here is a build defect.
		panic(fmt.Sprintf("bindings: invalid standard.yaml: %v", err))
	}

	cat := types.NewCatalogue()
	for _, yb := range doc.Bindings {
		b, err := fromYAML(yb)
		if err != nil {
			panic(fmt.Sprintf("bindings: %s: %v", yb.Name, err))
		}
		cat.Register(b)
	}
	return cat
}

func fromYAML(yb yamlBinding) (*types.Binding, error) {
	b := &types.Binding{
		Name:    yb.Name,
		List:    yb.List,
		Default: yb.Default,
		Enum:    yb.Enum,
	}
	if yb.Pattern != "" {
		re, err := regexp.Compile(yb.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", yb.Pattern, err)
		}
		b.Pattern = re
	}
	for _, t := range yb.TypeSpec {
		pt, ok := typeNames[t]
		if !ok {
			return nil, fmt.Errorf("unknown typeSpec entry %q", t)
		}
		b.TypeSpec = append(b.TypeSpec, types.NewSlot(pt))
	}

	switch yb.Required {
	case "", "optional":
		b.Required = types.Const(types.RequirementOptional)
	case "required":
		b.Required = types.Const(types.RequirementRequired)
	case "omitted":
		b.Required = types.Const(types.RequirementOmitted)
	default:
		fn, ok := requiredFuncs[yb.Required]
		if !ok {
			return nil, fmt.Errorf("unknown required function %q", yb.Required)
		}
		b.Required = fn
	}

	if yb.AdditionalCheck != "" {
		fn, ok := additionalChecks[yb.AdditionalCheck]
		if !ok {
			return nil, fmt.Errorf("unknown additionalCheck %q", yb.AdditionalCheck)
		}
		b.AdditionalCheck = fn
	}
	return b, nil
}
