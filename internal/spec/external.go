package spec

import (
	"encoding/json"
	"fmt"
)

// ExternalTarget names a module under one module system, either as a single
// name or as a property path from the global scope.
type ExternalTarget []string

// MarshalJSON writes single names as plain strings, which webpack requires
// for amd.
func (t ExternalTarget) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

func (t *ExternalTarget) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*t = ExternalTarget{name}
		return nil
	}
	var path []string
	if err := json.Unmarshal(data, &path); err != nil {
		return fmt.Errorf("external target must be a string or a list of strings: %w", err)
	}
	*t = path
	return nil
}

// External is a webpack externals descriptor for the umd library target.
type External struct {
	Root      ExternalTarget `json:"root,omitempty"`
	AMD       ExternalTarget `json:"amd,omitempty"`
	CommonJS  ExternalTarget `json:"commonjs,omitempty"`
	CommonJS2 ExternalTarget `json:"commonjs2,omitempty"`
}

// Complete reports whether all four module systems are covered.
func (e External) Complete() bool {
	return len(e.Root) > 0 && len(e.AMD) > 0 && len(e.CommonJS) > 0 && len(e.CommonJS2) > 0
}

// BootstrapExternal points every module system at the shared module table
// published by a previously loaded artifact.
func BootstrapExternal() External {
	return External{
		Root:      ExternalTarget{DefaultExport},
		AMD:       ExternalTarget{DefaultExport},
		CommonJS:  ExternalTarget{"global", DefaultExport},
		CommonJS2: ExternalTarget{"global", DefaultExport},
	}
}

// ModuleExternal resolves name through the module table of a previously
// loaded artifact.
func ModuleExternal(name string) External {
	return External{
		Root:      ExternalTarget{DefaultExport, "modules", name},
		AMD:       ExternalTarget{DefaultExport, "modules", name},
		CommonJS:  ExternalTarget{"global", DefaultExport, "modules", name},
		CommonJS2: ExternalTarget{"global", DefaultExport, "modules", name},
	}
}
