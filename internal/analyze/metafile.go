package analyze

// metafile is the subset of the esbuild metafile read by the analyzer.
type metafile struct {
	Inputs  map[string]metafileInput  `json:"inputs"`
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []metafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

type metafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

type metafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]inputContrib `json:"inputs"`
	Imports    []metafileImport        `json:"imports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

type inputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Result describes what an artifact would be made of.
type Result struct {
	Artifact        string   `json:"artifact"`
	TotalBytes      int      `json:"total_bytes"`
	Modules         []Module `json:"modules"`
	ExternalImports []string `json:"external_imports"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Module is the contribution of one staged file.
type Module struct {
	// Modname is the name the module is aliased as, or the file path
	// relative to the build directory when it has none.
	Modname       string  `json:"modname"`
	Bytes         int     `json:"bytes"`
	BytesInOutput int     `json:"bytes_in_output"`
	Percentage    float64 `json:"percentage"`
	ImportCount   int     `json:"import_count"`
}
