package toolchain

import (
	"strings"

	"github.com/calmjs/calmjs-webpack/internal/jsast"
	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// moduleTable renders {"name": require("name"), ...} with one entry per
// line.
func moduleTable(names []string) string {
	if len(names) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for i, name := range names {
		quoted := jsast.QuoteString(name)
		b.WriteString(jsast.DefaultIndent + quoted + ": require(" + quoted + ")")
		if i < len(names)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// loaderModuleSource is the module holding the table of exported modules.
func loaderModuleSource(names []string) string {
	return "'use strict';\n\nmodule.exports = " + moduleTable(names) + ";\n"
}

const requireFunction = `exports.require = function(m, f) {
    if (m.map) {
        if (f) {
            f.apply(null, m.map(function(x) { return table[x] || externals[x]; }));
        }
    }
    else {
        return table[m] || externals[m];
    }
};
`

// bootstrapModuleSource is the entry module. When chained it falls back to
// the table of the artifact loaded before it; otherwise the table is
// inlined and nothing outside the artifact is consulted.
func bootstrapModuleSource(chained bool, names []string) string {
	var b strings.Builder
	b.WriteString("'use strict';\n\n")
	if chained {
		b.WriteString("var calmjs_bootstrap = require('" + spec.DefaultExport + "') || {};\n")
		b.WriteString("var externals = calmjs_bootstrap.modules || {};\n")
		b.WriteString("exports.modules = require('" + LoaderModule + "');\n")
	} else {
		b.WriteString("var externals = {};\n")
		b.WriteString("exports.modules = " + moduleTable(names) + ";\n")
	}
	b.WriteString("var table = exports.modules;\n")
	b.WriteString(requireFunction)
	return b.String()
}

// TestsModuleSource requires every test module so they share one bundle.
func TestsModuleSource(modnames []string) string {
	var b strings.Builder
	b.WriteString("'use strict';\n\n")
	for _, name := range modnames {
		b.WriteString("require(" + jsast.QuoteString(name) + ");\n")
	}
	return b.String()
}
