package loaderplugin

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/calmjs/calmjs-webpack/internal/spec"
)

// LoaderKey is a sourcepath key that may carry a loader chain, such as
// "style!css" for "style!css!main.css".
type LoaderKey struct {
	Chain   string
	Modname string
}

// ParseLoaderKey splits s at its last "!".
func ParseLoaderKey(s string) LoaderKey {
	i := strings.LastIndex(s, "!")
	if i < 0 {
		return LoaderKey{Modname: s}
	}
	return LoaderKey{Chain: s[:i], Modname: s[i+1:]}
}

func (k LoaderKey) String() string {
	if k.Chain == "" {
		return k.Modname
	}
	return k.Chain + "!" + k.Modname
}

// Loaders returns the chain as individual loader names.
func (k LoaderKey) Loaders() []string {
	if k.Chain == "" {
		return nil
	}
	return strings.Split(k.Chain, "!")
}

// Normalize flattens a sourcepath keyed by LoaderKey into plain modnames.
// Keys with a loader chain record the chain in the spec's
// ModnameLoaderMap and lose the prefix; their values must not repeat it.
func Normalize(sp *spec.Spec, sourcepath map[LoaderKey]string) map[string]string {
	result := make(map[string]string, len(sourcepath))
	for key, path := range sourcepath {
		if key.Chain == "" {
			result[key.Modname] = path
			continue
		}
		sp.ModnameLoaderMap[key.Modname] = key.Loaders()
		result[key.Modname] = strings.TrimPrefix(path, key.Chain+"!")
	}
	return result
}

// UpdateRules appends one module rule per loader-processed modname, using
// alias to find the file webpack will see. Modnames without an alias are
// skipped with a warning.
func UpdateRules(sp *spec.Spec, alias map[string]string) {
	modnames := make([]string, 0, len(sp.ModnameLoaderMap))
	for modname := range sp.ModnameLoaderMap {
		modnames = append(modnames, modname)
	}
	sort.Strings(modnames)

	for _, modname := range modnames {
		loaders := sp.ModnameLoaderMap[modname]
		test, ok := alias[modname]
		if !ok {
			log.Warn().Str("modname", modname).Strs("loaders", loaders).Msg("no alias found for loader-processed module; no rule generated")
			continue
		}
		rule := spec.ModuleRule{Test: test, Loaders: loaders}
		if !hasRule(sp.WebpackModuleRules, rule) {
			sp.WebpackModuleRules = append(sp.WebpackModuleRules, rule)
		}
	}
}

func hasRule(rules []spec.ModuleRule, rule spec.ModuleRule) bool {
	for _, r := range rules {
		if r.Test == rule.Test && strings.Join(r.Loaders, "!") == strings.Join(rule.Loaders, "!") {
			return true
		}
	}
	return false
}
