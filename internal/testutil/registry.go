package testutil

import (
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/typecache"
	"github.com/specialistvlad/nodegraph/modules/core"
	"github.com/specialistvlad/nodegraph/modules/env_vars"
	"github.com/specialistvlad/nodegraph/modules/print"
)

// NewRegistry returns a registry with the built-in modules loaded and its
// own type cache, so tests do not share converter lookups.
func NewRegistry() *registry.Registry {
	r := registry.New(registry.WithCache(typecache.New()))
	r.Load(&core.Module{}, &print.Module{}, &env_vars.Module{})
	return r
}
