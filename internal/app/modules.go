package app

import (
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/modules/core"
	"github.com/specialistvlad/nodegraph/modules/env_vars"
	"github.com/specialistvlad/nodegraph/modules/print"
)

// coreModules is the definitive list of all node kinds that are compiled
// into the nodegraph binary.
var coreModules = []registry.Module{
	&core.Module{},
	&print.Module{},
	&env_vars.Module{},
}
