package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/nodegraph/internal/ctxlog"
)

// Validate checks that every kind carries the behaviors its capabilities
// call for and that every converter refers to a registered converter kind.
func (r *Registry) Validate(ctx context.Context) error {
	var result *multierror.Error
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		k := r.kinds[name]
		if k.Ports == nil {
			result = multierror.Append(result, fmt.Errorf("kind '%s': missing port function", name))
		}
		if k.Emit == nil {
			result = multierror.Append(result, fmt.Errorf("kind '%s': missing code generator", name))
		}
		switch {
		case k.IsFlow() && k.Exec == nil:
			result = multierror.Append(result, fmt.Errorf("kind '%s': flow kind without Exec", name))
		case !k.IsFlow() && k.Eval == nil:
			result = multierror.Append(result, fmt.Errorf("kind '%s': data kind without Eval", name))
		}
		if k.Caps.Has(EntryPoint) && k.Caps.Has(HasFlowInput) {
			result = multierror.Append(result, fmt.Errorf("kind '%s': entry points cannot have a flow input", name))
		}
		if k.Caps.Has(Impure) && k.IsFlow() {
			logger.Warn("Flow kind is marked impure, which has no effect.", "kind", name)
		}
	}

	for _, c := range r.converters {
		k, ok := r.kinds[c.Kind]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("converter '%s': unknown kind '%s'", c.Name, c.Kind))
			continue
		}
		if !k.Caps.Has(AutoConvert) {
			result = multierror.Append(result, fmt.Errorf("converter '%s': kind '%s' is not a converter kind", c.Name, c.Kind))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	return nil
}
