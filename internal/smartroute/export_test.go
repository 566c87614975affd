package smartroute

import "github.com/kidroute/kidroute/internal/route"

// ReplaceGenerator swaps the generator of kind on e.
func ReplaceGenerator(e *Engine, kind route.Kind, gen Generator) {
	for i := range e.generators {
		if e.generators[i].kind == kind {
			e.generators[i].gen = gen
		}
	}
}
