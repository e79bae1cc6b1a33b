// Package factory instantiates pluggable modules (solvers, metrics sinks,
// solve log stores) from configuration. A module is described by a type
// name and a map of raw settings which the registered factory decodes into
// its own typed struct.
//
//	reg := factory.NewRegistry[optimize.Solver]()
//	_ = reg.Register("simplex", func(conf map[string]any) (optimize.Solver, error) {
//	    var c struct{ MaxNodes int `json:"max_nodes"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newSolver(c.MaxNodes), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "simplex", Conf: map[string]any{"max_nodes": 500}})
package factory
