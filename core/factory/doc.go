// Package factory provides a small generic registry used to build strategies,
// metrics sinks and price sources from configuration. A module is described
// by a type string and a map of raw settings; each factory decodes the
// settings into its own typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[strategy.Strategy]()
//	reg.Register("threshold", func(conf map[string]any) (strategy.Strategy, error) {
//	    t := strategy.NewThreshold()
//	    if err := factory.Decode(conf, &t); err != nil {
//	        return nil, err
//	    }
//	    return t, t.Validate()
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "threshold", Conf: map[string]any{"low": 20}})
package factory
