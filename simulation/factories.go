package simulation

import (
	"fmt"

	"diffusion-sim/expiration"
	"diffusion-sim/model"
	"diffusion-sim/propagation"
	"diffusion-sim/selection"
	"diffusion-sim/stop"
	"diffusion-sim/update"
)

// scenario runs are keyed by int64 users and pieces
type (
	SelectionFactory   func(cfg MechanismConfig, graph model.Graph[int64]) (model.SelectionMechanism[int64, int64], error)
	PropagationFactory func(cfg MechanismConfig) (model.PropagationMechanism[int64, int64], error)
	UpdateFactory      func(cfg MechanismConfig) (model.UpdateMechanism[int64], error)
	ExpirationFactory  func(cfg MechanismConfig) (model.ExpirationMechanism[int64, int64], error)
	StopFactory        func(cfg MechanismConfig) (model.StopCondition[int64, int64], error)
)

var SELECTION_FACTORY = GetDefaultSelectionFactoryDefs()
var PROPAGATION_FACTORY = GetDefaultPropagationFactoryDefs()
var UPDATE_FACTORY = GetDefaultUpdateFactoryDefs()
var EXPIRATION_FACTORY = GetDefaultExpirationFactoryDefs()
var STOP_FACTORY = GetDefaultStopFactoryDefs()

func orientationOf(cfg MechanismConfig) (model.Orientation, error) {
	o, err := model.ParseOrientation(cfg.Orientation)
	if err != nil {
		return o, fmt.Errorf("failed to build %s: %w", cfg.Type, err)
	}
	return o, nil
}

func singleChild(cfg MechanismConfig) (MechanismConfig, error) {
	if len(cfg.Children) != 1 {
		return MechanismConfig{}, fmt.Errorf("%s needs exactly one child, got %d", cfg.Type, len(cfg.Children))
	}
	return cfg.Children[0], nil
}

func GetDefaultSelectionFactoryDefs() map[string]SelectionFactory {
	ret := map[string]SelectionFactory{

		"Count": func(cfg MechanismConfig, _ model.Graph[int64]) (model.SelectionMechanism[int64, int64], error) {
			return selection.NewCount[int64, int64](
				cfg.Int("own", selection.All),
				cfg.Int("received", 1),
				cfg.Int("repropagated", selection.None),
			), nil
		},

		"Probability": func(cfg MechanismConfig, _ model.Graph[int64]) (model.SelectionMechanism[int64, int64], error) {
			return selection.NewProbability[int64, int64](
				cfg.Int("own", selection.All),
				cfg.Float("prob_received", 0.5),
				cfg.Float("prob_repropagated", 0),
			), nil
		},

		"IndependentCascade": func(cfg MechanismConfig, _ model.Graph[int64]) (model.SelectionMechanism[int64, int64], error) {
			return selection.NewIndependentCascade[int64, int64](
				cfg.Float("prob", 0.1),
				cfg.Int("own", selection.All),
				cfg.Int("repropagated", selection.None),
			), nil
		},

		"WeightedIndependentCascade": func(cfg MechanismConfig, graph model.Graph[int64]) (model.SelectionMechanism[int64, int64], error) {
			o, err := orientationOf(cfg)
			if err != nil {
				return nil, err
			}
			return selection.NewWeightedIndependentCascade[int64, int64](
				graph, o,
				cfg.Int("own", selection.All),
				cfg.Int("repropagated", selection.None),
			), nil
		},

		"Recency": func(cfg MechanismConfig, _ model.Graph[int64]) (model.SelectionMechanism[int64, int64], error) {
			return selection.NewRecency[int64, int64](
				cfg.Int("own", selection.All),
				cfg.Int("received", 1),
				cfg.Int("max_age", -1),
			), nil
		},
	}

	ret["ActiveOnly"] = func(cfg MechanismConfig, graph model.Graph[int64]) (model.SelectionMechanism[int64, int64], error) {
		child, err := singleChild(cfg)
		if err != nil {
			return nil, err
		}
		f, ok := ret[child.Type]
		if !ok {
			return nil, fmt.Errorf("unknown selection mechanism %q", child.Type)
		}
		inner, err := f(child, graph)
		if err != nil {
			return nil, err
		}
		return selection.NewActiveOnly(inner), nil
	}

	return ret
}

func GetDefaultPropagationFactoryDefs() map[string]PropagationFactory {
	gossip := func(build func(int, model.Orientation) *propagation.Gossip[int64, int64]) PropagationFactory {
		return func(cfg MechanismConfig) (model.PropagationMechanism[int64, int64], error) {
			o, err := orientationOf(cfg)
			if err != nil {
				return nil, err
			}
			return build(cfg.Int("wait_time", 0), o), nil
		}
	}

	return map[string]PropagationFactory{

		"Neighborhood": func(cfg MechanismConfig) (model.PropagationMechanism[int64, int64], error) {
			o, err := orientationOf(cfg)
			if err != nil {
				return nil, err
			}
			return propagation.NewNeighborhood[int64, int64](o), nil
		},

		"PullPush": gossip(propagation.NewPullPush[int64, int64]),
		"Push":     gossip(propagation.NewPush[int64, int64]),
		"Pull":     gossip(propagation.NewPull[int64, int64]),
	}
}

func GetDefaultUpdateFactoryDefs() map[string]UpdateFactory {
	fixed := func(m model.UpdateMechanism[int64]) UpdateFactory {
		return func(MechanismConfig) (model.UpdateMechanism[int64], error) { return m, nil }
	}
	return map[string]UpdateFactory{
		"Newest":             fixed(update.Newest[int64]{}),
		"Oldest":             fixed(update.Oldest[int64]{}),
		"Merge":              fixed(update.Merge[int64]{}),
		"IndependentCascade": fixed(update.IndependentCascade[int64]{}),
	}
}

func GetDefaultExpirationFactoryDefs() map[string]ExpirationFactory {
	return map[string]ExpirationFactory{

		"Infinite": func(MechanismConfig) (model.ExpirationMechanism[int64, int64], error) {
			return expiration.Infinite[int64, int64]{}, nil
		},

		"Timed": func(cfg MechanismConfig) (model.ExpirationMechanism[int64, int64], error) {
			return expiration.NewTimed[int64, int64](int64(cfg.Int("max_time", 1))), nil
		},

		"ExponentialDecay": func(cfg MechanismConfig) (model.ExpirationMechanism[int64, int64], error) {
			return expiration.NewExponentialDecay[int64, int64](cfg.Float("half_life", 1)), nil
		},

		"NotReallyRepropagated": func(MechanismConfig) (model.ExpirationMechanism[int64, int64], error) {
			return expiration.NotReallyRepropagated[int64, int64]{}, nil
		},

		"AllNotPropagated": func(MechanismConfig) (model.ExpirationMechanism[int64, int64], error) {
			return expiration.AllNotPropagated[int64, int64]{}, nil
		},
	}
}

func GetDefaultStopFactoryDefs() map[string]StopFactory {
	ret := map[string]StopFactory{

		"NumIter": func(cfg MechanismConfig) (model.StopCondition[int64, int64], error) {
			return stop.NewNumIter[int64, int64](cfg.Int("limit", 100)), nil
		},

		"NoMoreNew": func(MechanismConfig) (model.StopCondition[int64, int64], error) {
			return stop.NoMoreNew[int64, int64]{}, nil
		},

		"NoMorePropagated": func(MechanismConfig) (model.StopCondition[int64, int64], error) {
			return stop.NoMorePropagated[int64, int64]{}, nil
		},

		"MaxTimestamp": func(cfg MechanismConfig) (model.StopCondition[int64, int64], error) {
			return stop.NewMaxTimestamp[int64, int64](int64(cfg.Float("max", 0))), nil
		},

		"TotalPropagated": func(cfg MechanismConfig) (model.StopCondition[int64, int64], error) {
			return stop.NewTotalPropagated[int64, int64](int64(cfg.Float("threshold", 0))), nil
		},
	}

	children := func(cfg MechanismConfig) ([]model.StopCondition[int64, int64], error) {
		list := make([]model.StopCondition[int64, int64], 0, len(cfg.Children))
		for _, child := range cfg.Children {
			f, ok := ret[child.Type]
			if !ok {
				return nil, fmt.Errorf("unknown stop condition %q", child.Type)
			}
			c, err := f(child)
			if err != nil {
				return nil, err
			}
			list = append(list, c)
		}
		return list, nil
	}

	ret["Any"] = func(cfg MechanismConfig) (model.StopCondition[int64, int64], error) {
		list, err := children(cfg)
		return stop.Any[int64, int64](list), err
	}
	ret["All"] = func(cfg MechanismConfig) (model.StopCondition[int64, int64], error) {
		list, err := children(cfg)
		return stop.All[int64, int64](list), err
	}

	return ret
}

func lookup[F any](kind string, factory map[string]F, name string) (F, error) {
	f, ok := factory[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("unknown %s mechanism %q", kind, name)
	}
	return f, nil
}

// BuildProtocol resolves every mechanism of the config through the factory
// maps
func BuildProtocol(cfg ProtocolConfig, graph model.Graph[int64]) (model.Protocol[int64, int64], model.StopCondition[int64, int64], error) {
	var protocol model.Protocol[int64, int64]

	sf, err := lookup("selection", SELECTION_FACTORY, cfg.Selection.Type)
	if err != nil {
		return protocol, nil, err
	}
	if protocol.Selection, err = sf(cfg.Selection, graph); err != nil {
		return protocol, nil, fmt.Errorf("failed to build selection: %w", err)
	}

	pf, err := lookup("propagation", PROPAGATION_FACTORY, cfg.Propagation.Type)
	if err != nil {
		return protocol, nil, err
	}
	if protocol.Propagation, err = pf(cfg.Propagation); err != nil {
		return protocol, nil, fmt.Errorf("failed to build propagation: %w", err)
	}

	uf, err := lookup("update", UPDATE_FACTORY, cfg.Update.Type)
	if err != nil {
		return protocol, nil, err
	}
	if protocol.Update, err = uf(cfg.Update); err != nil {
		return protocol, nil, fmt.Errorf("failed to build update: %w", err)
	}

	ef, err := lookup("expiration", EXPIRATION_FACTORY, cfg.Expiration.Type)
	if err != nil {
		return protocol, nil, err
	}
	if protocol.Expiration, err = ef(cfg.Expiration); err != nil {
		return protocol, nil, fmt.Errorf("failed to build expiration: %w", err)
	}

	stf, err := lookup("stop", STOP_FACTORY, cfg.Stop.Type)
	if err != nil {
		return protocol, nil, err
	}
	stopCond, err := stf(cfg.Stop)
	if err != nil {
		return protocol, nil, fmt.Errorf("failed to build stop condition: %w", err)
	}

	return protocol, stopCond, nil
}
