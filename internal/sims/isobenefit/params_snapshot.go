package isobenefit

import (
	"strconv"
	"strings"

	"futurb/internal/core"
)

// Parameters describes the configuration as grouped key/value pairs. Keys
// are the ones accepted by ApplyOverride.
func (c Config) Parameters() core.ParameterSnapshot {
	groups := []core.ParameterGroup{
		{
			Name: "Run",
			Params: []core.Parameter{
				intParam("max_iterations", "Max iterations", c.MaxIterations),
				floatParam("target_fraction", "Target fraction", c.TargetFraction),
				int64Param("seed", "Seed", c.Seed),
				intParam("workers", "Workers", c.Workers),
			},
		},
		{
			Name: "Rules",
			Params: []core.Parameter{
				listParam("rules", "Active rules", c.Rules),
				floatParam("max_walking_distance", "Max walking distance", c.MaxWalkingDistance),
				intParam("contiguity_radius", "Contiguity radius", c.ContiguityRadius),
				intParam("density_radius", "Density radius", c.DensityRadius),
				floatParam("density_cap", "Density cap", c.DensityCap),
				floatParam("centrality_distance", "Centrality distance", c.CentralityDistance),
				floatParam("min_long_green_span", "Min long green span", c.MinLongGreenSpan),
				floatParam("min_short_green_span", "Min short green span", c.MinShortGreenSpan),
				floatParam("min_green_area", "Min green area", c.MinGreenArea),
			},
		},
		{
			Name: "Selection",
			Params: []core.Parameter{
				stringParam("policy", "Policy", c.Policy),
				intParam("conversions_per_iteration", "Conversions per iteration", c.ConversionsPerIteration),
				floatParam("build_prob", "Build probability", c.BuildProb),
				floatParam("centrality_prob", "Centrality probability", c.CentralityProb),
				floatParam("centrality_threshold", "Centrality threshold", c.CentralityThreshold),
			},
		},
		{
			Name: "Density",
			Params: []core.Parameter{
				floatsParam("density_levels", "Density levels", c.DensityLevels),
				floatsParam("density_weights", "Density weights", c.DensityWeights),
			},
		},
	}
	return core.ParameterSnapshot{Groups: groups}
}

func intParam(key, label string, value int) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.Itoa(value),
	}
}

func int64Param(key, label string, value int64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeInt,
		Value: strconv.FormatInt(value, 10),
	}
}

func floatParam(key, label string, value float64) core.Parameter {
	return core.Parameter{
		Key:   key,
		Label: label,
		Type:  core.ParamTypeFloat,
		Value: strconv.FormatFloat(value, 'f', -1, 64),
	}
}

func stringParam(key, label, value string) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeString, Value: value}
}

func listParam(key, label string, values []string) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeList, Value: strings.Join(values, ",")}
}

func floatsParam(key, label string, values []float64) core.Parameter {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return listParam(key, label, parts)
}
