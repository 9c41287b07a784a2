package core

import (
	"fmt"
	"io"
	"strings"
)

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeFloat denotes floating-point parameters.
	ParamTypeFloat ParamType = "float"
	// ParamTypeString denotes free-form or enumerated text parameters.
	ParamTypeString ParamType = "string"
	// ParamTypeList denotes comma separated list parameters.
	ParamTypeList ParamType = "list"
)

// Parameter describes a single tunable value exposed by a simulation.
type Parameter struct {
	Key         string
	Label       string
	Type        ParamType
	Value       string
	Description string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name    string
	Params  []Parameter
	Summary string
}

// ParameterSnapshot captures the current set of tunables exposed by a sim.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// Lookup finds a parameter by key.
func (s ParameterSnapshot) Lookup(key string) (Parameter, bool) {
	for _, g := range s.Groups {
		for _, p := range g.Params {
			if p.Key == key {
				return p, true
			}
		}
	}
	return Parameter{}, false
}

// WriteTo prints the snapshot as an indented key=value listing.
func (s ParameterSnapshot) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, g := range s.Groups {
		fmt.Fprintf(&b, "%s:\n", g.Name)
		for _, p := range g.Params {
			fmt.Fprintf(&b, "  %s=%s\n", p.Key, p.Value)
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
