/*
Package cmspipe is a color management engine that converts pixel buffers
between color representations.

A transform is built from a pipeline of stages (tone curves, matrices,
color lookup tables and custom evaluators) together with the formats of the
source and destination buffers. On creation the pipeline is simplified and,
when possible, replaced by a specialized evaluator, after which the
transform may be used from any number of goroutines.

Pipelines come either from the caller, see [Context.CreateTransform], or
from a chain of profiles linked by the handler registered for the rendering
intent, see [Context.CreateMultiprofileTransform]. The pluggable parts of
the engine (parametric curve formulas, interpolators, formatters,
optimizations and intent handlers) live in a [Context].
*/
package cmspipe

import "fmt"

type CMSVersion struct {
	Major, Minor, Patch uint
}

func (v CMSVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v CMSVersion) Equal(o CMSVersion) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

func (v CMSVersion) After(o CMSVersion) bool {
	switch {
	case v.Major != o.Major:
		return v.Major > o.Major
	case v.Minor != o.Minor:
		return v.Minor > o.Minor
	}
	return v.Patch > o.Patch
}

func (v CMSVersion) Before(o CMSVersion) bool {
	return !v.Equal(o) && !v.After(o)
}

var Version = CMSVersion{0, 9, 0}
