package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kovidgoyal/cmspipe/prism/cmserr"
	"github.com/kovidgoyal/cmspipe/prism/curve"
	"github.com/kovidgoyal/cmspipe/types"
)

var _ = fmt.Print

// Pipeline is an ordered sequence of stages where every stage consumes the
// output of the one before it. The channel counts of adjacent stages always
// agree, mutations that would break that fail with a configuration error.
type Pipeline struct {
	in, out int
	stages  []Stage
}

// New returns an empty pipeline. An empty pipeline is the identity over
// its input channels.
func New(in, out int) *Pipeline {
	return &Pipeline{in: in, out: out}
}

// FromStages builds a pipeline out of stages, taking ownership of them.
func FromStages(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, cmserr.Configurationf("pipeline.FromStages", "no stages")
	}
	i, _ := stages[0].IOSig()
	_, o := stages[len(stages)-1].IOSig()
	ans := New(i, o)
	if err := ans.Append(stages...); err != nil {
		return nil, err
	}
	return ans, nil
}

func (p *Pipeline) Len() int { return len(p.stages) }

// IOSig returns the channel counts: the input of the first stage and the
// output of the last one.
func (p *Pipeline) IOSig() (in, out int) { return p.in, p.out }

// Stages returns the stages in order. The slice is a copy, the stages are
// not.
func (p *Pipeline) Stages() []Stage { return slices.Clone(p.stages) }

func (p *Pipeline) Stage(i int) Stage { return p.stages[i] }

func (p *Pipeline) bless() {
	if len(p.stages) > 0 {
		p.in, _ = p.stages[0].IOSig()
		_, p.out = p.stages[len(p.stages)-1].IOSig()
	}
}

func junction_error(op string, idx int, a, b Stage) error {
	_, ao := a.IOSig()
	bi, _ := b.IOSig()
	return cmserr.Configurationf(op, "channel mismatch at position %d: %s outputs %d channels but %s takes %d", idx, a, ao, b, bi)
}

func check_sequence(op string, s []Stage) error {
	for i := 1; i < len(s); i++ {
		_, ao := s[i-1].IOSig()
		bi, _ := s[i].IOSig()
		if ao != bi {
			return junction_error(op, i, s[i-1], s[i])
		}
	}
	return nil
}

// Insert places stages at position idx, 0 <= idx <= Len(). On error the
// pipeline is unchanged and the stages must not be reused.
func (p *Pipeline) Insert(idx int, stages ...Stage) error {
	const op = "pipeline.Insert"
	if idx < 0 || idx > len(p.stages) {
		return cmserr.Configurationf(op, "cannot insert at %d into a pipeline of %d stages", idx, len(p.stages))
	}
	for i, s := range stages {
		if s == nil {
			return cmserr.Configurationf(op, "stage %d is nil", i)
		}
	}
	q := slices.Insert(slices.Clone(p.stages), idx, stages...)
	if err := check_sequence(op, q); err != nil {
		return err
	}
	p.stages = q
	p.bless()
	return nil
}

func (p *Pipeline) Append(stages ...Stage) error  { return p.Insert(len(p.stages), stages...) }
func (p *Pipeline) Prepend(stages ...Stage) error { return p.Insert(0, stages...) }

// Remove unlinks the stage at idx and returns it.
func (p *Pipeline) Remove(idx int) (Stage, error) {
	const op = "pipeline.Remove"
	if idx < 0 || idx >= len(p.stages) {
		return nil, cmserr.Configurationf(op, "no stage at %d in a pipeline of %d stages", idx, len(p.stages))
	}
	q := slices.Delete(slices.Clone(p.stages), idx, idx+1)
	if err := check_sequence(op, q); err != nil {
		return nil, err
	}
	ans := p.stages[idx]
	p.stages = q
	if len(q) == 0 {
		in, _ := ans.IOSig()
		p.in, p.out = in, in
	}
	p.bless()
	return ans, nil
}

// Cat appends clones of the stages of other.
func (p *Pipeline) Cat(other *Pipeline) error {
	if len(other.stages) == 0 {
		if len(p.stages) == 0 && p.in == 0 && p.out == 0 {
			p.in, p.out = other.in, other.out
		}
		return nil
	}
	c := make([]Stage, len(other.stages))
	for i, s := range other.stages {
		c[i] = s.Clone()
	}
	return p.Append(c...)
}

func (p *Pipeline) Clone() *Pipeline {
	ans := &Pipeline{in: p.in, out: p.out, stages: make([]Stage, len(p.stages))}
	for i, s := range p.stages {
		ans.stages[i] = s.Clone()
	}
	return ans
}

// Eval runs in through every stage. in must hold the pipeline's input
// channels, out its output channels.
func (p *Pipeline) Eval(in, out []float32) {
	if len(p.stages) == 0 {
		copy(out[:p.in], in[:p.in])
		return
	}
	var a, b [types.MaxChannels]float32
	src, dst := a[:], b[:]
	copy(src, in[:p.in])
	for _, s := range p.stages {
		s.Eval(src, dst)
		src, dst = dst, src
	}
	copy(out[:p.out], src)
}

// Eval16 evaluates the pipeline in the 16 bit domain.
func (p *Pipeline) Eval16(in, out []uint16) {
	var fi, fo [types.MaxChannels]float32
	for i, v := range in[:p.in] {
		fi[i] = float32(v) / 0xffff
	}
	p.Eval(fi[:], fo[:])
	n := p.out
	if len(p.stages) == 0 {
		n = p.in
	}
	for i, v := range fo[:n] {
		out[i] = curve.QuantizeFloat(v)
	}
}

// CheckAndRetrieve reports whether the pipeline consists of exactly the
// given kinds of stage, in order, returning the stages when it does.
func (p *Pipeline) CheckAndRetrieve(kinds ...Kind) ([]Stage, bool) {
	if len(kinds) != len(p.stages) {
		return nil, false
	}
	for i, k := range kinds {
		if p.stages[i].Kind() != k {
			return nil, false
		}
	}
	return p.Stages(), true
}

// Has is true when any stage is of kind k.
func (p *Pipeline) Has(k Kind) bool {
	return slices.ContainsFunc(p.stages, func(s Stage) bool { return s.Kind() == k })
}

func stages_as_string(s ...Stage) string {
	items := make([]string, len(s))
	for i, s := range s {
		items[i] = s.String()
	}
	return strings.Join(items, " → ")
}

func (p *Pipeline) String() string {
	if len(p.stages) == 0 {
		return fmt.Sprintf("Pipeline{%d→%d empty}", p.in, p.out)
	}
	return stages_as_string(p.stages...)
}
