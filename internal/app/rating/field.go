package rating

import (
	"math"
	"math/rand"
	"time"
)

// FieldSource produces the synthetic participant field a virtual contest is
// ranked against. It is an injected dependency so tests can pin the field
// and assert exact deltas.
type FieldSource interface {
	Field() []int
}

const (
	defaultFieldSize   = 100
	defaultFieldMean   = 1200
	defaultFieldStdDev = 350
	defaultFieldFloor  = 800
)

// NormalField draws normally distributed ratings truncated below at Floor.
type NormalField struct {
	Size   int
	Mean   float64
	StdDev float64
	Floor  int
	rng    *rand.Rand
}

func NewNormalField() *NormalField {
	return &NormalField{
		Size:   defaultFieldSize,
		Mean:   defaultFieldMean,
		StdDev: defaultFieldStdDev,
		Floor:  defaultFieldFloor,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *NormalField) Field() []int {
	field := make([]int, f.Size)
	for i := range field {
		r := int(math.Round(f.rng.NormFloat64()*f.StdDev + f.Mean))
		if r < f.Floor {
			r = f.Floor
		}
		field[i] = r
	}
	return field
}

// FixedField replays a predetermined field, used in tests.
type FixedField []int

func (f FixedField) Field() []int { return f }

// Engine binds a field source so callers compute deltas without caring how
// the field is produced.
type Engine struct {
	Source FieldSource
}

func NewEngine(source FieldSource) Engine {
	if source == nil {
		source = NewNormalField()
	}
	return Engine{Source: source}
}

// Delta computes the bounded rating change for one virtual contest.
func (e Engine) Delta(performance, oldRating int) int {
	return RatingChange(performance, oldRating, e.Source.Field())
}
