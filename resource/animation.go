package resource

import (
	"math"
	"slices"

	"github.com/hengadev/rtti"
	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/plain"
)

// Keyframe is one key of an animation curve. Tangents are slopes in value units
// per second.
type Keyframe struct {
	Time       float32
	Value      float32
	InTangent  float32
	OutTangent float32
}

// KeyframeCodec packs a keyframe into 16 bytes.
var KeyframeCodec = plain.Fixed(16,
	func(s *bitstream.Stream, k Keyframe) {
		s.WriteFloat32(k.Time)
		s.WriteFloat32(k.Value)
		s.WriteFloat32(k.InTangent)
		s.WriteFloat32(k.OutTangent)
	},
	func(s *bitstream.Stream) (Keyframe, error) {
		var k Keyframe
		for _, dst := range []*float32{&k.Time, &k.Value, &k.InTangent, &k.OutTangent} {
			v, err := s.ReadFloat32()
			if err != nil {
				return Keyframe{}, err
			}
			*dst = v
		}
		return k, nil
	},
)

// curveCache holds the cubic coefficients of the segment last evaluated. It is
// derived state and never persisted.
type curveCache struct {
	key        int
	start, end float32
	coeffs     [4]float32
}

func (c *curveCache) reset() {
	*c = curveCache{key: -1, start: float32(math.Inf(1))}
}

// AnimationCurve is a cubic Hermite curve over sorted keyframes.
//
// Evaluate caches the segment it last used, so a curve must not be evaluated from
// several goroutines at once.
type AnimationCurve struct {
	Keyframes []Keyframe

	cache curveCache
}

// NewAnimationCurve creates a curve from keys, sorting them by time.
func NewAnimationCurve(keys ...Keyframe) *AnimationCurve {
	c := &AnimationCurve{Keyframes: slices.Clone(keys)}
	c.sortKeys()
	c.cache.reset()
	return c
}

func (*AnimationCurve) TypeID() rtti.TypeID { return TypeIDAnimationCurve }

func (c *AnimationCurve) sortKeys() {
	slices.SortStableFunc(c.Keyframes, func(a, b Keyframe) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
}

// AfterDecode drops any cached evaluation state.
func (c *AnimationCurve) AfterDecode() error {
	c.sortKeys()
	c.cache.reset()
	return nil
}

// Length returns the time of the last key.
func (c *AnimationCurve) Length() float32 {
	if len(c.Keyframes) == 0 {
		return 0
	}
	return c.Keyframes[len(c.Keyframes)-1].Time
}

// Evaluate returns the curve value at time t. Times outside the key range clamp to
// the first or last key.
func (c *AnimationCurve) Evaluate(t float32) float32 {
	keys := c.Keyframes
	switch {
	case len(keys) == 0:
		return 0
	case len(keys) == 1 || t <= keys[0].Time:
		return keys[0].Value
	case t >= keys[len(keys)-1].Time:
		return keys[len(keys)-1].Value
	}

	if c.cache.key < 0 || t < c.cache.start || t >= c.cache.end {
		c.fillCache(t)
	}
	u := (t - c.cache.start) / (c.cache.end - c.cache.start)
	k := c.cache.coeffs
	return ((k[0]*u+k[1])*u+k[2])*u + k[3]
}

func (c *AnimationCurve) fillCache(t float32) {
	keys := c.Keyframes
	// first key strictly after t; the range checks in Evaluate keep i in [1, len-1]
	i, _ := slices.BinarySearchFunc(keys, t, func(k Keyframe, t float32) int {
		if k.Time <= t {
			return -1
		}
		return 1
	})
	left, right := keys[i-1], keys[i]

	dt := right.Time - left.Time
	p0, p1 := left.Value, right.Value
	m0, m1 := left.OutTangent*dt, right.InTangent*dt

	c.cache = curveCache{
		key:   i - 1,
		start: left.Time,
		end:   right.Time,
		coeffs: [4]float32{
			2*p0 - 2*p1 + m0 + m1,
			-3*p0 + 3*p1 - 2*m0 - m1,
			m0,
			p0,
		},
	}
}

func animationCurveType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("AnimationCurve", TypeIDAnimationCurve,
		func() *AnimationCurve { return NewAnimationCurve() },
		rtti.PlainArrayField("keyframes", 0, KeyframeCodec,
			func(c *AnimationCurve) []Keyframe { return c.Keyframes },
			func(c *AnimationCurve, v []Keyframe) { c.Keyframes = v }),
	)
}

// AnimationClip groups the curves of one animation.
type AnimationClip struct {
	Name   string
	Curves []*AnimationCurve
}

func (*AnimationClip) TypeID() rtti.TypeID { return TypeIDAnimationClip }

// Length returns the length of the longest curve.
func (a *AnimationClip) Length() float32 {
	var n float32
	for _, c := range a.Curves {
		if c != nil {
			n = max(n, c.Length())
		}
	}
	return n
}

func animationClipType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("AnimationClip", TypeIDAnimationClip,
		func() *AnimationClip { return &AnimationClip{} },
		rtti.PlainField("name", 0, plain.String,
			func(a *AnimationClip) string { return a.Name },
			func(a *AnimationClip, v string) { a.Name = v }),
		rtti.ReflectableArrayField("curves", 1,
			func(a *AnimationClip) []*AnimationCurve { return a.Curves },
			func(a *AnimationClip, v []*AnimationCurve) { a.Curves = v }),
	)
}
