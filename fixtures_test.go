package rtti

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/plain"
)

const (
	widgetTypeID TypeID = 101
	partTypeID   TypeID = 102
	hookedTypeID TypeID = 103
)

type point struct {
	X, Y int32
}

var pointCodec = plain.Fixed(8,
	func(s *bitstream.Stream, p point) {
		s.WriteInt32(p.X)
		s.WriteInt32(p.Y)
	},
	func(s *bitstream.Stream) (point, error) {
		x, err := s.ReadInt32()
		if err != nil {
			return point{}, err
		}
		y, err := s.ReadInt32()
		return point{X: x, Y: y}, err
	},
)

type widget struct {
	Name    string
	Count   uint32
	Scale   float64
	Tags    []string
	Blob    []byte
	Main    *part
	Shared  *part
	Alias   *part
	Parts   []*part
	ID      uuid.UUID
	Origin  point
	Created time.Time

	// not persisted by widgetType; newer descriptors map it to field 50
	Extra string
}

func (*widget) TypeID() TypeID { return widgetTypeID }

type part struct {
	Label  string
	Weight uint16
	Next   *part
	Sub    *part
}

func (*part) TypeID() TypeID { return partTypeID }

func widgetFields() []*FieldDescriptor {
	return []*FieldDescriptor{
		PlainField("name", 0, plain.String,
			func(w *widget) string { return w.Name },
			func(w *widget, v string) { w.Name = v }),
		PlainField("count", 1, plain.Uint32,
			func(w *widget) uint32 { return w.Count },
			func(w *widget, v uint32) { w.Count = v }),
		PlainField("scale", 2, plain.Float64,
			func(w *widget) float64 { return w.Scale },
			func(w *widget, v float64) { w.Scale = v }),
		PlainArrayField("tags", 3, plain.String,
			func(w *widget) []string { return w.Tags },
			func(w *widget, v []string) { w.Tags = v }),
		PlainField("blob", 4, plain.Bytes,
			func(w *widget) []byte { return w.Blob },
			func(w *widget, v []byte) { w.Blob = v }),
		ReflectableField("main", 5,
			func(w *widget) *part { return w.Main },
			func(w *widget, v *part) { w.Main = v }),
		ReferenceField("shared", 6,
			func(w *widget) *part { return w.Shared },
			func(w *widget, v *part) { w.Shared = v }),
		ReferenceField("alias", 7,
			func(w *widget) *part { return w.Alias },
			func(w *widget, v *part) { w.Alias = v }),
		ReflectableArrayField("parts", 8,
			func(w *widget) []*part { return w.Parts },
			func(w *widget, v []*part) { w.Parts = v }),
		PlainField("id", 9, plain.UUID,
			func(w *widget) uuid.UUID { return w.ID },
			func(w *widget, v uuid.UUID) { w.ID = v }),
		PlainField("origin", 10, pointCodec,
			func(w *widget) point { return w.Origin },
			func(w *widget, v point) { w.Origin = v }),
		PlainField("created", 11, plain.Time,
			func(w *widget) time.Time { return w.Created },
			func(w *widget, v time.Time) { w.Created = v }),
	}
}

func widgetType(extra ...*FieldDescriptor) *TypeDescriptor {
	return NewTypeDescriptor("widget", widgetTypeID,
		func() *widget { return &widget{} },
		append(widgetFields(), extra...)...)
}

// extraField is a field only newer descriptors of widget know about.
var extraField = PlainField("extra", 50, plain.String,
	func(w *widget) string { return w.Extra },
	func(w *widget, v string) { w.Extra = v })

func partType() *TypeDescriptor {
	return NewTypeDescriptor("part", partTypeID,
		func() *part { return &part{} },
		PlainField("label", 0, plain.String,
			func(p *part) string { return p.Label },
			func(p *part, v string) { p.Label = v }),
		PlainField("weight", 1, plain.Uint16,
			func(p *part) uint16 { return p.Weight },
			func(p *part, v uint16) { p.Weight = v }),
		ReferenceField("next", 2,
			func(p *part) *part { return p.Next },
			func(p *part, v *part) { p.Next = v }),
		ReflectableField("sub", 3,
			func(p *part) *part { return p.Sub },
			func(p *part, v *part) { p.Sub = v }),
	)
}

type hooked struct {
	Value         string
	Derived       string
	beforeEncodes int
	afterDecodes  int
}

func (*hooked) TypeID() TypeID { return hookedTypeID }

func (h *hooked) BeforeEncode() error {
	h.beforeEncodes++
	return nil
}

func (h *hooked) AfterDecode() error {
	h.afterDecodes++
	h.Derived = "derived:" + h.Value
	return nil
}

func hookedType() *TypeDescriptor {
	return NewTypeDescriptor("hooked", hookedTypeID,
		func() *hooked { return &hooked{} },
		PlainField("value", 0, plain.String,
			func(h *hooked) string { return h.Value },
			func(h *hooked, v string) { h.Value = v }),
	)
}

func newTestRegistry(t *testing.T, descs ...*TypeDescriptor) *Registry {
	t.Helper()
	if len(descs) == 0 {
		descs = []*TypeDescriptor{widgetType(), partType(), hookedType()}
	}
	reg := NewRegistry()
	for _, d := range descs {
		require.NoError(t, reg.Register(d))
	}
	return reg
}

func newTestSerializer(t *testing.T, reg *Registry, opts ...Option) *Serializer {
	t.Helper()
	s, err := New(append([]Option{WithRegistry(reg)}, opts...)...)
	require.NoError(t, err)
	return s
}

func sampleWidget() *widget {
	shared := &part{Label: "shared", Weight: 7}
	return &widget{
		Name:    "gizmo ü",
		Count:   3,
		Scale:   1.5,
		Tags:    []string{"a", "bé"},
		Blob:    []byte{0xDE, 0xAD},
		Main:    &part{Label: "main", Weight: 1, Sub: &part{Label: "leaf"}},
		Shared:  shared,
		Alias:   shared,
		Parts:   []*part{{Label: "p0"}, nil, {Label: "p2", Next: shared}},
		ID:      uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Origin:  point{X: -4, Y: 9},
		Created: time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC),
	}
}
