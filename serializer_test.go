package rtti

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/plain"
)

// normalizeTimes checks the timestamps separately and clears them, so the rest of
// the graph can be compared with assert.Equal.
func normalizeTimes(t *testing.T, want, got *widget) {
	t.Helper()
	assert.True(t, want.Created.Equal(got.Created), "created: want %v, got %v", want.Created, got.Created)
	want.Created, got.Created = time.Time{}, time.Time{}
}

func TestSerializer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))
	in := sampleWidget()

	data, err := s.Serialize(ctx, in)
	require.NoError(t, err)

	obj, err := s.Deserialize(ctx, data, widgetTypeID)
	require.NoError(t, err)
	out, ok := obj.(*widget)
	require.True(t, ok, "got %T", obj)

	// shared instances stay shared
	require.NotNil(t, out.Shared)
	assert.Same(t, out.Shared, out.Alias)
	assert.Same(t, out.Shared, out.Parts[2].Next)
	assert.Nil(t, out.Parts[1])

	normalizeTimes(t, in, out)
	assert.Equal(t, in, out)
}

func TestSerializer_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	first, err := s.Serialize(ctx, sampleWidget())
	require.NoError(t, err)

	obj, err := s.Deserialize(ctx, first, widgetTypeID)
	require.NoError(t, err)

	second, err := s.Serialize(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSerializer_ReferenceCycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	a := &part{Label: "a"}
	b := &part{Label: "b", Next: a}
	a.Next = b

	data, err := s.Serialize(ctx, &widget{Shared: a})
	require.NoError(t, err)

	obj, err := s.Deserialize(ctx, data, widgetTypeID)
	require.NoError(t, err)

	got := obj.(*widget).Shared
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Label)
	assert.Equal(t, "b", got.Next.Label)
	assert.Same(t, got, got.Next.Next)
}

func TestSerializer_ReferenceBackToRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	root := &part{Label: "root"}
	child := &part{Label: "child", Next: root}
	root.Next = child

	data, err := s.Serialize(ctx, root)
	require.NoError(t, err)

	size, err := s.Size(root)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(data)), size)

	obj, err := s.Deserialize(ctx, data, partTypeID)
	require.NoError(t, err)

	out := obj.(*part)
	require.NotNil(t, out.Next)
	assert.Equal(t, "child", out.Next.Label)
	assert.Same(t, out, out.Next.Next)

	again, err := s.Serialize(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestSerializer_CyclicOwnershipFails(t *testing.T) {
	s := newTestSerializer(t, newTestRegistry(t))

	p := &part{Label: "loop"}
	p.Sub = p

	_, err := s.Serialize(context.Background(), &widget{Main: p})
	assert.ErrorIs(t, err, ErrCyclicOwnership)
	assert.True(t, IsProgrammingError(err))
}

func TestSerializer_NilAndEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	_, err := s.Serialize(ctx, nil)
	assert.ErrorIs(t, err, ErrNilObject)

	var typedNil *widget
	_, err = s.Serialize(ctx, typedNil)
	assert.ErrorIs(t, err, ErrNilObject)

	data, err := s.Serialize(ctx, &widget{})
	require.NoError(t, err)
	obj, err := s.Deserialize(ctx, data, widgetTypeID)
	require.NoError(t, err)

	out := obj.(*widget)
	assert.Nil(t, out.Main)
	assert.Nil(t, out.Shared)
	assert.NotNil(t, out.Tags, "empty sequences decode as empty, not nil")
	assert.Empty(t, out.Tags)
	assert.NotNil(t, out.Parts)
	assert.Empty(t, out.Parts)
}

func TestSerializer_UnknownRootType(t *testing.T) {
	st := bitstream.New()
	require.NoError(t, plain.WriteWithSizeHeader(st, func() error {
		st.WriteUint32(999)
		st.WriteUint16(0)
		return nil
	}))

	calls := 0
	reg := NewRegistry()
	require.NoError(t, reg.RegisterType(partTypeID, partType(), func() Reflectable {
		calls++
		return &part{}
	}))
	calls = 0 // registration validates the factory once

	s := newTestSerializer(t, reg)
	obj, err := s.Deserialize(context.Background(), st.Bytes(), 999)
	assert.ErrorIs(t, err, ErrUnknownTypeID)
	assert.True(t, IsDataError(err))
	assert.Nil(t, obj)
	assert.Zero(t, calls, "no factory may run for an unknown root")
}

func TestSerializer_UnknownNestedType(t *testing.T) {
	ctx := context.Background()
	data, err := newTestSerializer(t, newTestRegistry(t)).Serialize(ctx, sampleWidget())
	require.NoError(t, err)

	s := newTestSerializer(t, newTestRegistry(t, widgetType()))
	obj, err := s.Deserialize(ctx, data, widgetTypeID)
	assert.ErrorIs(t, err, ErrUnknownTypeID)
	assert.Nil(t, obj)
}

func TestSerializer_RootTypeMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	data, err := s.Serialize(ctx, &part{Label: "x"})
	require.NoError(t, err)

	_, err = s.Deserialize(ctx, data, widgetTypeID)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	obj, err := s.Deserialize(ctx, data, NoType)
	require.NoError(t, err)
	assert.Equal(t, &part{Label: "x"}, obj)
}

func TestSerializer_TruncatedInput(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	data, err := s.Serialize(ctx, sampleWidget())
	require.NoError(t, err)

	for n := 0; n < len(data); n++ {
		obj, err := s.Deserialize(ctx, data[:n], widgetTypeID)
		require.Error(t, err, "prefix of %d bytes", n)
		assert.True(t, IsDataError(err), "prefix of %d bytes: %v", n, err)
		assert.Nil(t, obj)
	}
}

func TestSerializer_TrailingBytes(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	data, err := s.Serialize(ctx, &part{Label: "x"})
	require.NoError(t, err)

	_, err = s.Deserialize(ctx, append(data, 0), partTypeID)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestSerializer_SkipsFieldsFromNewerWriters(t *testing.T) {
	ctx := context.Background()
	flags := PlainField("flags", 51, plain.Uint64,
		func(*widget) uint64 { return 0xFFFF },
		func(*widget, uint64) {})

	newer := newTestSerializer(t, newTestRegistry(t, widgetType(extraField, flags), partType()))
	in := sampleWidget()
	in.Extra = "only newer builds know this"

	data, err := newer.Serialize(ctx, in)
	require.NoError(t, err)

	older := newTestSerializer(t, newTestRegistry(t))
	obj, err := older.Deserialize(ctx, data, widgetTypeID)
	require.NoError(t, err)

	out := obj.(*widget)
	assert.Empty(t, out.Extra)
	in.Extra = ""
	normalizeTimes(t, in, out)
	assert.Equal(t, in, out)
}

func TestSerializer_MissingFieldsKeepDefaults(t *testing.T) {
	ctx := context.Background()
	older := newTestSerializer(t, newTestRegistry(t))
	data, err := older.Serialize(ctx, &widget{Name: "old"})
	require.NoError(t, err)

	defaults := NewTypeDescriptor("widget", widgetTypeID,
		func() *widget { return &widget{Extra: "default"} },
		append(widgetFields(), extraField)...)
	newer := newTestSerializer(t, newTestRegistry(t, defaults, partType()))

	obj, err := newer.Deserialize(ctx, data, widgetTypeID)
	require.NoError(t, err)
	assert.Equal(t, "old", obj.(*widget).Name)
	assert.Equal(t, "default", obj.(*widget).Extra)
}

func TestSerializer_SkipsFieldWithChangedLayout(t *testing.T) {
	ctx := context.Background()
	data, err := newTestSerializer(t, newTestRegistry(t)).Serialize(ctx, &widget{Name: "n", Count: 9})
	require.NoError(t, err)

	// field 1 turned from a fixed uint32 into a string
	fields := widgetFields()
	fields[1] = PlainField("count", 1, plain.String,
		func(w *widget) string { return w.Extra },
		func(w *widget, v string) { w.Extra = v })
	changed := NewTypeDescriptor("widget", widgetTypeID, func() *widget { return &widget{} }, fields...)

	obj, err := newTestSerializer(t, newTestRegistry(t, changed, partType())).Deserialize(ctx, data, widgetTypeID)
	require.NoError(t, err)
	assert.Equal(t, "n", obj.(*widget).Name)
	assert.Empty(t, obj.(*widget).Extra)
	assert.Zero(t, obj.(*widget).Count)
}

func TestSerializer_Hooks(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	in := &hooked{Value: "v"}
	data, err := s.Serialize(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, in.beforeEncodes)

	obj, err := s.Deserialize(ctx, data, hookedTypeID)
	require.NoError(t, err)
	out := obj.(*hooked)
	assert.Equal(t, 1, out.afterDecodes)
	assert.Equal(t, "derived:v", out.Derived)
}

func TestSerializer_SizeMatchesEncoding(t *testing.T) {
	s := newTestSerializer(t, newTestRegistry(t), WithSizeValidation(true))
	assert.True(t, s.ValidatesSizes())

	in := sampleWidget()
	n, err := s.Size(in)
	require.NoError(t, err)

	data, err := s.Serialize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int(n), len(data))
}

type lyingCodec struct{}

func (lyingCodec) Encode(s *bitstream.Stream, v string) error { return plain.String.Encode(s, v) }
func (lyingCodec) Decode(s *bitstream.Stream, v *string) error { return plain.String.Decode(s, v) }
func (lyingCodec) Size(string) (uint32, error)                 { return 1, nil }
func (lyingCodec) Dynamic() bool                               { return true }

func TestSerializer_SizeValidation(t *testing.T) {
	liar := NewTypeDescriptor("hooked", hookedTypeID,
		func() *hooked { return &hooked{} },
		PlainField("value", 0, plain.Codec[string](lyingCodec{}),
			func(h *hooked) string { return h.Value },
			func(h *hooked, v string) { h.Value = v }),
	)
	reg := newTestRegistry(t, liar)

	_, err := newTestSerializer(t, reg, WithSizeValidation(true)).Serialize(context.Background(), &hooked{Value: "abc"})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	if !debugBuild {
		_, err = newTestSerializer(t, reg).Serialize(context.Background(), &hooked{Value: "abc"})
		assert.NoError(t, err)
	}
}

func TestSerializer_MaxRecordSize(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	data, err := newTestSerializer(t, reg).Serialize(ctx, sampleWidget())
	require.NoError(t, err)

	_, err = newTestSerializer(t, reg, WithMaxRecordSize(32)).Deserialize(ctx, data, widgetTypeID)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = New(WithMaxRecordSize(3))
	assert.Error(t, err)
}

func TestSerializer_NestingLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	root := &part{Label: "0"}
	cur := root
	for range maxNesting + 10 {
		cur.Sub = &part{}
		cur = cur.Sub
	}

	data, err := s.Serialize(ctx, root)
	require.NoError(t, err)

	_, err = s.Deserialize(ctx, data, partTypeID)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestSerializer_SerializeToRollsBack(t *testing.T) {
	s := newTestSerializer(t, newTestRegistry(t, partType()))

	st := bitstream.New()
	st.WriteUint32(0xCAFE)

	err := s.SerializeTo(context.Background(), st, &part{Label: "ok", Sub: &part{}})
	require.NoError(t, err)
	written := st.Len()

	err = s.SerializeTo(context.Background(), st, &widget{})
	assert.ErrorIs(t, err, ErrUnknownTypeID)
	assert.Equal(t, written, st.Len())
	assert.Equal(t, written, st.Tell())
}

func TestSerializer_DeserializeFromStream(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	st := bitstream.New()
	require.NoError(t, s.SerializeTo(ctx, st, &part{Label: "first"}))
	require.NoError(t, s.SerializeTo(ctx, st, &part{Label: "second"}))
	require.NoError(t, st.Seek(0))

	a, err := s.DeserializeFrom(ctx, st, partTypeID)
	require.NoError(t, err)
	b, err := s.DeserializeFrom(ctx, st, partTypeID)
	require.NoError(t, err)

	assert.Equal(t, "first", a.(*part).Label)
	assert.Equal(t, "second", b.(*part).Label)
	assert.Zero(t, st.Remaining())

	// a failed decode leaves the cursor where it was
	require.NoError(t, st.Seek(0))
	_, err = s.DeserializeFrom(ctx, st, widgetTypeID)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Zero(t, st.Tell())
}

func TestSerializer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestSerializer(t, newTestRegistry(t))
	_, err := s.Serialize(ctx, &part{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Deserialize(ctx, []byte{8, 0, 0, 0, 0, 0, 0, 0}, NoType)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeserializeAs(t *testing.T) {
	ctx := context.Background()
	s := newTestSerializer(t, newTestRegistry(t))

	data, err := s.Serialize(ctx, &part{Label: "typed"})
	require.NoError(t, err)

	p, err := DeserializeAs[*part](ctx, s, data)
	require.NoError(t, err)
	assert.Equal(t, "typed", p.Label)

	_, err = DeserializeAs[*widget](ctx, s, data)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestSerializer_Metrics(t *testing.T) {
	ctx := context.Background()
	collector := NewInMemoryMetricsCollector()
	s := newTestSerializer(t, newTestRegistry(t), WithMetricsCollector(collector))

	data, err := s.Serialize(ctx, &part{Label: "m"})
	require.NoError(t, err)
	_, err = s.Deserialize(ctx, data, partTypeID)
	require.NoError(t, err)
	_, err = s.Deserialize(ctx, data, widgetTypeID)
	require.Error(t, err)

	assert.Equal(t, int64(1), collector.GetCounter("rtti.process.succeeded",
		map[string]string{"operation": "serialize", "type": "part", "status": "success"}))
	assert.Equal(t, int64(1), collector.GetCounter("rtti.process.succeeded",
		map[string]string{"operation": "deserialize", "type": "part", "status": "success"}))
	assert.Equal(t, int64(1), collector.GetCounter("rtti.process.failed",
		map[string]string{"operation": "deserialize", "status": "error"}))
	assert.Equal(t, []float64{float64(len(data))}, collector.GetValues("rtti.process.bytes",
		map[string]string{"operation": "serialize", "type": "part"}))
}

func TestPackageLevelSerialize(t *testing.T) {
	const id TypeID = 190
	if !DefaultRegistry().Has(id) {
		MustRegister(NewTypeDescriptor("globalThing", id,
			func() *globalThing { return &globalThing{} },
			PlainField("n", 0, plain.Int32,
				func(g *globalThing) int32 { return g.N },
				func(g *globalThing, v int32) { g.N = v }),
		))
	}

	data, err := Serialize(&globalThing{N: -12})
	require.NoError(t, err)

	obj, err := Deserialize(data, id)
	require.NoError(t, err)
	assert.Equal(t, &globalThing{N: -12}, obj)
}

type globalThing struct{ N int32 }

func (*globalThing) TypeID() TypeID { return 190 }
