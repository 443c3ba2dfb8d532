package rtti

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/internal/monitoring"
	"github.com/hengadev/rtti/internal/rttierr"
	"github.com/hengadev/rtti/plain"
)

// Serializer is the object graph driver. It encodes a reflectable root and every
// object reachable from it, and rebuilds such graphs from bytes.
//
// A Serializer holds no per-call state and is safe for concurrent use, provided
// each call works on its own graph and stream.
type Serializer struct {
	registry      *Registry
	validateSizes bool
	maxRecordSize uint32
	hooks         []ObservabilityHook
	logger        *StructuredLogger

	hook ObservabilityHook
}

// New creates a Serializer. Without options it resolves types in DefaultRegistry,
// validates sizes only in rttidebug builds and applies no record size limit.
func New(opts ...Option) (*Serializer, error) {
	s := &Serializer{
		registry:      defaultRegistry,
		validateSizes: debugBuild,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("apply serializer option: %w", err)
		}
	}

	switch len(s.hooks) {
	case 0:
		s.hook = &monitoring.NoOpObservabilityHook{}
	case 1:
		s.hook = s.hooks[0]
	default:
		s.hook = monitoring.NewCompositeObservabilityHook(s.hooks...)
	}
	return s, nil
}

// NewFromConfig creates a Serializer from cfg. Options are applied after the
// configuration and take precedence.
func NewFromConfig(cfg Config, opts ...Option) (*Serializer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithSizeValidation(cfg.ValidateSizes),
		WithMaxRecordSize(cfg.MaxRecordSize),
		WithLogger(logger),
	}
	return New(append(base, opts...)...)
}

// Registry returns the registry the serializer resolves types in.
func (s *Serializer) Registry() *Registry { return s.registry }

// ValidatesSizes reports whether size validation is on.
func (s *Serializer) ValidatesSizes() bool { return s.validateSizes }

// Serialize encodes obj and everything reachable from it.
func (s *Serializer) Serialize(ctx context.Context, obj Reflectable) ([]byte, error) {
	st := bitstream.New()
	if err := s.SerializeTo(ctx, st, obj); err != nil {
		return nil, err
	}
	return st.Bytes(), nil
}

// SerializeTo writes the encoding of obj at the cursor of st. On failure the bytes
// written by this call are removed again.
func (s *Serializer) SerializeTo(ctx context.Context, st *bitstream.Stream, obj Reflectable) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if isNil(obj) {
		return fmt.Errorf("%w: cannot serialize a nil root", rttierr.ErrNilObject)
	}

	meta := map[string]any{"type_id": uint32(obj.TypeID())}
	if desc, ok := s.registry.Lookup(obj.TypeID()); ok {
		meta["type_name"] = desc.name
	}
	start := time.Now()
	s.hook.OnProcessStart(ctx, "serialize", meta)
	defer func() { s.finish(ctx, "serialize", start, err, meta) }()

	begin := st.Tell()
	if err := s.encode(st, obj); err != nil {
		_ = st.Truncate(begin)
		return err
	}
	meta["bytes"] = st.Tell() - begin
	return nil
}

func (s *Serializer) encode(st *bitstream.Stream, obj Reflectable) error {
	begin := st.Tell()
	if err := newEncoder(s.registry, st, s.validateSizes).encodeRoot(obj); err != nil {
		return err
	}
	if !s.validateSizes {
		return nil
	}

	predicted, err := newSizer(s.registry).rootSize(obj)
	if err != nil {
		return err
	}
	if written := uint64(st.Tell() - begin); written != predicted {
		return rttierr.NewSizeMismatchError(fmt.Sprintf("%T", obj), uint32(predicted), uint32(written))
	}
	return nil
}

// Size returns the exact number of bytes Serialize produces for obj, computed
// without encoding.
func (s *Serializer) Size(obj Reflectable) (uint32, error) {
	if isNil(obj) {
		return 0, fmt.Errorf("%w: cannot size a nil root", rttierr.ErrNilObject)
	}
	n, err := newSizer(s.registry).rootSize(obj)
	if err != nil {
		return 0, err
	}
	return plain.CheckSize(n)
}

// Deserialize rebuilds a graph whose root must be of type expected. Passing NoType
// accepts any registered root type.
//
// The root type id is checked before anything is allocated. The whole of data must
// be one record. On any error no part of the graph is returned.
func (s *Serializer) Deserialize(ctx context.Context, data []byte, expected TypeID) (Reflectable, error) {
	st := bitstream.FromBytes(data)
	obj, err := s.DeserializeFrom(ctx, st, expected)
	if err != nil {
		return nil, err
	}
	if st.Remaining() != 0 {
		err := rttierr.NewMalformedRecordError(st.Tell(),
			fmt.Sprintf("%d trailing bytes after the root record", st.Remaining()))
		s.hook.OnError(ctx, "deserialize", err, map[string]any{"error_kind": errorKind(err)})
		return nil, err
	}
	return obj, nil
}

// DeserializeFrom decodes one root record at the cursor of st. On success the cursor
// is left just past the record. On failure it is restored.
func (s *Serializer) DeserializeFrom(ctx context.Context, st *bitstream.Stream, expected TypeID) (obj Reflectable, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := map[string]any{"type_id": uint32(expected)}
	start := time.Now()
	s.hook.OnProcessStart(ctx, "deserialize", meta)
	defer func() { s.finish(ctx, "deserialize", start, err, meta) }()

	begin := st.Tell()
	desc, err := s.peekRoot(st, expected)
	if err != nil {
		return nil, err
	}
	meta["type_name"] = desc.name

	obj, err = newDecoder(s.registry, st, s.maxRecordSize).decodeRoot()
	if err != nil {
		_ = st.Seek(begin)
		return nil, err
	}
	meta["bytes"] = st.Tell() - begin
	return obj, nil
}

// peekRoot reads the root record's type id without consuming anything and resolves
// its descriptor.
func (s *Serializer) peekRoot(st *bitstream.Stream, expected TypeID) (*TypeDescriptor, error) {
	begin := st.Tell()
	end, err := plain.RecordEnd(st)
	if err != nil {
		return nil, err
	}
	if end-begin < nilRecordSize {
		return nil, rttierr.NewMalformedRecordError(begin, "root record is too short to hold a type id")
	}

	if err := st.Skip(plain.HeaderSize); err != nil {
		return nil, err
	}
	raw, err := st.ReadUint32()
	_ = st.Seek(begin)
	if err != nil {
		return nil, err
	}

	id := TypeID(raw)
	if id == NoType {
		return nil, fmt.Errorf("%w: root record is a nil object", rttierr.ErrNilObject)
	}
	desc, err := s.registry.lookupFor(id, rttierr.Peek)
	if err != nil {
		return nil, err
	}
	if expected != NoType && id != expected {
		return nil, rttierr.NewTypeMismatchError("root type id", expected, id)
	}
	return desc, nil
}

func (s *Serializer) finish(ctx context.Context, op string, start time.Time, err error, meta map[string]any) {
	if err != nil {
		meta["error_kind"] = errorKind(err)
		s.hook.OnError(ctx, op, err, meta)
	}
	s.hook.OnProcessComplete(ctx, op, time.Since(start), err, meta)
}

// DeserializeAs decodes data with s and asserts the root to T. The expected type id
// is taken from T's zero value, so T must be a pointer type whose TypeID method
// works on a nil receiver, or the root type id is not checked up front.
func DeserializeAs[T Reflectable](ctx context.Context, s *Serializer, data []byte) (T, error) {
	var zero T
	expected := NoType
	if id, ok := staticTypeID[T](); ok {
		expected = id
	}

	obj, err := s.Deserialize(ctx, data, expected)
	if err != nil {
		return zero, err
	}
	out, ok := obj.(T)
	if !ok {
		return zero, rttierr.NewTypeMismatchError("root", fmt.Sprintf("%T", zero), fmt.Sprintf("%T", obj))
	}
	return out, nil
}

// staticTypeID calls TypeID on the zero value of T, recovering if the method
// dereferences its receiver.
func staticTypeID[T Reflectable]() (id TypeID, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	var zero T
	return zero.TypeID(), true
}

// defaultSerializer backs the package-level Serialize and Deserialize.
var defaultSerializer = sync.OnceValues(func() (*Serializer, error) { return New() })

// Serialize encodes obj with the default registry.
func Serialize(obj Reflectable) ([]byte, error) {
	s, err := defaultSerializer()
	if err != nil {
		return nil, err
	}
	return s.Serialize(context.Background(), obj)
}

// Deserialize decodes data with the default registry.
func Deserialize(data []byte, expected TypeID) (Reflectable, error) {
	s, err := defaultSerializer()
	if err != nil {
		return nil, err
	}
	return s.Deserialize(context.Background(), data, expected)
}

// errorKind buckets err for metrics tags.
func errorKind(err error) string {
	switch {
	case IsDataError(err):
		return "data"
	case IsProgrammingError(err):
		return "programming"
	case IsRegistrationError(err):
		return "registration"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "other"
	}
}

// Logger returns the logger installed with WithLogger, or nil.
func (s *Serializer) Logger() *StructuredLogger { return s.logger }
