package resource

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hengadev/rtti"
	"github.com/hengadev/rtti/bitstream"
	"github.com/hengadev/rtti/plain"
)

// GpuProgramType is the pipeline stage a program runs in.
type GpuProgramType uint8

const (
	VertexProgram GpuProgramType = iota
	FragmentProgram
	GeometryProgram
	HullProgram
	DomainProgram
	ComputeProgram
)

func (t GpuProgramType) String() string {
	switch t {
	case VertexProgram:
		return "vertex"
	case FragmentProgram:
		return "fragment"
	case GeometryProgram:
		return "geometry"
	case HullProgram:
		return "hull"
	case DomainProgram:
		return "domain"
	case ComputeProgram:
		return "compute"
	default:
		return fmt.Sprintf("program(%d)", uint8(t))
	}
}

// GpuParamType is the data type of a program parameter.
type GpuParamType uint8

const (
	ParamFloat GpuParamType = iota
	ParamVector4
	ParamMatrix4
	ParamInt
	ParamTexture
	ParamSampler
	ParamBuffer
)

// GpuParam describes one parameter a program exposes.
type GpuParam struct {
	Name      string
	Type      GpuParamType
	Slot      uint32
	ArraySize uint32
}

type gpuParamCodec struct{}

// GpuParamCodec encodes a GpuParam as [u32 size][name][u8 type][u32 slot][u32 array size].
var GpuParamCodec plain.Codec[GpuParam] = gpuParamCodec{}

var paramTypeCodec = plain.Enum8[GpuParamType]()

func (gpuParamCodec) Encode(s *bitstream.Stream, p GpuParam) error {
	return plain.WriteWithSizeHeader(s, func() error {
		if err := plain.String.Encode(s, p.Name); err != nil {
			return err
		}
		if err := paramTypeCodec.Encode(s, p.Type); err != nil {
			return err
		}
		s.WriteUint32(p.Slot)
		s.WriteUint32(p.ArraySize)
		return nil
	})
}

func (gpuParamCodec) Decode(s *bitstream.Stream, p *GpuParam) error {
	return plain.ReadWithSizeHeader(s, func(int) error {
		if err := plain.String.Decode(s, &p.Name); err != nil {
			return err
		}
		if err := paramTypeCodec.Decode(s, &p.Type); err != nil {
			return err
		}
		var err error
		if p.Slot, err = s.ReadUint32(); err != nil {
			return err
		}
		p.ArraySize, err = s.ReadUint32()
		return err
	})
}

func (gpuParamCodec) Size(p GpuParam) (uint32, error) {
	name, err := plain.String.Size(p.Name)
	if err != nil {
		return 0, err
	}
	return plain.SizeSum(plain.HeaderSize, uint64(name), 1, 4, 4)
}

func (gpuParamCodec) Dynamic() bool { return true }

var ErrNoMicrocode = errors.New("gpu program has no microcode")

// GpuProgram is a compiled shader. The renderer only ever consumes Microcode, an
// opaque blob produced by an offline compiler.
type GpuProgram struct {
	UUID       uuid.UUID
	Name       string
	Type       GpuProgramType
	Language   string
	EntryPoint string
	Profile    string
	Source     string
	Microcode  []byte
	Params     []GpuParam
	MetaData   *ResourceMetaData

	paramIndex map[string]int
}

// NewGpuProgramFromMicrocode creates a program from already compiled bytes.
func NewGpuProgramFromMicrocode(name string, typ GpuProgramType, entryPoint string, microcode []byte, params ...GpuParam) (*GpuProgram, error) {
	if len(microcode) == 0 {
		return nil, ErrNoMicrocode
	}
	p := &GpuProgram{
		UUID:       uuid.New(),
		Name:       name,
		Type:       typ,
		EntryPoint: entryPoint,
		Microcode:  microcode,
		Params:     params,
	}
	p.indexParams()
	return p, nil
}

func (*GpuProgram) TypeID() rtti.TypeID { return TypeIDGpuProgram }

// Param looks a parameter up by name.
func (p *GpuProgram) Param(name string) (GpuParam, bool) {
	if p.paramIndex == nil {
		p.indexParams()
	}
	i, ok := p.paramIndex[name]
	if !ok {
		return GpuParam{}, false
	}
	return p.Params[i], true
}

func (p *GpuProgram) indexParams() {
	p.paramIndex = make(map[string]int, len(p.Params))
	for i, param := range p.Params {
		p.paramIndex[param.Name] = i
	}
}

// AfterDecode rebuilds the parameter index.
func (p *GpuProgram) AfterDecode() error {
	if len(p.Microcode) == 0 {
		return fmt.Errorf("%s: %w", p.Name, ErrNoMicrocode)
	}
	p.indexParams()
	return nil
}

func gpuProgramType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("GpuProgram", TypeIDGpuProgram,
		func() *GpuProgram { return &GpuProgram{} },
		rtti.PlainField("uuid", 0, plain.UUID,
			func(p *GpuProgram) uuid.UUID { return p.UUID },
			func(p *GpuProgram, v uuid.UUID) { p.UUID = v }),
		rtti.PlainField("name", 1, plain.String,
			func(p *GpuProgram) string { return p.Name },
			func(p *GpuProgram, v string) { p.Name = v }),
		rtti.PlainField("type", 2, plain.Enum8[GpuProgramType](),
			func(p *GpuProgram) GpuProgramType { return p.Type },
			func(p *GpuProgram, v GpuProgramType) { p.Type = v }),
		rtti.PlainField("language", 3, plain.String,
			func(p *GpuProgram) string { return p.Language },
			func(p *GpuProgram, v string) { p.Language = v }),
		rtti.PlainField("entryPoint", 4, plain.String,
			func(p *GpuProgram) string { return p.EntryPoint },
			func(p *GpuProgram, v string) { p.EntryPoint = v }),
		rtti.PlainField("profile", 5, plain.String,
			func(p *GpuProgram) string { return p.Profile },
			func(p *GpuProgram, v string) { p.Profile = v }),
		rtti.PlainField("source", 6, plain.String,
			func(p *GpuProgram) string { return p.Source },
			func(p *GpuProgram, v string) { p.Source = v }),
		rtti.PlainField("microcode", 7, plain.Bytes,
			func(p *GpuProgram) []byte { return p.Microcode },
			func(p *GpuProgram, v []byte) { p.Microcode = v }),
		rtti.PlainArrayField("params", 8, GpuParamCodec,
			func(p *GpuProgram) []GpuParam { return p.Params },
			func(p *GpuProgram, v []GpuParam) { p.Params = v }),
		rtti.ReferenceField("metaData", 9,
			func(p *GpuProgram) *ResourceMetaData { return p.MetaData },
			func(p *GpuProgram, v *ResourceMetaData) { p.MetaData = v }),
	)
}
