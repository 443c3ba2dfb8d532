package resource

import (
	"github.com/hengadev/rtti"
	"github.com/hengadev/rtti/plain"
)

// Material binds GPU programs for rendering. Programs are shared between materials
// and are written once per graph.
type Material struct {
	Name          string
	Program       *GpuProgram
	ShadowProgram *GpuProgram
}

func (*Material) TypeID() rtti.TypeID { return TypeIDMaterial }

func materialType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("Material", TypeIDMaterial,
		func() *Material { return &Material{} },
		rtti.PlainField("name", 0, plain.String,
			func(m *Material) string { return m.Name },
			func(m *Material, v string) { m.Name = v }),
		rtti.ReferenceField("program", 1,
			func(m *Material) *GpuProgram { return m.Program },
			func(m *Material, v *GpuProgram) { m.Program = v }),
		rtti.ReferenceField("shadowProgram", 2,
			func(m *Material) *GpuProgram { return m.ShadowProgram },
			func(m *Material, v *GpuProgram) { m.ShadowProgram = v }),
	)
}
