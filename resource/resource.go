// Package resource declares the persisted engine resources: generic resources with
// their metadata, GPU programs, animation curves and clips, and materials.
package resource

import (
	"github.com/google/uuid"

	"github.com/hengadev/rtti"
	"github.com/hengadev/rtti/plain"
)

// Type identifiers. These numbers are part of the file format.
const (
	TypeIDResourceMetaData rtti.TypeID = 1001
	TypeIDResource         rtti.TypeID = 1002
	TypeIDGpuProgram       rtti.TypeID = 1003
	TypeIDAnimationCurve   rtti.TypeID = 1004
	TypeIDAnimationClip    rtti.TypeID = 1005
	TypeIDMaterial         rtti.TypeID = 1006
)

// ResourceMetaData describes a resource for tools and editors.
type ResourceMetaData struct {
	DisplayName string
	Tags        []string
}

func (*ResourceMetaData) TypeID() rtti.TypeID { return TypeIDResourceMetaData }

func metaDataType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("ResourceMetaData", TypeIDResourceMetaData,
		func() *ResourceMetaData { return &ResourceMetaData{} },
		rtti.PlainField("displayName", 0, plain.String,
			func(m *ResourceMetaData) string { return m.DisplayName },
			func(m *ResourceMetaData, v string) { m.DisplayName = v }),
		rtti.PlainArrayField("tags", 1, plain.String,
			func(m *ResourceMetaData) []string { return m.Tags },
			func(m *ResourceMetaData, v []string) { m.Tags = v }),
	)
}

// Resource is the common part of every loadable asset.
type Resource struct {
	UUID     uuid.UUID
	Name     string
	Size     uint32
	MetaData *ResourceMetaData
}

// NewResource creates a resource with a fresh identifier and empty metadata.
func NewResource(name string) *Resource {
	return &Resource{
		UUID:     uuid.New(),
		Name:     name,
		MetaData: &ResourceMetaData{DisplayName: name},
	}
}

func (*Resource) TypeID() rtti.TypeID { return TypeIDResource }

func resourceType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("Resource", TypeIDResource,
		func() *Resource { return &Resource{} },
		rtti.PlainField("uuid", 0, plain.UUID,
			func(r *Resource) uuid.UUID { return r.UUID },
			func(r *Resource, v uuid.UUID) { r.UUID = v }),
		rtti.PlainField("name", 1, plain.String,
			func(r *Resource) string { return r.Name },
			func(r *Resource, v string) { r.Name = v }),
		rtti.PlainField("size", 2, plain.Uint32,
			func(r *Resource) uint32 { return r.Size },
			func(r *Resource, v uint32) { r.Size = v }),
		rtti.ReflectableField("metaData", 3,
			func(r *Resource) *ResourceMetaData { return r.MetaData },
			func(r *Resource, v *ResourceMetaData) { r.MetaData = v }),
	)
}

// Types returns the descriptors of every type in this package.
func Types() []*rtti.TypeDescriptor {
	return []*rtti.TypeDescriptor{
		metaDataType(),
		resourceType(),
		gpuProgramType(),
		animationCurveType(),
		animationClipType(),
		materialType(),
	}
}

// RegisterTypes registers every type in this package with reg.
func RegisterTypes(reg *rtti.Registry) error {
	for _, d := range Types() {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
