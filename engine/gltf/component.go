package gltf

import "fmt"

// ComponentType is the numeric type of a single accessor component.
type ComponentType int

// ComponentType constants.
const (
	ComponentTypeByte          ComponentType = 5120
	ComponentTypeUnsignedByte  ComponentType = 5121
	ComponentTypeShort         ComponentType = 5122
	ComponentTypeUnsignedShort ComponentType = 5123
	ComponentTypeUnsignedInt   ComponentType = 5125
	ComponentTypeFloat         ComponentType = 5126
)

// ByteWidth returns the size in bytes of one component, or 0 for an unknown component type.
//
// Returns:
//   - int: the component width (1, 2 or 4)
func (c ComponentType) ByteWidth() int {
	switch c {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// Unsigned reports whether the component type is an unsigned integer type.
func (c ComponentType) Unsigned() bool {
	return c == ComponentTypeUnsignedByte || c == ComponentTypeUnsignedShort || c == ComponentTypeUnsignedInt
}

func (c ComponentType) String() string {
	switch c {
	case ComponentTypeByte:
		return "BYTE"
	case ComponentTypeUnsignedByte:
		return "UNSIGNED_BYTE"
	case ComponentTypeShort:
		return "SHORT"
	case ComponentTypeUnsignedShort:
		return "UNSIGNED_SHORT"
	case ComponentTypeUnsignedInt:
		return "UNSIGNED_INT"
	case ComponentTypeFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(c))
	}
}

// AccessorType is the element shape of an accessor.
type AccessorType string

// AccessorType constants.
const (
	AccessorTypeScalar AccessorType = "SCALAR"
	AccessorTypeVec2   AccessorType = "VEC2"
	AccessorTypeVec3   AccessorType = "VEC3"
	AccessorTypeVec4   AccessorType = "VEC4"
	AccessorTypeMat2   AccessorType = "MAT2"
	AccessorTypeMat3   AccessorType = "MAT3"
	AccessorTypeMat4   AccessorType = "MAT4"
)

// ComponentCount returns the number of components per element, or 0 for an unknown type.
//
// Returns:
//   - int: the component count (1, 2, 3, 4, 4, 9 or 16)
func (t AccessorType) ComponentCount() int {
	switch t {
	case AccessorTypeScalar:
		return 1
	case AccessorTypeVec2:
		return 2
	case AccessorTypeVec3:
		return 3
	case AccessorTypeVec4, AccessorTypeMat2:
		return 4
	case AccessorTypeMat3:
		return 9
	case AccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
