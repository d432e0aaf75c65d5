package arena

// DType is the element type of a Tensor.
type DType uint8

const (
	Float32 DType = iota
	Int8
	Uint8
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case Float32:
		return 4
	case Int8, Uint8:
		return 1
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	default:
		return "unknown"
	}
}
