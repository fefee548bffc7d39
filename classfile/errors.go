package classfile

import "fmt"

// MalformedClassFileError reports a structural violation of the class file
// format: a bad magic number, an out-of-range version, or a declared length
// that contradicts the surrounding structure.
type MalformedClassFileError struct {
	Offset int // byte offset into the class file buffer, -1 when unknown
	Reason string
}

func (e *MalformedClassFileError) Error() string {
	if e.Offset < 0 {
		return "malformed class file: " + e.Reason
	}
	return fmt.Sprintf("malformed class file at offset %d: %s", e.Offset, e.Reason)
}

// ConstantPoolError reports a failed constant pool resolution: an index that
// is zero, out of range, addressing the unusable second slot of an 8-byte
// entry, or holding a different tag than the accessor expects.
type ConstantPoolError struct {
	Index    uint16
	Expected string
	Actual   string
}

func (e *ConstantPoolError) Error() string {
	return fmt.Sprintf("constant pool index %d: expected %s, found %s", e.Index, e.Expected, e.Actual)
}
