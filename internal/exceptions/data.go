package exceptions

// Field is a single entry of a failure dataset.
type Field struct {
	Key   string
	Value any
}

// Data is an ordered dataset attached to a failure. Keys may repeat; readers
// that build maps keep the first occurrence.
type Data []Field

// Add returns d with key/value appended.
func (d Data) Add(key string, value any) Data {
	return append(d, Field{Key: key, Value: value})
}

// Len returns the number of fields.
func (d Data) Len() int {
	return len(d)
}

// Clone returns a copy that does not share the backing array.
func (d Data) Clone() Data {
	if len(d) == 0 {
		return nil
	}

	out := make(Data, len(d))
	copy(out, d)

	return out
}
