package content

import (
	"iter"
	"strings"
)

// Parameter is one raw query parameter.
type Parameter struct {
	Name  string
	Value string
}

// AddHook is called before a pair is stored. It reports whether the owner
// recognized the key and absorbed the value into a typed field.
type AddHook func(key, value string) (handled bool, err error)

// RemoveHook is called before a key is removed. It reports whether the
// owner recognized the key and reset its typed field.
type RemoveHook func(key string) (handled bool)

// ParameterBag is an ordered collection of raw request parameters owned by
// one request. Keys the owner recognizes are routed to its typed fields and
// never stored here, so iteration only yields pass-through parameters.
type ParameterBag struct {
	entries  []Parameter
	onAdd    AddHook
	onRemove RemoveHook
}

// NewParameterBag creates a bag bound to the owner's hooks. Nil hooks treat
// every key as unrecognized.
func NewParameterBag(onAdd AddHook, onRemove RemoveHook) *ParameterBag {
	return &ParameterBag{
		onAdd:    onAdd,
		onRemove: onRemove,
	}
}

// Add appends a parameter. A well-known key updates the owner instead; a
// value the owner cannot parse is rejected and the bag is left unchanged.
func (b *ParameterBag) Add(key, value string) error {
	handled, err := b.intercept(key, value)
	if err != nil || handled {
		return err
	}

	b.entries = append(b.entries, Parameter{Name: key, Value: value})

	return nil
}

// Set stores a parameter, replacing any existing values for the key while
// keeping its original position.
func (b *ParameterBag) Set(key, value string) error {
	handled, err := b.intercept(key, value)
	if err != nil || handled {
		return err
	}

	replaced := false
	kept := b.entries[:0]

	for _, p := range b.entries {
		if !strings.EqualFold(p.Name, key) {
			kept = append(kept, p)

			continue
		}

		if !replaced {
			kept = append(kept, Parameter{Name: p.Name, Value: value})
			replaced = true
		}
	}

	b.entries = kept

	if !replaced {
		b.entries = append(b.entries, Parameter{Name: key, Value: value})
	}

	return nil
}

// Remove deletes a parameter. For a well-known key the owner's field is
// reset to its default as well.
func (b *ParameterBag) Remove(key string) {
	if b.onRemove != nil {
		b.onRemove(key)
	}

	b.removeGeneric(key)
}

// Get returns the first pass-through value stored for key.
func (b *ParameterBag) Get(key string) (string, bool) {
	for _, p := range b.entries {
		if strings.EqualFold(p.Name, key) {
			return p.Value, true
		}
	}

	return "", false
}

// Has reports whether a pass-through parameter is stored for key.
func (b *ParameterBag) Has(key string) bool {
	_, ok := b.Get(key)

	return ok
}

// Len returns the number of pass-through parameters.
func (b *ParameterBag) Len() int {
	return len(b.entries)
}

// All yields the pass-through parameters in insertion order. Well-known
// parameters are read through the owning request's fields.
func (b *ParameterBag) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, p := range b.entries {
			if !yield(p.Name, p.Value) {
				return
			}
		}
	}
}

// Parameters returns a copy of the pass-through parameters.
func (b *ParameterBag) Parameters() []Parameter {
	out := make([]Parameter, len(b.entries))
	copy(out, b.entries)

	return out
}

func (b *ParameterBag) intercept(key, value string) (bool, error) {
	if b.onAdd == nil {
		return false, nil
	}

	handled, err := b.onAdd(key, value)
	if err != nil {
		return false, err
	}

	if handled {
		b.removeGeneric(key)
	}

	return handled, nil
}

func (b *ParameterBag) removeGeneric(key string) {
	kept := b.entries[:0]

	for _, p := range b.entries {
		if !strings.EqualFold(p.Name, key) {
			kept = append(kept, p)
		}
	}

	b.entries = kept
}
