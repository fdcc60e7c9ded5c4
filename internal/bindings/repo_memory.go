package bindings

import (
	"context"
	"sync"
)

// MemoryDirectory is an in-memory Directory for tests.
type MemoryDirectory struct {
	mu       sync.Mutex
	bindings []Binding
}

func NewMemoryDirectory(bs ...Binding) *MemoryDirectory {
	return &MemoryDirectory{bindings: bs}
}

func (d *MemoryDirectory) Add(b Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = append(d.bindings, b)
}

func (d *MemoryDirectory) ActiveForExtension(ctx context.Context, extension string) ([]Binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := []Binding{}
	for _, b := range d.bindings {
		if b.Extension == extension && b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) ListAll(ctx context.Context) ([]Binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Binding{}, d.bindings...), nil
}
