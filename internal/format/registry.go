package format

import (
	"context"
	"fmt"

	"datablocks/internal/schema"
)

// Registry is an ordered, immutable set of format handlers. Build it once
// and pass it to whatever needs lookups.
type Registry struct {
	handlers []Handler
	byFormat map[Format]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{
		handlers: append([]Handler(nil), handlers...),
		byFormat: make(map[Format]Handler, len(handlers)),
	}
	for _, h := range handlers {
		if _, dup := r.byFormat[h.Format()]; !dup {
			r.byFormat[h.Format()] = h
		}
	}
	return r
}

// DefaultRegistry holds every built-in memory format.
func DefaultRegistry(batchSize int) *Registry {
	return NewRegistry(DefaultHandlers(batchSize)...)
}

// Formats returns the registered formats in precedence order.
func (r *Registry) Formats() []Format {
	out := make([]Format, len(r.handlers))
	for i, h := range r.handlers {
		out[i] = h.Format()
	}
	return out
}

func (r *Registry) Get(f Format) (Handler, error) {
	h, ok := r.byFormat[f]
	if !ok {
		return nil, fmt.Errorf("no handler for format %q", f)
	}
	return h, nil
}

// Of returns the first handler, in precedence order, that accepts obj.
func (r *Registry) Of(obj any) (Handler, error) {
	for _, h := range r.handlers {
		if h.MaybeInstance(obj) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("no format matches payload of type %T", obj)
}

// Wrap tags obj with its detected format.
func (r *Registry) Wrap(obj any) (Payload, error) {
	if p, ok := obj.(Payload); ok {
		return p, nil
	}
	h, err := r.Of(obj)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Format: h.Format(), Value: obj}, nil
}

// InferSchema infers a schema from a bounded sample of p.
func (r *Registry) InferSchema(ctx context.Context, p Payload, sampleSize int) (schema.Schema, error) {
	h, err := r.Get(p.Format)
	if err != nil {
		return schema.Schema{}, err
	}
	sample, err := h.Sample(ctx, p.Value, sampleSize)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("sample %s: %w", p.Format, err)
	}
	return schema.InferFromRecords(sample)
}

// Collect reads every record of p.
func (r *Registry) Collect(ctx context.Context, p Payload) (schema.Records, error) {
	h, err := r.Get(p.Format)
	if err != nil {
		return nil, err
	}
	var out schema.Records
	err = h.Batches(ctx, p.Value, func(batch schema.Records) error {
		out = append(out, batch...)
		return nil
	})
	return out, err
}
