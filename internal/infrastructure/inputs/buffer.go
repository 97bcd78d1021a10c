package inputs

import "context"

// InputBuffer receives raw payloads from inputs. Insert returns how many
// records the payload carried; an error means the payload was rejected.
type InputBuffer interface {
	Insert(ctx context.Context, payload []byte) (int, error)
}

// BufferFunc adapts a function to InputBuffer.
type BufferFunc func(ctx context.Context, payload []byte) (int, error)

func (f BufferFunc) Insert(ctx context.Context, payload []byte) (int, error) {
	return f(ctx, payload)
}
