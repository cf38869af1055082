package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{}

func TestPublishSubscribe(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var a, b []int
	unsubA := Subscribe(func(_ context.Context, e ping) { a = append(a, e.N) })
	unsubB := Subscribe(func(_ context.Context, e ping) { b = append(b, e.N) })
	Subscribe(func(context.Context, pong) { t.Fatal("pong handler called for ping") })

	Publish(context.Background(), ping{N: 1})
	unsubB()
	unsubB()
	Publish(context.Background(), ping{N: 2})
	unsubA()
	Publish(context.Background(), ping{N: 3})

	require.Equal(t, []int{1, 2}, a)
	require.Equal(t, []int{1}, b)
}

func TestWithoutBus(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	require.False(t, called)
}
