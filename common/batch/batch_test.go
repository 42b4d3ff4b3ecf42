package batch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	b, _ := New(context.Background())

	var mux sync.Mutex
	seen := map[string]any{}

	now := time.Now()
	b.Go("foo", func() (any, error) {
		time.Sleep(time.Millisecond * 100)
		mux.Lock()
		seen["foo"] = "foo"
		mux.Unlock()
		return "foo", nil
	})
	b.Go("bar", func() (any, error) {
		time.Sleep(time.Millisecond * 150)
		mux.Lock()
		seen["bar"] = "bar"
		mux.Unlock()
		return "bar", nil
	})
	err := b.Wait()

	assert.Nil(t, err)
	duration := time.Since(now)
	assert.Less(t, duration, time.Millisecond*200)
	assert.Equal(t, 2, len(seen))
}

func TestBatchWithConcurrencyNum(t *testing.T) {
	b, _ := New(
		context.Background(),
		WithConcurrencyNum(3),
	)

	var mux sync.Mutex
	count := 0

	now := time.Now()
	for i := 0; i < 7; i++ {
		idx := i
		b.Go(strconv.Itoa(idx), func() (any, error) {
			time.Sleep(time.Millisecond * 100)
			mux.Lock()
			count++
			mux.Unlock()
			return strconv.Itoa(idx), nil
		})
	}
	err := b.Wait()
	duration := time.Since(now)

	assert.Nil(t, err)
	assert.Greater(t, duration, time.Millisecond*260)
	assert.Equal(t, 7, count)
}

func TestBatchContext(t *testing.T) {
	b, ctx := New(context.Background())

	var ctxErr error
	b.Go("error", func() (any, error) {
		time.Sleep(time.Millisecond * 100)
		return nil, errors.New("test error")
	})

	b.Go("ctx", func() (any, error) {
		<-ctx.Done()
		ctxErr = ctx.Err()
		return nil, ctx.Err()
	})

	err := b.Wait()

	assert.NotNil(t, err)
	assert.Equal(t, "error", err.Key)
	assert.Equal(t, ctx.Err(), ctxErr)
}
