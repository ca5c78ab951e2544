package summary

import (
	"context"
	"testing"
	"time"

	"github.com/airenas/clipper/internal/pkg/test"
	"github.com/airenas/clipper/internal/pkg/test/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	_, err := NewQueue(0)
	assert.NotNil(t, err)
	q, err := NewQueue(2)
	require.Nil(t, err)
	assert.Nil(t, q.Add("a.pdf"))
	assert.Nil(t, q.Add("b.pdf"))
	err = q.Add("c.pdf")
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestStartWorkerService_Validate(t *testing.T) {
	q, _ := NewQueue(1)
	tests := []struct {
		name string
		data *ServiceData
	}{
		{name: "No workers", data: &ServiceData{Queue: q, Processor: &mocks.Processor{}}},
		{name: "No queue", data: &ServiceData{WorkerCount: 1, Processor: &mocks.Processor{}}},
		{name: "No processor", data: &ServiceData{WorkerCount: 1, Queue: q}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StartWorkerService(test.Ctx(t), tt.data)
			assert.NotNil(t, err)
		})
	}
}

func TestStartWorkerService(t *testing.T) {
	q, err := NewQueue(10)
	require.Nil(t, err)
	pr := &mocks.Processor{}
	doneCh := make(chan string, 10)
	pr.On("ProcessDocument", mock.Anything, mock.Anything).Return(1, nil).Run(func(args mock.Arguments) {
		doneCh <- args.String(1)
	})
	ctx, cf := context.WithCancel(test.Ctx(t))
	defer cf()

	wDone, err := StartWorkerService(ctx, &ServiceData{WorkerCount: 2, Queue: q, Processor: pr, Timeout: time.Minute})
	require.Nil(t, err)
	require.Nil(t, q.Add("a.pdf"))
	require.Nil(t, q.Add("b.pdf"))
	require.Nil(t, q.Add("c.pdf"))

	got := map[string]bool{}
	for len(got) < 3 {
		select {
		case p := <-doneCh:
			got[p] = true
		case <-time.After(5 * time.Second):
			require.Fail(t, "timeout")
		}
	}
	assert.Equal(t, map[string]bool{"a.pdf": true, "b.pdf": true, "c.pdf": true}, got)
	cf()
	select {
	case <-wDone:
	case <-time.After(5 * time.Second):
		require.Fail(t, "workers not finished")
	}
}
