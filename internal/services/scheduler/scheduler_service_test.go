package scheduler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/interfaces"
)

type memKV struct {
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Set(ctx context.Context, key string, value string) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	if _, ok := m.data[key]; !ok {
		return interfaces.ErrKeyNotFound
	}
	delete(m.data, key)
	return nil
}

func (m *memKV) GetAll(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	var pairs []interfaces.KeyValuePair
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			pairs = append(pairs, interfaces.KeyValuePair{Key: k, Value: v})
		}
	}
	return pairs, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestService_TriggerJob_RunsHandlerAndPersists(t *testing.T) {
	kv := newMemKV()
	svc := NewService(kv, arbor.NewLogger())
	var ran atomic.Int32
	require.NoError(t, svc.RegisterJob("campaign", "0 10 * * *", "daily campaign", func() error {
		ran.Add(1)
		return nil
	}))
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, svc.TriggerJob("campaign"))
	waitFor(t, func() bool { return ran.Load() == 1 })
	waitFor(t, func() bool {
		_, ok := kv.data["scheduler:job:campaign"]
		return ok
	})

	status, err := svc.GetJobStatus("campaign")
	require.NoError(t, err)
	waitFor(t, func() bool {
		status, _ = svc.GetJobStatus("campaign")
		return status.LastRun != nil
	})
	assert.Empty(t, status.LastError)
}

func TestService_DisabledJobSkipped(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	var ran atomic.Int32
	require.NoError(t, svc.RegisterJob("campaign", "0 10 * * *", "daily campaign", func() error {
		ran.Add(1)
		return nil
	}))
	require.NoError(t, svc.DisableJob("campaign"))
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, svc.TriggerJob("campaign"))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, ran.Load())
}

func TestService_DisabledStateSurvivesRestart(t *testing.T) {
	kv := newMemKV()

	first := NewService(kv, arbor.NewLogger())
	require.NoError(t, first.RegisterJob("report", "0 8 * * *", "daily report", func() error { return nil }))
	require.NoError(t, first.DisableJob("report"))

	second := NewService(kv, arbor.NewLogger())
	require.NoError(t, second.RegisterJob("report", "0 8 * * *", "daily report", func() error { return nil }))
	require.NoError(t, second.Start())
	defer second.Stop()

	status, err := second.GetJobStatus("report")
	require.NoError(t, err)
	assert.False(t, status.Enabled)
}

func TestService_HandlerErrorRecorded(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	require.NoError(t, svc.RegisterJob("campaign", "0 10 * * *", "daily campaign", func() error {
		return assert.AnError
	}))
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, svc.TriggerJob("campaign"))
	waitFor(t, func() bool {
		status, err := svc.GetJobStatus("campaign")
		return err == nil && status.LastError != ""
	})
}

func TestService_PanicRecovered(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	require.NoError(t, svc.RegisterJob("campaign", "0 10 * * *", "daily campaign", func() error {
		panic("browser exploded")
	}))
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, svc.TriggerJob("campaign"))
	waitFor(t, func() bool {
		status, err := svc.GetJobStatus("campaign")
		return err == nil && strings.Contains(status.LastError, "panic")
	})
	assert.True(t, svc.IsRunning())
}

func TestService_ConcurrentStatusQueries(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	require.NoError(t, svc.RegisterJob("campaign", "0 10 * * *", "daily campaign", func() error {
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				svc.IsRunning()
				svc.GetAllJobStatuses()
			}
		}()
	}
	require.NoError(t, svc.Start())
	svc.TriggerJob("campaign")
	wg.Wait()
	require.NoError(t, svc.Stop())

	assert.False(t, svc.IsRunning())
}

func TestService_RegisterJob_RejectsDuplicate(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	require.NoError(t, svc.RegisterJob("campaign", "0 10 * * *", "x", func() error { return nil }))
	assert.Error(t, svc.RegisterJob("campaign", "0 11 * * *", "y", func() error { return nil }))
}
