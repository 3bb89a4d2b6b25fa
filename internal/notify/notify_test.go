package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPartCreated(t *testing.T) {
	ev := PartCreated("admin", "АСЦБ-000475")

	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"event":"part_created","message":"Пользователь admin создал деталь: АСЦБ-000475","part_id":"АСЦБ-000475"}`,
		string(raw))
}

type fakeRedis struct {
	mu       sync.Mutex
	channel  string
	payloads []string
	err      error
	closed   bool
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = channel
	if b, ok := message.([]byte); ok {
		f.payloads = append(f.payloads, string(b))
	}
	return goredis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Subscribe(context.Context, ...string) *goredis.PubSub { return nil }

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestRedisPublisher_Publish(t *testing.T) {
	fake := &fakeRedis{}
	p := newRedisPublisher(fake, "")

	require.NoError(t, p.Publish(context.Background(), PartCreated("ivanov", "A-1")))

	assert.Equal(t, DefaultChannel, fake.channel)
	require.Len(t, fake.payloads, 1)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(fake.payloads[0]), &got))
	assert.Equal(t, PartCreated("ivanov", "A-1"), got)

	require.NoError(t, p.Close())
	assert.True(t, fake.closed)
}

func TestRedisPublisher_PublishError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("READONLY You can't write against a read only replica")}
	p := newRedisPublisher(fake, "parts")

	err := p.Publish(context.Background(), PartCreated("ivanov", "A-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis publish parts")
	assert.Equal(t, "parts", p.Channel())
}

func TestNewRedisPublisher_RequiresAddr(t *testing.T) {
	_, err := NewRedisPublisher(context.Background(), RedisOptions{})
	assert.Error(t, err)
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	ok := &Recorder{}
	failing := &Recorder{Err: errors.New("sink down")}
	m := Multi{failing, ok}

	err := m.Publish(context.Background(), PartCreated("petrova", "B-2"))
	require.ErrorContains(t, err, "sink down")

	assert.Len(t, ok.Events(), 1)
	assert.Len(t, failing.Events(), 1, "failing sinks still see the event")
}

func TestRecorder_Concurrent(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Publish(context.Background(), PartCreated("u", "P"))
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 20)
}

func TestLogPublisher_NeverFails(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), PartCreated("u", "P")))
}
