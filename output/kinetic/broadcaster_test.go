package kinetic

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/metric"
	"github.com/choi857/kinetic-simulator/pkg/worker"
)

func assertRow(t *testing.T, r Row) {
	t.Helper()

	id, err := strconv.Atoi(r.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, MinID)
	assert.LessOrEqual(t, id, MaxID)

	typ, err := strconv.Atoi(r.Type)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, typ, MinType)
	assert.LessOrEqual(t, typ, MaxType)

	for _, c := range []struct {
		v string
		s span
	}{{r.X, spanX}, {r.Y, spanY}, {r.Z, spanZ}, {r.A, spanA}, {r.D, spanD}, {r.VX, spanVX}, {r.VY, spanVY}} {
		dot := strings.IndexByte(c.v, '.')
		require.NotEqual(t, -1, dot, c.v)
		assert.Len(t, c.v[dot+1:], 2, c.v)
		f, err := strconv.ParseFloat(c.v, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f, c.s.lo)
		assert.LessOrEqual(t, f, c.s.hi)
	}
}

func TestNewFrame_Ranges(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		f := NewFrame(rng)
		assert.GreaterOrEqual(t, len(f.Data), MinRows)
		assert.LessOrEqual(t, len(f.Data), MaxRows)
		for _, r := range f.Data {
			assertRow(t, r)
		}
	}
}

func TestFrame_Encode(t *testing.T) {
	f := NewFrame(rand.New(rand.NewPCG(3, 4)))

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(f.Encode(), &decoded))
	require.Len(t, decoded["data"], len(f.Data))
	for _, row := range decoded["data"] {
		assert.Len(t, row, 9)
		for k, v := range row {
			assert.IsType(t, "", v, k)
		}
	}

	assert.Equal(t, FallbackPayload, string(Frame{}.Encode()))

	var fallback Frame
	require.NoError(t, json.Unmarshal([]byte(FallbackPayload), &fallback))
	require.Len(t, fallback.Data, 2)
	for _, r := range fallback.Data {
		assertRow(t, r)
	}
}

type fixture struct {
	b     *Broadcaster
	ts    *httptest.Server
	sched *worker.Scheduler
}

func newFixture(t *testing.T, interval time.Duration, registry *metric.MetricsRegistry) *fixture {
	t.Helper()

	sched := worker.NewScheduler(worker.SchedulerConfig{Workers: 2, QueueSize: 16})
	require.NoError(t, sched.Start(context.Background()))

	b, err := New(Config{Interval: interval, Scheduler: sched, Seed: 42, MetricsRegistry: registry})
	require.NoError(t, err)

	mux := http.NewServeMux()
	b.Register(mux)
	ts := httptest.NewServer(mux)
	require.NoError(t, b.Start())

	t.Cleanup(func() {
		b.Stop(time.Second)
		ts.Close()
		_ = sched.Stop(time.Second)
	})
	return &fixture{b: b, ts: ts, sched: sched}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/websocket/kinetic"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f), string(data))
	return f
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNew_RequiresScheduler(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestBroadcaster_ConnectAndTick(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond, nil)
	conn := f.dial(t)

	first := readFrame(t, conn)
	assert.NotEmpty(t, first.Data)

	second := readFrame(t, conn)
	assert.NotEmpty(t, second.Data)
	assert.Equal(t, 1, f.b.Online())
}

func TestBroadcaster_Reply(t *testing.T) {
	f := newFixture(t, time.Hour, nil)
	conn := f.dial(t)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ReplyPrefix+"hello", string(data))
}

func TestBroadcaster_HTTPRoutes(t *testing.T) {
	f := newFixture(t, time.Hour, nil)

	var count map[string]int
	getJSON(t, f.ts.URL+"/api/test/online-count", &count)
	assert.Equal(t, 0, count["count"])

	conn := f.dial(t)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return f.b.Online() == 1 }, time.Second, 10*time.Millisecond)

	var push map[string]any
	getJSON(t, f.ts.URL+"/api/test/push", &push)
	assert.Equal(t, float64(1), push["sent"])
	assert.Equal(t, float64(1), push["online"])
	assert.NotEmpty(t, readFrame(t, conn).Data)

	var sent map[string]any
	getJSON(t, f.ts.URL+"/api/test/send-message", &sent)
	assert.Equal(t, float64(1), sent["sent"])
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, TestMessage, string(data))
}

func TestBroadcaster_StopClosesClients(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	f := newFixture(t, time.Hour, registry)
	conn := f.dial(t)
	readFrame(t, conn)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.b.metrics.clients))
	assert.Eventually(t, func() bool { return testutil.ToFloat64(f.b.metrics.frames) == 1 },
		time.Second, 10*time.Millisecond)

	f.b.Stop(time.Second)
	assert.Zero(t, f.b.Online())
	assert.Zero(t, f.sched.Active())

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// duplicate registration on the same registry fails
	_, err = New(Config{Scheduler: f.sched, MetricsRegistry: registry})
	assert.Error(t, err)
}
