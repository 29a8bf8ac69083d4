package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dag-engine/pkg/config"
	"github.com/LENAX/dag-engine/pkg/core/events"
	"github.com/LENAX/dag-engine/pkg/storage"
	"github.com/LENAX/dag-engine/pkg/storage/sqlite"
	"github.com/LENAX/dag-engine/pkg/storage/sqlrepo"
)

func newHistoryRepo(t *testing.T) storage.RunRepository {
	t.Helper()
	db, err := sqlite.Open(tempSQLiteDSN(t))
	require.NoError(t, err)
	repo, err := sqlrepo.NewRunRepo(db, sqlite.NewSQLiteDialect())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRun_SavesHistory(t *testing.T) {
	repo := newHistoryRepo(t)
	rec := newRecorder()
	a := echo(rec, "a")
	b := failing(rec, "b").SetPredecessors(a)
	c := echo(rec, "c").SetPredecessors(b)

	eng := New(WithRunRepository(repo))
	require.NoError(t, eng.AppendDag("history", mustDag(t, a, b, c)))
	r, err := eng.RunDag(context.Background(), "history")
	require.NoError(t, err)

	saved, err := repo.GetRun(context.Background(), r.RunID)
	require.NoError(t, err)
	assert.Equal(t, "history", saved.DagName)
	assert.Equal(t, storage.RunStatusFailed, saved.Status)
	assert.Equal(t, 3, saved.TaskTotal)
	require.Len(t, saved.Tasks, 3)

	statuses := make(map[string]string, 3)
	for _, tr := range saved.Tasks {
		statuses[tr.TaskName] = tr.Status
	}
	assert.Equal(t, map[string]string{"a": "succeeded", "b": "failed", "c": "skipped"}, statuses)

	runs, err := repo.ListRuns(context.Background(), "history", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	bus := events.NewBus(events.BusOptions{BufferSize: 64})
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	rec := newRecorder()
	a := echo(rec, "a")
	b := failing(rec, "b").SetPredecessors(a)
	c := echo(rec, "c").SetPredecessors(b)

	eng := New(WithEventBus(bus))
	r, err := eng.Run(context.Background(), mustDag(t, a, b, c))
	require.NoError(t, err)

	got := make([]events.EventType, 0, 7)
	const expected = 7
	for i := 0; i < expected; i++ {
		select {
		case ev := <-ch:
			require.Equal(t, r.RunID, ev.RunID)
			got = append(got, ev.Type)
		case <-time.After(3 * time.Second):
			t.Fatalf("received %d of %d events: %v", i, expected, got)
		}
	}

	assert.Equal(t, []events.EventType{
		events.EventRunStarted,
		events.EventTaskStarted,
		events.EventTaskSucceeded,
		events.EventTaskStarted,
		events.EventTaskFailed,
		events.EventTaskSkipped,
		events.EventRunFinished,
	}, got)
}

func TestRun_EventsArriveInOrderAcrossRuns(t *testing.T) {
	bus := events.NewBus(events.BusOptions{BufferSize: 512})
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.Subscribe(ctx, events.EventRunStarted, events.EventRunFinished)
	require.NoError(t, err)

	rec := newRecorder()
	a := echo(rec, "a")
	b := echo(rec, "b").SetPredecessors(a)
	c := echo(rec, "c").SetPredecessors(b)
	d := mustDag(t, a, b, c)
	eng := New(WithEventBus(bus))

	const runs = 20
	for i := 0; i < runs; i++ {
		_, err := eng.Run(context.Background(), d)
		require.NoError(t, err)
	}

	for i := 0; i < runs; i++ {
		for _, want := range []events.EventType{events.EventRunStarted, events.EventRunFinished} {
			select {
			case ev := <-ch:
				require.Equal(t, want, ev.Type, "run %d", i)
			case <-time.After(3 * time.Second):
				t.Fatalf("run %d: no %s event", i, want)
			}
		}
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DagEngine.Execution.MaxConcurrency = 3
	cfg.DagEngine.Execution.FailurePolicy = config.FailurePolicyFailFast
	cfg.DagEngine.Storage.Database.Type = "sqlite"
	cfg.DagEngine.Storage.Database.DSN = tempSQLiteDSN(t)
	cfg.DagEngine.Storage.Cache.Enabled = true
	cfg.DagEngine.Events.Enabled = true

	eng, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer eng.Close()

	assert.Equal(t, 3, eng.Concurrency())
	assert.Equal(t, FailFast, eng.Policy())
	require.NotNil(t, eng.History())
	require.NotNil(t, eng.EventBus())

	rec := newRecorder()
	require.NoError(t, eng.AppendDag("cfg", mustDag(t, echo(rec, "only"))))
	r, err := eng.RunDag(context.Background(), "cfg")
	require.NoError(t, err)

	last, ok := eng.LastResult("cfg")
	require.True(t, ok)
	assert.Equal(t, r.RunID, last.RunID)

	saved, err := eng.History().GetRun(context.Background(), r.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusSuccess, saved.Status)
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DagEngine.Execution.FailurePolicy = "retry-forever"
	_, err := NewFromConfig(cfg)
	require.Error(t, err)
}

func TestCronScheduler(t *testing.T) {
	rec := newRecorder()
	eng := New()
	require.NoError(t, eng.AppendDag("tick", mustDag(t, echo(rec, "tick"))))

	cs := NewCronScheduler(eng)
	assert.ErrorIs(t, cs.Register("missing", "* * * * * *"), ErrDagNotFound)
	assert.Error(t, cs.Register("tick", "not a cron"))
	require.NoError(t, cs.Register("tick", "* * * * * *"))
	assert.Error(t, cs.Register("tick", "@every 1m"))

	var once sync.Once
	fired := make(chan *Result, 1)
	cs.OnResult(func(name string, r *Result, err error) {
		if err == nil && name == "tick" {
			once.Do(func() { fired <- r })
		}
	})

	cs.Start()
	defer cs.Stop()

	select {
	case r := <-fired:
		assert.True(t, r.OK())
		assert.Equal(t, "tick", r.DagName)
	case <-time.After(3 * time.Second):
		t.Fatal("cron never fired")
	}

	entries := cs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "tick", entries[0].DagName)
	assert.Equal(t, "* * * * * *", entries[0].CronExpr)

	require.NoError(t, cs.Unregister("tick"))
	assert.Error(t, cs.Unregister("tick"))
	assert.Empty(t, cs.Entries())
}

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("0 */5 * * * *"))
	assert.NoError(t, ValidateCronExpr("@every 10s"))
	assert.Error(t, ValidateCronExpr(""))
	assert.Error(t, ValidateCronExpr("* * *"))
}

func TestNewFromConfig_EmailNotifications(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DagEngine.Notifications.Email = config.EmailNotification{
		Enabled:  true,
		SMTPHost: "127.0.0.1",
		SMTPPort: 1,
		From:     "dag@example.com",
		To:       []string{"ops@example.com"},
		Events:   []string{"run.finished"},
		// 成功的运行不会触发发送
		OnlyFailures: true,
	}

	e, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer e.Close()
	require.NotNil(t, e.EventBus())

	res, err := e.Run(context.Background(), mustDag(t, echo(newRecorder(), "only")))
	require.NoError(t, err)
	assert.True(t, res.OK())
}
