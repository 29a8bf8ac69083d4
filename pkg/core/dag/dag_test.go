package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dag-engine/pkg/core/task"
	"github.com/LENAX/dag-engine/pkg/utils"
)

// fixedTask 测试用Task，ID和输入可任意指定
type fixedTask struct {
	id     task.ID
	name   string
	inputs []task.ID
}

func (f *fixedTask) ID() task.ID       { return f.id }
func (f *fixedTask) Name() string      { return f.name }
func (f *fixedTask) Inputs() []task.ID { return f.inputs }
func (f *fixedTask) Run(context.Context, *task.Input, *utils.EnvVar) (*task.Output, error) {
	return task.EmptyOutput(), nil
}

// valueTask 不可比较的Task实现
type valueTask struct {
	id     task.ID
	inputs []task.ID
}

func (v valueTask) ID() task.ID       { return v.id }
func (v valueTask) Inputs() []task.ID { return v.inputs }
func (v valueTask) Run(context.Context, *task.Input, *utils.EnvVar) (*task.Output, error) {
	return nil, nil
}

func newFixed(d *Dag, name string, inputs ...task.ID) *fixedTask {
	return &fixedTask{id: d.AllocID(), name: name, inputs: inputs}
}

func snapshotEdges(d *Dag) map[task.ID][]task.ID {
	return d.Snapshot().Children
}

func TestInsert_DerivesEdgesFromInputs(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	b := newFixed(d, "b", a.id)
	c := newFixed(d, "c", a.id, b.id)
	require.NoError(t, d.InsertAll(a, b, c))

	deps, err := d.DependenciesOf(c.id)
	require.NoError(t, err)
	assert.Equal(t, []task.ID{a.id, b.id}, deps)

	dependents, err := d.DependentsOf(a.id)
	require.NoError(t, err)
	assert.Equal(t, []task.ID{b.id, c.id}, dependents)

	assert.Equal(t, 3, d.Len())
	assert.NoError(t, d.Validate())
}

func TestInsert_BidirectionalLookup(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	require.NoError(t, d.Insert(a))

	got, ok := d.Task(a.id)
	require.True(t, ok)
	assert.Same(t, a, got)

	id, ok := d.IDOf(a)
	require.True(t, ok)
	assert.Equal(t, a.id, id)

	_, ok = d.IDOf(newFixed(d, "other"))
	assert.False(t, ok)
	_, ok = d.Task(0)
	assert.False(t, ok)
}

func TestInsert_DuplicateID(t *testing.T) {
	d := New()
	a := newFixed(d, "original")
	require.NoError(t, d.Insert(a))

	impostor := &fixedTask{id: a.id, name: "impostor"}
	err := d.Insert(impostor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	got, _ := d.Task(a.id)
	assert.Same(t, a, got)
	assert.Equal(t, "original", task.NameOf(got))
	assert.Equal(t, 1, d.Len())

	err = d.Insert(a)
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestInsert_InvalidTasks(t *testing.T) {
	d := New()
	assert.True(t, errors.Is(d.Insert(nil), ErrInvalidTask))
	assert.True(t, errors.Is(d.Insert(valueTask{id: d.AllocID()}), ErrInvalidTask))
	assert.True(t, errors.Is(d.Insert(&fixedTask{}), ErrInvalidTask))
	assert.Equal(t, 0, d.Len())
}

func TestInsert_SelfInputIsCycle(t *testing.T) {
	d := New()
	id := d.AllocID()
	err := d.Insert(&fixedTask{id: id, inputs: []task.ID{id}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.False(t, d.Contains(id))
}

func TestInsert_PendingReferencesResolveLater(t *testing.T) {
	d := New()
	aID := d.AllocID()
	b := newFixed(d, "b", aID)
	require.NoError(t, d.Insert(b))

	assert.Equal(t, []task.ID{aID}, d.Unresolved())
	err := d.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTask))

	a := &fixedTask{id: aID, name: "a"}
	require.NoError(t, d.Insert(a))
	assert.Empty(t, d.Unresolved())

	deps, err := d.DependenciesOf(b.id)
	require.NoError(t, err)
	assert.Equal(t, []task.ID{aID}, deps)
	assert.NoError(t, d.Validate())
}

func TestInsert_PendingCycleRejectedWithoutMutation(t *testing.T) {
	d := New()
	aID := d.AllocID()
	b := newFixed(d, "b", aID)
	require.NoError(t, d.Insert(b))

	// a 依赖 b，而 b 在等待 a
	a := &fixedTask{id: aID, name: "a", inputs: []task.ID{b.id}}
	before := snapshotEdges(d)
	err := d.Insert(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))

	assert.False(t, d.Contains(aID))
	assert.Equal(t, before, snapshotEdges(d))
	assert.Equal(t, []task.ID{aID}, d.Unresolved())
}

func TestAddDependency_CycleLeavesTopologyUnchanged(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	b := newFixed(d, "b")
	require.NoError(t, d.InsertAll(a, b))
	require.NoError(t, d.AddDependency(a.id, b.id))

	before := snapshotEdges(d)
	err := d.AddDependency(b.id, a.id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	var dagErr *DagError
	require.ErrorAs(t, err, &dagErr)
	assert.Equal(t, ErrCycle, dagErr.Kind)

	assert.Equal(t, before, snapshotEdges(d))
	deps, _ := d.DependenciesOf(a.id)
	assert.Empty(t, deps)
}

func TestAddDependency_TransitiveCycle(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	b := newFixed(d, "b", a.id)
	c := newFixed(d, "c", b.id)
	require.NoError(t, d.InsertAll(a, b, c))

	err := d.AddDependency(c.id, a.id)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.True(t, errors.Is(d.AddDependency(a.id, a.id), ErrCycle))
}

func TestAddDependency_UnknownAndIdempotent(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	b := newFixed(d, "b")
	require.NoError(t, d.InsertAll(a, b))

	assert.True(t, errors.Is(d.AddDependency(a.id, 9999999), ErrUnknownTask))
	assert.True(t, errors.Is(d.AddDependency(9999999, a.id), ErrUnknownTask))

	require.NoError(t, d.AddDependency(a.id, b.id))
	require.NoError(t, d.AddDependency(a.id, b.id))
	deps, _ := d.DependenciesOf(b.id)
	assert.Equal(t, []task.ID{a.id}, deps)

	_, err := d.DependentsOf(9999999)
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

func TestTopologicalBatches_Diamond(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	b := newFixed(d, "b", a.id)
	c := newFixed(d, "c", a.id)
	dd := newFixed(d, "d", b.id, c.id)
	require.NoError(t, d.InsertAll(dd, c, b, a))

	var batches [][]task.ID
	for batch := range d.TopologicalBatches() {
		batches = append(batches, batch)
	}
	assert.Equal(t, [][]task.ID{{a.id}, {b.id, c.id}, {dd.id}}, batches)

	order, err := d.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, batches, order.Levels)
	assert.Equal(t, 4, order.Len())
	assert.Equal(t, []task.ID{a.id, b.id, c.id, dd.id}, order.Flatten())
}

func TestTopologicalBatches_RestartableAndEarlyStop(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	b := newFixed(d, "b", a.id)
	require.NoError(t, d.InsertAll(a, b))

	count := 0
	for range d.TopologicalBatches() {
		count++
		break
	}
	assert.Equal(t, 1, count)

	count = 0
	for range d.TopologicalBatches() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestValidate_DetectsInputsChangedAfterInsert(t *testing.T) {
	d := New()
	a := task.NewSimple("a", nil)
	b := task.NewDefaultTask("b", nil)
	require.NoError(t, d.InsertAll(a, b))
	require.NoError(t, d.Validate())

	b.SetPredecessors(a)
	err := d.Validate()
	require.Error(t, err)
	assert.True(t, IsDagError(err))
	assert.True(t, errors.Is(err, ErrScheduling))

	b.SetInputs(12345678)
	assert.True(t, errors.Is(d.Validate(), ErrUnknownTask))
}

func TestDagError_Message(t *testing.T) {
	err := &DagError{Kind: ErrCycle, Msg: "a -> b"}
	assert.Equal(t, "cycle detected: a -> b", err.Error())
	assert.Equal(t, "unknown task", (&DagError{Kind: ErrUnknownTask}).Error())
	assert.False(t, IsDagError(errors.New("plain")))
}

func TestInsert_IndependentSimpleTasks(t *testing.T) {
	d := New()
	noop := task.ActionFunc(func(context.Context, *task.Input, *utils.EnvVar) (*task.Output, error) {
		return task.EmptyOutput(), nil
	})
	a := task.NewSimple("a", noop)
	b := task.NewSimple("b", noop)
	c := task.NewSimple("c", noop)

	require.NoError(t, d.Insert(a))
	require.NoError(t, d.Insert(b))
	require.NoError(t, d.Insert(c))
	assert.Equal(t, 3, d.Len())

	batches := make([][]task.ID, 0)
	for batch := range d.TopologicalBatches() {
		batches = append(batches, batch)
	}
	assert.Equal(t, [][]task.ID{{a.ID(), b.ID(), c.ID()}}, batches)
	assert.NoError(t, d.Validate())
}

func TestInsert_EdgeFailureRollsBack(t *testing.T) {
	d := New()
	a := newFixed(d, "a")
	require.NoError(t, d.Insert(a))

	bID := d.AllocID()
	// 等待 b 的消费者从未注册，连边时 go-dag 报未知节点
	ghost := d.AllocID()
	d.pending[bID] = []task.ID{ghost}

	b := &fixedTask{id: bID, name: "b", inputs: []task.ID{a.id}}
	before := snapshotEdges(d)
	err := d.Insert(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScheduling))

	assert.False(t, d.Contains(bID))
	_, ok := d.IDOf(b)
	assert.False(t, ok)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, before, snapshotEdges(d))
	_, err = d.graph.GetVertex(key(bID))
	assert.Error(t, err)

	// 清掉无效引用后可以正常注册
	delete(d.pending, bID)
	require.NoError(t, d.Insert(b))
	deps, err := d.DependenciesOf(bID)
	require.NoError(t, err)
	assert.Equal(t, []task.ID{a.id}, deps)
}
