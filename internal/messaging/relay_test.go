package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eventrental/internal/audit"
	"eventrental/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	batches [][]Record
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, records []Record) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]Record(nil), records...))
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) all() []Record {
	var out []Record
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func record(t *testing.T, log *audit.Log, eventID, actorID uuid.UUID, action audit.Action) {
	t.Helper()
	require.NoError(t, log.Record(context.Background(), eventID, action, actorID, map[string]any{"action": action}))
}

func TestDrainPublishesInBatchesAndAdvancesOffset(t *testing.T) {
	mem := memstore.New()
	log := audit.NewLog(mem.EventLog())
	eventID, actorID := uuid.New(), uuid.New()
	for _, a := range []audit.Action{audit.ActionCreate, audit.ActionAddItem, audit.ActionStatusChange, audit.ActionReturn, audit.ActionStatusChange} {
		record(t, log, eventID, actorID, a)
	}

	pub := &fakePublisher{}
	relay := NewRelay(mem.EventLog(), mem.Offsets(), pub, zap.NewNop(), time.Second)
	relay.batchSize = 2

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, pub.batches, 3)

	records := pub.all()
	assert.Equal(t, "create", records[0].Action)
	assert.Equal(t, eventID.String(), records[0].EventID)
	assert.Equal(t, actorID.String(), records[0].ActorID)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, 5, records[4].Version)

	var data map[string]string
	require.NoError(t, json.Unmarshal(records[1].Data, &data))
	assert.Equal(t, "add_item", data["action"])

	offset, err := mem.Offsets().Load(context.Background(), RelayName)
	require.NoError(t, err)
	assert.Equal(t, records[4].ID, offset)

	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing new to relay")
}

func TestFailedPublishKeepsOffset(t *testing.T) {
	mem := memstore.New()
	log := audit.NewLog(mem.EventLog())
	record(t, log, uuid.New(), uuid.New(), audit.ActionCreate)

	pub := &fakePublisher{err: errors.New("broker unavailable")}
	relay := NewRelay(mem.EventLog(), mem.Offsets(), pub, zap.NewNop(), time.Second)

	_, err := relay.Drain(context.Background())
	require.Error(t, err)

	offset, err := mem.Offsets().Load(context.Background(), RelayName)
	require.NoError(t, err)
	assert.Zero(t, offset)

	pub.err = nil
	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the record is delivered once the broker is back")
}

func TestStartStopsOnCancel(t *testing.T) {
	mem := memstore.New()
	record(t, audit.NewLog(mem.EventLog()), uuid.New(), uuid.New(), audit.ActionCreate)

	pub := &fakePublisher{}
	relay := NewRelay(mem.EventLog(), mem.Offsets(), pub, zap.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		offset, _ := mem.Offsets().Load(context.Background(), RelayName)
		return offset > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
