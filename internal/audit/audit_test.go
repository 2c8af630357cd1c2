package audit_test

import (
	"context"
	"encoding/json"
	"testing"

	"eventrental/internal/apperr"
	"eventrental/internal/audit"
	"eventrental/internal/store/memstore"
	"eventrental/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryIsOrderedPerEvent(t *testing.T) {
	log := audit.NewLog(memstore.New().EventLog())
	ctx := context.Background()
	gala, picnic := uuid.New(), uuid.New()
	admin := uuid.New()

	require.NoError(t, log.Record(ctx, gala, audit.ActionCreate, admin, map[string]any{"name": "Gala"}))
	require.NoError(t, log.Record(ctx, picnic, audit.ActionCreate, admin, map[string]any{"name": "Picnic"}))
	require.NoError(t, log.Record(ctx, gala, audit.ActionUpdate, admin, map[string]any{"address": "Pier 4"}))

	history, err := log.History(ctx, gala)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, audit.ActionCreate, history[0].Action)
	assert.Equal(t, admin, history[0].ActorID)
	assert.Equal(t, 2, history[1].Version)

	var details map[string]string
	require.NoError(t, json.Unmarshal(history[1].Details, &details))
	assert.Equal(t, "Pier 4", details["address"])

	empty, err := log.History(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordJoinsTransaction(t *testing.T) {
	mem := memstore.New()
	log := audit.NewLog(mem.EventLog())
	ctx := context.Background()
	id := uuid.New()

	err := mem.InTx(ctx, func(ctx context.Context) error {
		if err := log.Record(ctx, id, audit.ActionCreate, uuid.New(), nil); err != nil {
			return err
		}
		return apperr.BadRequest("rolled back")
	})
	require.Error(t, err)

	history, err := log.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

type racingStream struct {
	audit.Stream
}

func (racingStream) GetCurrentVersion(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (racingStream) AppendEvents(context.Context, uuid.UUID, string, int, []eventstore.Event) error {
	return eventstore.ErrConcurrencyConflict
}

func TestConcurrentAppendIsConflict(t *testing.T) {
	err := audit.NewLog(racingStream{}).Record(context.Background(), uuid.New(), audit.ActionUpdate, uuid.New(), nil)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUnencodableDetails(t *testing.T) {
	err := audit.NewLog(memstore.New().EventLog()).Record(context.Background(), uuid.New(), audit.ActionUpdate, uuid.New(), map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal update details")
}
