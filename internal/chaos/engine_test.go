package chaos_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventrental/internal/chaos"
	"eventrental/internal/inventory"
	"eventrental/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memTarget() chaos.Target {
	mem := memstore.New()
	return chaos.Target{
		Tx:        mem,
		Ledger:    inventory.NewLedger(mem.Inventory(), nil),
		Inventory: mem.Inventory(),
		Logger:    zap.NewNop(),
	}
}

func TestThresholdHolds(t *testing.T) {
	assert.True(t, chaos.Threshold{Operator: "==", Value: 0}.Holds(0))
	assert.True(t, chaos.Threshold{Operator: "<=", Value: 3}.Holds(3))
	assert.False(t, chaos.Threshold{Operator: ">", Value: 1}.Holds(1))
	assert.False(t, chaos.Threshold{Operator: "!=", Value: 1}.Holds(2))
}

func TestConcurrentReservationHypothesisHolds(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())

	result, err := engine.Run(context.Background(),
		chaos.ConcurrentReservationExperiment(memTarget(), 5, 40, 20*time.Millisecond))
	require.NoError(t, err)

	assert.True(t, result.SteadyStateValid)
	assert.True(t, result.HypothesisHeld, "failed: %v", result.FailedAssertions)
	assert.Empty(t, result.Violations)
	assert.NotEmpty(t, result.Observations["stock_inconsistencies"])
}

func TestReserveReleaseChurnHypothesisHolds(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())

	result, err := engine.Run(context.Background(),
		chaos.ReserveReleaseChurnExperiment(memTarget(), 10, 30, 20*time.Millisecond))
	require.NoError(t, err)

	assert.True(t, result.HypothesisHeld, "failed: %v", result.FailedAssertions)
	assert.Len(t, engine.Results(), 1)
}

func TestMailOutageTripsBreaker(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())

	result, err := engine.Run(context.Background(), chaos.MailOutageExperiment(zap.NewNop(), 20*time.Millisecond))
	require.NoError(t, err)

	assert.True(t, result.HypothesisHeld, "failed: %v", result.FailedAssertions)
	points := result.Observations["smtp_attempts"]
	require.NotEmpty(t, points)
	assert.Equal(t, float64(3), points[len(points)-1].Value)
}

func TestRunAbortsOnInvalidSteadyState(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())
	injected := false

	result, err := engine.Run(context.Background(), chaos.Experiment{
		Name: "broken-baseline",
		SteadyState: []chaos.Metric{{
			Name:      "errors",
			Query:     func(context.Context) (float64, error) { return 0, errors.New("query down") },
			Threshold: chaos.Threshold{Operator: "==", Value: 0},
		}},
		Method: []chaos.Action{{
			Target:  "nothing",
			Execute: func(context.Context) error { injected = true; return nil },
		}},
		Duration: time.Millisecond,
	})

	assert.ErrorIs(t, err, chaos.ErrSteadyStateInvalid)
	assert.False(t, result.SteadyStateValid)
	assert.False(t, injected)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, float64(-1), result.Violations[0].Actual)
}

func TestFailedAssertionMarksHypothesisViolated(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())
	value := 0.0

	result, err := engine.Run(context.Background(), chaos.Experiment{
		Name: "drift",
		SteadyState: []chaos.Metric{{
			Name:      "drift",
			Query:     func(context.Context) (float64, error) { return value, nil },
			Threshold: chaos.Threshold{Operator: "==", Value: 0},
		}},
		Method: []chaos.Action{{
			Target:  "drift",
			Execute: func(context.Context) error { value = 2; return nil },
		}},
		Validation: []chaos.Assertion{{
			Metric:    "drift",
			Condition: func(v float64) bool { return v == 0 },
			Message:   "drift must stay zero",
		}},
		Duration: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.False(t, result.HypothesisHeld)
	assert.Equal(t, []string{"drift must stay zero"}, result.FailedAssertions)
	assert.NotEmpty(t, result.Violations)
}

func TestExecuteGameDay(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())
	engine.Standard(memTarget(), 10*time.Millisecond)
	require.Len(t, engine.Experiments(), 3)

	held, err := engine.ExecuteGameDay(context.Background(), chaos.GameDay{
		Name:      "test",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
	})
	require.NoError(t, err)
	assert.True(t, held)
	assert.Len(t, engine.Results(), 3)
}
