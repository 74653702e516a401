package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/price-attest/pkg/aggregator"
	"github.com/StrathCole/price-attest/pkg/collector"
	"github.com/StrathCole/price-attest/pkg/feed"
	"github.com/StrathCole/price-attest/pkg/feed/feedtest"
	"github.com/StrathCole/price-attest/pkg/signer"
)

func newTask(t *testing.T, id, ticks int, conn feed.Connector) *Task {
	t.Helper()
	keys, err := signer.GenerateKeyPair()
	require.NoError(t, err)

	return &Task{
		ID:        id,
		Keys:      keys,
		Ticks:     ticks,
		Connector: conn,
		Collector: collector.New(collector.Config{Interval: time.Millisecond, WorkerID: id}),
	}
}

func TestTask_Run(t *testing.T) {
	conn := feedtest.Sequence("100", "200", "300")
	task := newTask(t, 3, 3, conn)

	c, err := task.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, c.WorkerID)
	assert.Equal(t, 200.0, c.Value)
	assert.True(t, signer.VerifyValue(c.Value, task.Keys.Public(), c.Signature))

	require.Len(t, conn.Streams(), 1)
	assert.True(t, conn.Streams()[0].Closed(), "stream must be closed after the run")
}

func TestTask_SubscribeFailure(t *testing.T) {
	conn := &feedtest.Connector{SubscribeErr: errors.New("refused")}
	task := newTask(t, 1, 3, conn)

	c, err := task.Run(context.Background())
	assert.ErrorIs(t, err, collector.ErrConnection)
	assert.ErrorIs(t, err, feed.ErrConnect)
	assert.Equal(t, aggregator.Contribution{}, c)
}

func TestTask_CollectFailureYieldsNoContribution(t *testing.T) {
	conn := feedtest.Sequence("1")
	task := newTask(t, 2, 5, conn)

	c, err := task.Run(context.Background())
	assert.ErrorIs(t, err, collector.ErrConnection)
	assert.Equal(t, aggregator.Contribution{}, c)
	assert.True(t, conn.Streams()[0].Closed())
}

func TestTask_ZeroTicks(t *testing.T) {
	task := newTask(t, 1, 0, feedtest.Constant("1"))

	_, err := task.Run(context.Background())
	assert.ErrorIs(t, err, collector.ErrEmptySample)
}
