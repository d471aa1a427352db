package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

type stubClient struct {
	tasks  []*asynq.Task
	closed bool
}

func (s *stubClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubClient) Close() error {
	s.closed = true
	return nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s *stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func (s *stubInspector) ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "cron", Type: jobs.TaskLedgerReconcile}}, nil
}

func (s *stubInspector) Close() error { return errors.New("already closed") }

func TestTriggerReconcileEnqueuesPayload(t *testing.T) {
	client := &stubClient{}
	c := NewJobsCLIWith(client, &stubInspector{})

	info, err := c.TriggerReconcile(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "t-1", info.ID)
	require.Len(t, client.tasks, 1)
	require.Equal(t, jobs.TaskLedgerReconcile, client.tasks[0].Type())

	var payload jobs.ReconcilePayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &payload))
	require.Equal(t, int64(7), payload.CompanyID)

	_, err = c.TriggerReconcile(context.Background(), -1)
	require.Error(t, err)
}

func TestInspectQueueAndWriteStats(t *testing.T) {
	c := NewJobsCLIWith(&stubClient{}, &stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}})

	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Pending)

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, stats))
	require.Equal(t, "queue=default pending=3 active=0 scheduled=0 retry=1 archived=0\n", buf.String())

	scheduled, err := c.ListScheduled(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
}

func TestCloseJoinsErrors(t *testing.T) {
	client := &stubClient{}
	c := NewJobsCLIWith(client, &stubInspector{})
	require.ErrorContains(t, c.Close(), "already closed")
	require.True(t, client.closed)
}
