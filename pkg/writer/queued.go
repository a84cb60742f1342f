package writer

import (
	"encoding/json"
	"log/slog"

	"github.com/getreqlog/reqlog/pkg/capture"
	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/queue"
)

// QueuedSink defers persistence by handing the serialized record to an
// asynchronous dispatcher. Ordering relative to synchronous writes is not
// guaranteed; enqueue failures are reported and the record is dropped.
type QueuedSink struct {
	// Dispatcher submits payloads. When nil, the dispatcher registered
	// under Connection is looked up per write.
	Dispatcher queue.Dispatcher

	// Queue is the queue name. Defaults to queue.DefaultQueue.
	Queue string

	// Connection names the registered dispatcher to use when Dispatcher
	// is nil.
	Connection string

	// Logger is the operational side-channel.
	Logger *slog.Logger
}

// Write serializes the record and submits it to the queue. Never
// propagates failure.
func (q *QueuedSink) Write(record *capture.Record) {
	if record == nil {
		return
	}
	logger := q.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	dispatcher := q.Dispatcher
	if dispatcher == nil {
		d, ok := queue.Connection(q.Connection)
		if !ok {
			logger.Error("queue connection not registered; dropping record",
				"connection", q.Connection, "queue", q.queueName())
			return
		}
		dispatcher = d
	}

	payload, err := json.Marshal(record)
	if err != nil {
		logger.Error("failed to serialize record for queue",
			"queue", q.queueName(), "error", err)
		return
	}

	if err := dispatcher.Dispatch(q.queueName(), payload); err != nil {
		logger.Error("failed to enqueue record; dropping",
			"connection", q.Connection, "queue", q.queueName(), "error", err)
	}
}

func (q *QueuedSink) queueName() string {
	if q.Queue == "" {
		return queue.DefaultQueue
	}
	return q.Queue
}

// DrainHandler adapts a direct writer into a queue.Handler: payloads are
// decoded back into records and written inline by the queue worker.
func DrainHandler(w *Writer, logger *slog.Logger) queue.Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(queueName string, payload []byte) {
		var record capture.Record
		if err := json.Unmarshal(payload, &record); err != nil {
			logger.Error("discarding undecodable queued record",
				"queue", queueName, "error", err)
			return
		}
		w.Write(&record)
	}
}

var _ capture.Sink = (*QueuedSink)(nil)
