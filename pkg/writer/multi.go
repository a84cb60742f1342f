package writer

import "github.com/getreqlog/reqlog/pkg/capture"

// MultiSink fans a record out to several sinks, e.g. a structured-log
// channel for live tailing plus a durable artifact store. Each sink
// already swallows its own failures, so delivery to one is independent of
// the others.
type MultiSink []capture.Sink

// Write hands the record to every sink in order.
func (m MultiSink) Write(record *capture.Record) {
	for _, s := range m {
		if s != nil {
			s.Write(record)
		}
	}
}

var _ capture.Sink = (MultiSink)(nil)
