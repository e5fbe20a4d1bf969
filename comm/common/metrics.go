package common

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Transport counters. One send/receive pair per fully framed message,
// byte counts cover payload only (the 8-byte headers are bookkeeping).
var (
	MessagesSent     = metrics.NewCounter("commlink_messages_sent_total")
	BytesSent        = metrics.NewCounter("commlink_bytes_sent_total")
	MessagesReceived = metrics.NewCounter("commlink_messages_received_total")
	BytesReceived    = metrics.NewCounter("commlink_bytes_received_total")
	ConnectRetries   = metrics.NewCounter("commlink_connect_retries_total")
)

// WriteMetrics dumps all registered metrics in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
