package audit

import (
	"context"
	"errors"

	"github.com/talakunchi/chatguard/pkg/gateway"
)

// Fanout records each exchange to every configured sink. All sinks are
// attempted; errors are joined.
type Fanout []gateway.AuditSink

// Record implements gateway.AuditSink
func (f Fanout) Record(ctx context.Context, exchange *gateway.Exchange) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Record(ctx, exchange); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
