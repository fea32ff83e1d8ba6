package dispatch

import (
	"context"

	"github.com/louisbranch/workspace/internal/bindable"
)

// Count is the record count of one bindable.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Counts issues an empty list for every registered bindable and counts the
// results. A failure, a panic or a name that stops resolving counts as zero;
// Counts itself never fails.
func Counts(ctx context.Context, d *Dispatcher) []Count {
	names := d.Names()
	counts := make([]Count, 0, len(names))
	for _, name := range names {
		counts = append(counts, Count{Name: name, Count: CountOf(ctx, d, name)})
	}
	return counts
}

// CountOf lists name with an empty payload and counts the success value.
func CountOf(ctx context.Context, d *Dispatcher, name string) int {
	result, err := d.Call(ctx, name, bindable.ActionList, bindable.Payload{})
	if err != nil || !result.IsSuccess() {
		return 0
	}
	return CountValue(result.Value())
}
