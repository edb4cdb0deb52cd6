package envexec

import (
	"testing"
	"time"
)

func TestResultRoundsUp(t *testing.T) {
	tests := []struct {
		time   time.Duration
		memory Size
		ms     int64
		kib    int64
	}{
		{0, 0, 0, 0},
		{time.Millisecond, 1 << 10, 1, 1},
		{time.Millisecond + 1, 1<<10 + 1, 2, 2},
		{999 * time.Microsecond, 1023, 1, 1},
		{time.Second + 400*time.Microsecond, 64 << 20, 1001, 65536},
	}
	for _, tc := range tests {
		r := Result{Time: tc.time, Memory: tc.memory}
		if got := r.TimeMS(); got != tc.ms {
			t.Errorf("TimeMS(%v) = %d, want %d", tc.time, got, tc.ms)
		}
		if got := r.MemoryKiB(); got != tc.kib {
			t.Errorf("MemoryKiB(%v) = %d, want %d", tc.memory, got, tc.kib)
		}
	}
}
