package metadata

import "testing"

func TestGetAligned(t *testing.T) {
	tests := []struct {
		operand, granularity, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{255, 256, 256},
		{257, 256, 512},
		{13, 1, 13},
		{13, 0, 13},
	}
	for _, tt := range tests {
		if got := GetAligned(tt.operand, tt.granularity); got != tt.want {
			t.Errorf("GetAligned(%d, %d) = %d, want %d", tt.operand, tt.granularity, got, tt.want)
		}
	}
}

func TestGetAlignedRange(t *testing.T) {
	r := GetAlignedRange(3, 45, 16)
	if r.Offset != 16 || r.Size != 48 {
		t.Errorf("GetAlignedRange(3, 45, 16) = %+v, want {16 48}", *r)
	}
}
