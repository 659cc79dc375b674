package dashboard

import (
	"testing"
	"time"
)

func TestClassifyDuration(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    DurationClass
	}{
		{"zero", 0, DurationOK},
		{"just under long", 60*time.Second - time.Millisecond, DurationOK},
		{"exactly long threshold", 60 * time.Second, DurationLong},
		{"between thresholds", 2 * time.Minute, DurationLong},
		{"exactly stuck threshold", 180 * time.Second, DurationStuck},
		{"well past stuck", 10 * time.Minute, DurationStuck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDuration(tt.elapsed); got != tt.want {
				t.Errorf("ClassifyDuration(%v) = %q, want %q", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestBarFill(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"zero", 0, 0},
		{"half of stuck", 90 * time.Second, 50},
		{"at stuck threshold", 180 * time.Second, 100},
		{"saturates past stuck", 200 * time.Second, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BarFill(tt.elapsed); got != tt.want {
				t.Errorf("BarFill(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}
