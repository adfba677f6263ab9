package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobState_Terminal(t *testing.T) {
	assert.False(t, JobStateIdle.Terminal())
	assert.False(t, JobStateUploading.Terminal())
	assert.False(t, JobStateScraping.Terminal())
	assert.True(t, JobStateSuccess.Terminal())
	assert.True(t, JobStateError.Terminal())
}

func TestJobState_Busy(t *testing.T) {
	assert.False(t, JobStateIdle.Busy())
	assert.True(t, JobStateUploading.Busy())
	assert.True(t, JobStateScraping.Busy())
	assert.False(t, JobStateSuccess.Busy())
	assert.False(t, JobStateError.Busy())
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		name   string
		p      Progress
		want   float64
		wantOK bool
	}{
		{"three of ten", Progress{Current: 3, Total: 10}, 30, true},
		{"complete", Progress{Current: 10, Total: 10}, 100, true},
		{"zero total", Progress{Current: 0, Total: 0}, 0, false},
		{"zero total ignores current", Progress{Current: 7, Total: 0}, 0, false},
		{"overrun not clamped", Progress{Current: 12, Total: 10}, 120, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.p.Percent()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestSnapshot_ShowProgress(t *testing.T) {
	assert.True(t, Snapshot{State: JobStateScraping, Progress: Progress{Current: 3, Total: 10}}.ShowProgress())
	assert.False(t, Snapshot{State: JobStateScraping, Progress: Progress{Current: 3}}.ShowProgress())
	assert.False(t, Snapshot{State: JobStateSuccess, Progress: Progress{Current: 10, Total: 10}}.ShowProgress())
	assert.False(t, Snapshot{State: JobStateUploading, Progress: Progress{Current: 1, Total: 10}}.ShowProgress())
}
