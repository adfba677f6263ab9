//go:build !integration

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/pricescrape/internal/model"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		want string
	}{
		{"empty", 0, "[----------]"},
		{"half", 50, "[#####-----]"},
		{"full", 100, "[##########]"},
		{"rounds", 34, "[###-------]"},
		{"clamps over", 140, "[##########]"},
		{"clamps under", -5, "[----------]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, progressBar(tt.pct, 10))
		})
	}
}

func TestFormatSnapshot(t *testing.T) {
	tests := []struct {
		name string
		snap model.Snapshot
		want string
	}{
		{
			name: "idle without message",
			snap: model.Snapshot{State: model.JobStateIdle},
			want: "[idle]",
		},
		{
			name: "scraping without total hides bar",
			snap: model.Snapshot{State: model.JobStateScraping, Message: "Queued"},
			want: "[scraping] Queued",
		},
		{
			name: "scraping with total",
			snap: model.Snapshot{State: model.JobStateScraping, Message: "Processing", Progress: model.Progress{Current: 3, Total: 10}},
			want: "[scraping] Processing\n[#########---------------------] 3/10 (30%)",
		},
		{
			name: "success hides bar",
			snap: model.Snapshot{State: model.JobStateSuccess, Message: "done", Progress: model.Progress{Current: 10, Total: 10}},
			want: "[success] done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSnapshot(tt.snap))
		})
	}
}

func TestRenderer_SkipsRepeats(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out, "job-1: ")

	s := model.Snapshot{State: model.JobStateScraping, Message: "Processing", Progress: model.Progress{Current: 1, Total: 4}}
	r.render(s)
	r.render(s)
	s.Progress.Current = 2
	r.render(s)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "job-1: [scraping]"))
	assert.Contains(t, lines[3], "2/4 (50%)")
}
