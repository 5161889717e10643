package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessPaused(t *testing.T) {
	cases := []struct {
		name       string
		pauseTime  string
		resumeTime string
		want       bool
	}{
		{"never paused", "", "", false},
		{"paused no resume", "2024-01-01 09:20:00", "", true},
		{"resumed after pause", "2024-01-01 09:20:00", "2024-01-01 09:25:00", false},
		{"paused again after resume", "2024-01-01 09:30:00", "2024-01-01 09:25:00", true},
		{"resume without pause", "", "2024-01-01 09:25:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ProcessDescriptor{PauseTime: tc.pauseTime, ResumeTime: tc.resumeTime}
			assert.Equal(t, tc.want, p.Paused())
		})
	}
}

func TestGroupHasVideo(t *testing.T) {
	g := ConfirmGroup{
		ConfirmTime: "2024-01-01 10:00:00",
		Additions: []ChemicalAddition{
			{ID: 1, ConfirmTime: "2024-01-01 10:00:00"},
			{ID: 2, ConfirmTime: "2024-01-01 10:00:00"},
		},
	}
	assert.False(t, g.HasVideo())

	g.Additions[1].VideoRef = "proof-videos/drum-1/a.mp4"
	assert.True(t, g.HasVideo())
}
