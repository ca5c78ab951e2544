package persistence

import (
	"testing"

	"github.com/airenas/clipper/internal/pkg/status"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/stretchr/testify/assert"
)

func TestAudioFrom(t *testing.T) {
	got := AudioFrom(table.Row{"id": "3", "input_text": "t", "status": "error: x", "voice_type": "nova",
		"script": "{}", "audio_path": "a.mp3"})
	assert.Equal(t, &Audio{ID: 3, InputText: "t", Status: status.FailedWith("x"), VoiceType: "nova",
		Script: "{}", AudioPath: "a.mp3"}, got)
}

func TestAudioFrom_Empty(t *testing.T) {
	got := AudioFrom(table.Row{})
	assert.Equal(t, 0, got.ID)
	assert.Equal(t, status.Unknown, got.Status.Kind)
}

func TestSummary_Row(t *testing.T) {
	s := &Summary{Country: "Australia", Source: "a.pdf", Pages: "15,16", Topic: "t", Summary: "s",
		PeopleInvolved: "A, B"}
	r := s.Row()
	_, hasID := r[table.ColID]
	assert.False(t, hasID)
	assert.Equal(t, s, SummaryFrom(r))
	s.ID = 2
	assert.Equal(t, "2", s.Row()[table.ColID])
}
