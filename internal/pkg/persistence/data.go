package persistence

import (
	"strconv"

	"github.com/airenas/clipper/internal/pkg/status"
	"github.com/airenas/clipper/internal/pkg/table"
)

// audio generation table columns
const (
	ColInputText = "input_text"
	ColVoiceType = "voice_type"
	ColScript    = "script"
	ColAudioPath = "audio_path"
)

// summaries table columns
const (
	ColCountry        = "country"
	ColSource         = "source"
	ColPages          = "pages"
	ColTopic          = "topic"
	ColSummary        = "summary"
	ColPeopleInvolved = "people_involved"
)

var (
	// AudioHeaders of audio generation table
	AudioHeaders = []string{table.ColID, ColInputText, table.ColStatus, ColVoiceType, ColScript, ColAudioPath}
	// SummaryHeaders of summaries table
	SummaryHeaders = []string{table.ColID, ColCountry, ColSource, ColPages, ColTopic, ColSummary, ColPeopleInvolved}
)

type (
	// Audio is a typed view of an audio generation row
	Audio struct {
		ID        int
		InputText string
		Status    status.Status
		VoiceType string
		Script    string
		AudioPath string
	}

	// Summary is a typed view of a summaries row
	Summary struct {
		ID             int
		Country        string
		Source         string
		Pages          string
		Topic          string
		Summary        string
		PeopleInvolved string
	}
)

// AudioFrom maps row to Audio
func AudioFrom(r table.Row) *Audio {
	return &Audio{ID: r.ID(), InputText: r[ColInputText], Status: status.From(r[table.ColStatus]),
		VoiceType: r[ColVoiceType], Script: r[ColScript], AudioPath: r[ColAudioPath]}
}

// SummaryFrom maps row to Summary
func SummaryFrom(r table.Row) *Summary {
	return &Summary{ID: r.ID(), Country: r[ColCountry], Source: r[ColSource], Pages: r[ColPages],
		Topic: r[ColTopic], Summary: r[ColSummary], PeopleInvolved: r[ColPeopleInvolved]}
}

// Row maps Summary to a row for append, id is assigned by the table
func (s *Summary) Row() table.Row {
	res := table.Row{ColCountry: s.Country, ColSource: s.Source, ColPages: s.Pages,
		ColTopic: s.Topic, ColSummary: s.Summary, ColPeopleInvolved: s.PeopleInvolved}
	if s.ID > 0 {
		res[table.ColID] = strconv.Itoa(s.ID)
	}
	return res
}
