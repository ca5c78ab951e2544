package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airenas/clipper/internal/pkg/llm"
	"github.com/airenas/clipper/internal/pkg/persistence"
	"github.com/airenas/clipper/internal/pkg/status"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

// failure stages
const (
	StageCreate = "create"
	StageScript = "script"
	StageSpeech = "speech"
	StageSave   = "save"
)

// RowStore persists audio generation jobs
type RowStore interface {
	AppendRows(rows ...table.Row) (int, error)
	UpdateRow(id int, fields table.Row) (bool, error)
	GetRow(id int) (table.Row, bool, error)
	GetPendingRows() ([]table.Row, error)
}

// ScriptWriter makes a short script from text
type ScriptWriter interface {
	GenerateScript(ctx context.Context, text string) (*llm.Script, error)
}

// Speaker synthesizes mp3 audio
type Speaker interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Notifier is informed after each status change of a row
type Notifier interface {
	Notify(id int) error
}

// Result of a completed generation
type Result struct {
	ID        int         `json:"id"`
	Status    string      `json:"status"`
	AudioPath string      `json:"audio_path"`
	Script    *llm.Script `json:"script"`
}

// Service runs the text -> script -> speech pipeline and records progress in the table
type Service struct {
	table    RowStore
	writer   ScriptWriter
	speaker  Speaker
	outDir   string
	notifier Notifier
}

// NewService creates audio generation service
func NewService(table RowStore, writer ScriptWriter, speaker Speaker, outDir string) (*Service, error) {
	if table == nil {
		return nil, errors.New("no table")
	}
	if writer == nil {
		return nil, errors.New("no script writer")
	}
	if speaker == nil {
		return nil, errors.New("no speaker")
	}
	if strings.TrimSpace(outDir) == "" {
		return nil, errors.New("no output dir")
	}
	return &Service{table: table, writer: writer, speaker: speaker, outDir: outDir}, nil
}

// WithNotifier sets status change listener
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// Submit records a new job and runs it to completion or failure
func (s *Service) Submit(ctx context.Context, inputText, voiceType string) (*Result, error) {
	defer goapp.Estimate("audio submit")()
	if strings.TrimSpace(voiceType) == "" {
		voiceType = llm.DefaultVoice
	}
	id, err := s.table.AppendRows(table.Row{persistence.ColInputText: inputText,
		table.ColStatus: status.Pending.String(), persistence.ColVoiceType: voiceType})
	if err != nil {
		return nil, utils.NewErrStage(StageCreate, err)
	}
	goapp.Log.Info().Int("ID", id).Str("voice", voiceType).Msg("audio job created")
	s.notify(id)

	script, err := s.writer.GenerateScript(ctx, inputText)
	if err != nil {
		return nil, s.fail(id, StageScript, err)
	}
	sb, err := json.Marshal(script)
	if err != nil {
		return nil, s.fail(id, StageScript, err)
	}
	if err := s.update(id, table.Row{persistence.ColScript: string(sb),
		table.ColStatus: status.ScriptGenerated.String()}); err != nil {
		return nil, s.fail(id, StageScript, err)
	}

	audio, err := s.speaker.Synthesize(ctx, script.Soundbite, voiceType)
	if err != nil {
		return nil, s.fail(id, StageSpeech, err)
	}
	fn := filepath.Join(s.outDir, FileName(script.Soundbite, id))
	if err := utils.WriteFile(fn, audio); err != nil {
		return nil, s.fail(id, StageSave, err)
	}
	if err := s.update(id, table.Row{persistence.ColAudioPath: fn,
		table.ColStatus: status.Completed.String()}); err != nil {
		return nil, s.fail(id, StageSave, err)
	}
	goapp.Log.Info().Int("ID", id).Str("file", fn).Msg("audio job completed")
	return &Result{ID: id, Status: status.Completed.String(), AudioPath: fn, Script: script}, nil
}

// GetStatus returns the job row
func (s *Service) GetStatus(ctx context.Context, id int) (table.Row, bool, error) {
	return s.table.GetRow(id)
}

// GetPending returns jobs still in pending state
func (s *Service) GetPending(ctx context.Context) ([]table.Row, error) {
	return s.table.GetPendingRows()
}

// FileName makes the audio file name for the row
func FileName(soundbite string, id int) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(soundbite))
	return fmt.Sprintf("speech_%x_row_%s.mp3", h.Sum64(), strconv.Itoa(id))
}

func (s *Service) update(id int, fields table.Row) error {
	ok, err := s.table.UpdateRow(id, fields)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("no row %d", id)
	}
	s.notify(id)
	return nil
}

func (s *Service) fail(id int, stage string, err error) error {
	goapp.Log.Error().Err(err).Int("ID", id).Str("stage", stage).Msg("audio job failed")
	if _, uErr := s.table.UpdateRow(id, table.Row{table.ColStatus: status.FailedWith(err.Error()).String()}); uErr != nil {
		goapp.Log.Error().Err(uErr).Int("ID", id).Msg("can't save failure")
	}
	s.notify(id)
	return utils.NewErrStage(stage, err)
}

func (s *Service) notify(id int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(id); err != nil {
		goapp.Log.Warn().Err(err).Int("ID", id).Msg("can't notify")
	}
}
