package mocks

import (
	"context"

	"github.com/airenas/clipper/internal/pkg/document"
	"github.com/airenas/clipper/internal/pkg/llm"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/clipper/internal/pkg/youtube"
	"github.com/stretchr/testify/mock"
)

// Table is a row store mock
type Table struct{ mock.Mock }

func (m *Table) AppendRows(rows ...table.Row) (int, error) {
	args := m.Called(rows)
	return args.Int(0), args.Error(1)
}

func (m *Table) UpdateRow(id int, fields table.Row) (bool, error) {
	args := m.Called(id, fields)
	return args.Bool(0), args.Error(1)
}

func (m *Table) GetRow(id int) (table.Row, bool, error) {
	args := m.Called(id)
	return to[table.Row](args.Get(0)), args.Bool(1), args.Error(2)
}

func (m *Table) GetPendingRows() ([]table.Row, error) {
	args := m.Called()
	return to[[]table.Row](args.Get(0)), args.Error(1)
}

// LLM mocks script writer, speaker and chunk classifier
type LLM struct{ mock.Mock }

func (m *LLM) GenerateScript(ctx context.Context, text string) (*llm.Script, error) {
	args := m.Called(ctx, text)
	return to[*llm.Script](args.Get(0)), args.Error(1)
}

func (m *LLM) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	args := m.Called(ctx, text, voice)
	return to[[]byte](args.Get(0)), args.Error(1)
}

func (m *LLM) Classify(ctx context.Context, chunk string) (*llm.ChunkSummary, error) {
	args := m.Called(ctx, chunk)
	return to[*llm.ChunkSummary](args.Get(0)), args.Error(1)
}

// Extractor is pdf text extractor mock
type Extractor struct{ mock.Mock }

func (m *Extractor) Pages(path string) ([]document.Page, error) {
	args := m.Called(path)
	return to[[]document.Page](args.Get(0)), args.Error(1)
}

// Filer is artifact host mock
type Filer struct{ mock.Mock }

func (m *Filer) UploadFile(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// Fal is fal queue client mock
type Fal struct{ mock.Mock }

// Subscribe mock, set Run to fill res
func (m *Fal) Subscribe(ctx context.Context, app string, in, res interface{}) error {
	args := m.Called(ctx, app, in, res)
	return args.Error(0)
}

func (m *Fal) Download(ctx context.Context, url, file string) error {
	args := m.Called(ctx, url, file)
	return args.Error(0)
}

// Muxer is ffmpeg mock
type Muxer struct{ mock.Mock }

func (m *Muxer) Mash(ctx context.Context, video, audio, out string) error {
	args := m.Called(ctx, video, audio, out)
	return args.Error(0)
}

// Notifier is status push mock
type Notifier struct{ mock.Mock }

func (m *Notifier) Notify(id int) error {
	args := m.Called(id)
	return args.Error(0)
}

// Publisher is youtube uploader mock
type Publisher struct{ mock.Mock }

func (m *Publisher) Upload(ctx context.Context, video *youtube.Video) (string, error) {
	args := m.Called(ctx, video)
	return args.String(0), args.Error(1)
}

// Processor is pdf processing mock
type Processor struct{ mock.Mock }

func (m *Processor) ProcessDocument(ctx context.Context, pdfPath string) (int, error) {
	args := m.Called(ctx, pdfPath)
	return args.Int(0), args.Error(1)
}

func (m *Processor) GetSummary(ctx context.Context, id int) (table.Row, bool, error) {
	args := m.Called(ctx, id)
	return to[table.Row](args.Get(0)), args.Bool(1), args.Error(2)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
