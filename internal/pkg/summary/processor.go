package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/airenas/clipper/internal/pkg/document"
	"github.com/airenas/clipper/internal/pkg/llm"
	"github.com/airenas/clipper/internal/pkg/persistence"
	"github.com/airenas/clipper/internal/pkg/table"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
)

// RowStore keeps extracted summaries
type RowStore interface {
	AppendRows(rows ...table.Row) (int, error)
	GetRow(id int) (table.Row, bool, error)
}

// Extractor returns text of document pages
type Extractor interface {
	Pages(path string) ([]document.Page, error)
}

// Classifier summarizes and grades a chunk of text
type Classifier interface {
	Classify(ctx context.Context, chunk string) (*llm.ChunkSummary, error)
}

// Options of document processing
type Options struct {
	Country string
	// FirstPage is the first processed page number, pages are numbered from 1.
	// Zero means the default, 1 processes the whole document
	FirstPage     int
	PagesPerChunk int
}

// DefaultOptions returns options of parliament transcripts
func DefaultOptions() Options {
	return Options{Country: "Australia", FirstPage: 15, PagesPerChunk: 4}
}

// Processor splits documents into chunks and stores valuable summaries
type Processor struct {
	table      RowStore
	extractor  Extractor
	classifier Classifier
	opts       Options
}

// NewProcessor creates processor, zero options fall back to defaults
func NewProcessor(table RowStore, extractor Extractor, classifier Classifier, opts Options) (*Processor, error) {
	if table == nil {
		return nil, errors.New("no table")
	}
	if extractor == nil {
		return nil, errors.New("no extractor")
	}
	if classifier == nil {
		return nil, errors.New("no classifier")
	}
	def := DefaultOptions()
	if strings.TrimSpace(opts.Country) == "" {
		opts.Country = def.Country
	}
	if opts.FirstPage < 0 {
		return nil, errors.Errorf("wrong first page %d", opts.FirstPage)
	}
	if opts.FirstPage == 0 {
		opts.FirstPage = def.FirstPage
	}
	if opts.PagesPerChunk <= 0 {
		opts.PagesPerChunk = def.PagesPerChunk
	}
	return &Processor{table: table, extractor: extractor, classifier: classifier, opts: opts}, nil
}

type chunk struct {
	pages []int
	text  string
}

// ProcessDocument classifies the document and appends rows for valuable chunks,
// returns the count of appended rows
func (p *Processor) ProcessDocument(ctx context.Context, pdfPath string) (int, error) {
	defer goapp.Estimate("process document")()
	pages, err := p.extractor.Pages(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("can't read pages: %w", err)
	}
	chunks := p.makeChunks(pages)
	goapp.Log.Info().Str("file", pdfPath).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("processing")
	res := 0
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		cs, err := p.classifier.Classify(ctx, ch.text)
		if err != nil {
			return res, fmt.Errorf("can't classify pages %v: %w", ch.pages, err)
		}
		if cs.IsValuable != llm.ValueGood {
			goapp.Log.Debug().Str("value", cs.IsValuable).Ints("pages", ch.pages).Msg("skip chunk")
			continue
		}
		rows := p.toRows(pdfPath, ch, cs)
		if len(rows) == 0 {
			continue
		}
		if _, err := p.table.AppendRows(rows...); err != nil {
			return res, fmt.Errorf("can't save summaries: %w", err)
		}
		res += len(rows)
		goapp.Log.Info().Int("rows", len(rows)).Ints("pages", ch.pages).Msg("saved summaries")
	}
	return res, nil
}

// GetSummary returns the summary row
func (p *Processor) GetSummary(ctx context.Context, id int) (table.Row, bool, error) {
	return p.table.GetRow(id)
}

func (p *Processor) makeChunks(pages []document.Page) []*chunk {
	var res []*chunk
	var cur *chunk
	for _, pg := range pages {
		if pg.Number < p.opts.FirstPage {
			continue
		}
		if cur == nil {
			cur = &chunk{}
		}
		cur.pages = append(cur.pages, pg.Number)
		cur.text += pg.Text
		if len(cur.pages) == p.opts.PagesPerChunk {
			res = append(res, cur)
			cur = nil
		}
	}
	if cur != nil {
		res = append(res, cur)
	}
	return res
}

func (p *Processor) toRows(source string, ch *chunk, cs *llm.ChunkSummary) []table.Row {
	pages := make([]string, len(ch.pages))
	for i, n := range ch.pages {
		pages[i] = strconv.Itoa(n)
	}
	res := make([]table.Row, 0, len(cs.Summaries))
	for _, s := range cs.Summaries {
		ps := persistence.Summary{Country: p.opts.Country, Source: source, Pages: strings.Join(pages, ","),
			Topic: s.Topic, Summary: s.Summary, PeopleInvolved: strings.Join(s.RelatedPersonnel, ", ")}
		res = append(res, ps.Row())
	}
	return res
}
