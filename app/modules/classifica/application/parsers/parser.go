package parsers

import (
	"errors"
	"fmt"
	"time"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/Black-And-White-Club/pinfall-import/config"
)

// Options holds every threshold the parser uses.
type Options struct {
	MinScore            int
	MaxScore            int
	LeadingNoiseCeiling int
	LeadingNoiseAnchor  int
	TeamTotalFloor      int
	TeamTotalMargin     float64
	MinDataCells        int
	HeaderScanRows      int
	MaxDivisionLength   int
}

// OptionsFromConfig copies the scoring section of the configuration.
func OptionsFromConfig(cfg config.ScoringConfig) Options {
	return Options{
		MinScore:            cfg.MinScore,
		MaxScore:            cfg.MaxScore,
		LeadingNoiseCeiling: cfg.LeadingNoiseCeiling,
		LeadingNoiseAnchor:  cfg.LeadingNoiseAnchor,
		TeamTotalFloor:      cfg.TeamTotalFloor,
		TeamTotalMargin:     cfg.TeamTotalMargin,
		MinDataCells:        cfg.MinDataCells,
		HeaderScanRows:      cfg.HeaderScanRows,
		MaxDivisionLength:   cfg.MaxDivisionLength,
	}
}

// DefaultOptions returns the options of the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Scoring)
}

// Parser runs tokenizing, column inference, division tagging and score
// extraction over one document. It keeps no state between calls.
type Parser struct {
	factory TokenizerFactory
	rules   []ColumnRule
	opts    Options
	now     func() time.Time
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithColumnRules appends rules after the defaults, so a new federation
// layout can be supported without touching extraction.
func WithColumnRules(rules ...ColumnRule) ParserOption {
	return func(p *Parser) {
		p.rules = append(p.rules, rules...)
	}
}

// WithTokenizerFactory replaces the tokenizer factory.
func WithTokenizerFactory(f TokenizerFactory) ParserOption {
	return func(p *Parser) {
		p.factory = f
	}
}

// WithClock sets the reference time for relative dates.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a parser with the default column rules.
func NewParser(opts Options, options ...ParserOption) *Parser {
	p := &Parser{
		factory: NewFactory(),
		rules:   append([]ColumnRule(nil), DefaultColumnRules...),
		opts:    opts,
		now:     time.Now,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Parse extracts results from data. Only an unusable input
// (ErrNoTabularDataFound, unsupported file) is an error; a missing header
// is reported as a warning and per-row fallbacks are used.
func (p *Parser) Parse(data []byte, fileName, contentType string) (*classificadomain.ParsedClassifica, error) {
	tokenizer, err := p.factory.GetTokenizer(fileName, contentType, data)
	if err != nil {
		return nil, err
	}

	rows, err := tokenizer.Tokenize(data)
	if err != nil {
		return nil, err
	}

	parsed := &classificadomain.ParsedClassifica{}

	mapping, err := InferColumns(rows, p.rules, p.opts.HeaderScanRows)
	if err != nil {
		if !errors.Is(err, ErrNoColumnsInferred) {
			return nil, err
		}
		parsed.Warnings = append(parsed.Warnings, err.Error())
	}
	parsed.Mapping = mapping

	tagged := TagDivisions(rows, DivisionOptions{
		MinDataCells:      p.opts.MinDataCells,
		MaxDivisionLength: p.opts.MaxDivisionLength,
		Rules:             p.rules,
	})

	parsed.Results = ExtractResults(tagged, mapping, ExtractOptions{
		MinScore:            p.opts.MinScore,
		MaxScore:            p.opts.MaxScore,
		LeadingNoiseCeiling: p.opts.LeadingNoiseCeiling,
		LeadingNoiseAnchor:  p.opts.LeadingNoiseAnchor,
		TeamTotalFloor:      p.opts.TeamTotalFloor,
		TeamTotalMargin:     p.opts.TeamTotalMargin,
		MinDataCells:        p.opts.MinDataCells,
		Rules:               p.rules,
	})
	if len(parsed.Results) == 0 {
		parsed.Warnings = append(parsed.Warnings, "no result rows extracted")
	}
	for _, r := range parsed.Results {
		if r.TeamTotalInferred {
			parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("team total for %q was inferred and needs review", r.AthleteName))
		}
	}

	meta := ExtractMetadata(data, rows, mapping.HeaderRow, p.now())
	parsed.TournamentName = meta.TournamentName
	parsed.StartDate = meta.StartDate

	return parsed, nil
}
