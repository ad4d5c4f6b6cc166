package record

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"kifu/internal/bootstrap"
	"kifu/internal/domain/kif"
)

// State of the line scanner.
type State int

const (
	AwaitingSection State = iota
	InMainLine
	VariationStarting
	InVariationBody
)

func (s State) String() string {
	switch s {
	case AwaitingSection:
		return "awaiting-section"
	case InMainLine:
		return "main-line"
	case VariationStarting:
		return "variation-starting"
	case InVariationBody:
		return "variation-body"
	}
	return "unknown"
}

// ScannerConfig - маркеры секций и границы колонки с номером хода.
// From and To are rune offsets, To exclusive.
type ScannerConfig struct {
	MainLineMarker  string
	VariationMarker string
	From            int
	To              int
}

func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		MainLineMarker:  bootstrap.DefaultMainLineMarker,
		VariationMarker: bootstrap.DefaultVariationMarker,
		From:            bootstrap.DefaultMoveNumberFrom,
		To:              bootstrap.DefaultMoveNumberTo,
	}
}

func ScannerConfigFrom(cfg bootstrap.Config) ScannerConfig {
	return ScannerConfig{
		MainLineMarker:  cfg.MainLineMarker,
		VariationMarker: cfg.VariationMarker,
		From:            cfg.MoveNumberFrom,
		To:              cfg.MoveNumberTo,
	}
}

// "( 0:01/00:00:01)" at the end of a KIF move line
var timeAnnotation = regexp.MustCompile(`\s*\(\s*\d+:\d+(/\d+:\d+:\d+)?\)\s*$`)

// ParseMoveRecord reads the move number column of line. Lines too short for the
// column or with no integer in it come back as Unrecognized.
func ParseMoveRecord(line string, cfg ScannerConfig) kif.MoveRecord {
	runes := []rune(line)
	if cfg.From < 0 || cfg.To <= cfg.From || len(runes) < cfg.To {
		return kif.Unrecognized(line)
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(runes[cfg.From:cfg.To])))
	if err != nil {
		return kif.Unrecognized(line)
	}

	rec := kif.Recorded(n, line)
	rec.Text = strings.TrimSpace(timeAnnotation.ReplaceAllString(string(runes[cfg.To:]), ""))
	return rec
}

// Parser turns decoded KIF lines into a sequence tree in one pass. A Parser is
// used for a single record and is not safe for concurrent use.
type Parser struct {
	cfg          ScannerConfig
	log          *zap.SugaredLogger
	arena        *kif.Arena
	state        State
	line         int
	sawSection   bool
	headers      []kif.Header
	unrecognized int
	err          error
}

func NewParser(cfg ScannerConfig, log *zap.SugaredLogger) *Parser {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Parser{
		cfg:   cfg,
		log:   log,
		arena: kif.NewArena(),
		state: AwaitingSection,
	}
}

func (p *Parser) State() State {
	return p.state
}

// Feed processes the next line. It returns the move record parsed from a
// section line, nil for lines outside sections. After an orphan branch point
// every call returns the same error.
func (p *Parser) Feed(line string) (*kif.MoveRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.line++

	switch p.state {
	case AwaitingSection:
		switch {
		case p.cfg.MainLineMarker != "" && strings.HasPrefix(line, p.cfg.MainLineMarker):
			p.sawSection = true
			p.state = InMainLine
		case p.cfg.VariationMarker != "" && strings.HasPrefix(line, p.cfg.VariationMarker):
			p.sawSection = true
			p.state = VariationStarting
		case !p.sawSection:
			p.collectHeader(line)
		}
		return nil, nil

	case InMainLine, InVariationBody:
		if line == "" {
			p.state = AwaitingSection
			return nil, nil
		}
		rec := p.parse(line)
		p.arena.AppendMove(rec)
		return &rec, nil

	case VariationStarting:
		rec := p.parse(line)
		p.state = InVariationBody
		if !rec.IsRecorded() {
			// ветка не открывается, строка просто поглощается
			return &rec, nil
		}
		splice, err := p.arena.BeginVariation(rec.SourceMoveNumber)
		if err != nil {
			p.err = err
			p.log.Warnw("variation does not attach to the tree", "line", p.line, "move", rec.SourceMoveNumber)
			return &rec, err
		}
		p.log.Debugw("variation started",
			"line", p.line,
			"move", rec.SourceMoveNumber,
			"parent", splice.Parent,
			"split", splice.Split(),
		)
		p.arena.AppendMove(rec)
		return &rec, nil
	}
	return nil, nil
}

// Parse feeds every line and stops at the first error.
func (p *Parser) Parse(lines []string) error {
	for _, line := range lines {
		if _, err := p.Feed(line); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) Tree() *kif.Tree {
	return p.arena.Snapshot()
}

func (p *Parser) Headers() []kif.Header {
	return append([]kif.Header(nil), p.headers...)
}

// Unrecognized counts section lines whose move number column did not parse.
func (p *Parser) Unrecognized() int {
	return p.unrecognized
}

func (p *Parser) parse(line string) kif.MoveRecord {
	rec := ParseMoveRecord(line, p.cfg)
	rec.Line = p.line
	if !rec.IsRecorded() {
		p.unrecognized++
		p.log.Debugw("skipping line without move number", "line", p.line, "state", p.state.String())
	}
	return rec
}

func (p *Parser) collectHeader(line string) {
	idx := strings.IndexAny(line, "：:")
	if idx <= 0 {
		return
	}
	key := strings.TrimSpace(line[:idx])
	_, size := utf8.DecodeRuneInString(line[idx:])
	value := strings.TrimSpace(line[idx+size:])
	if key == "" || strings.HasPrefix(key, "#") {
		return
	}
	p.headers = append(p.headers, kif.Header{Key: key, Value: value})
}
