package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"kifu/internal/bootstrap"
	"kifu/internal/domain/kif"
	errs "kifu/internal/errors"
)

type RecordStore interface {
	GenerateRecordKey(ctx context.Context) string
	PutRecordToMongoDatabase(ctx context.Context, rec kif.Record) error
	GetRecordByKey(ctx context.Context, key string) (kif.Record, error)
	SaveRecordToRedis(ctx context.Context, rec kif.Record) error
	LoadRecordFromRedis(ctx context.Context, key string) (kif.Record, error)
	ListRecords(ctx context.Context, pageNum, pageLimit int) ([]kif.RecordSummary, int, error)
}

type RecordUseCase struct {
	store     RecordStore
	log       *zap.SugaredLogger
	scanner   ScannerConfig
	encoding  string
	pageLimit int
	memory    *gocache.Cache
}

func NewRecordUseCase(store RecordStore, log *zap.SugaredLogger, cfg bootstrap.Config) *RecordUseCase {
	return &RecordUseCase{
		store:     store,
		log:       log,
		scanner:   ScannerConfigFrom(cfg),
		encoding:  cfg.SourceEncoding,
		pageLimit: cfg.PageLimitRecords,
		memory:    gocache.New(cfg.RecordCacheTTL, 10*time.Minute),
	}
}

// NewParser starts a parse session with the configured scanner.
func (u *RecordUseCase) NewParser() *Parser {
	return NewParser(u.scanner, u.log)
}

// Parse builds a record from already decoded lines. Nothing is stored.
func (u *RecordUseCase) Parse(name string, lines []string) (kif.Record, error) {
	parser := u.NewParser()
	if err := parser.Parse(lines); err != nil {
		return kif.Record{}, err
	}
	return u.Finish(name, parser)
}

// Finish turns a fed parser into a record.
func (u *RecordUseCase) Finish(name string, parser *Parser) (kif.Record, error) {
	tree := parser.Tree()
	if err := tree.Validate(); err != nil {
		u.log.Errorf("parsed tree violates invariants: %v", err)
		return kif.Record{}, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}

	rec := kif.Record{
		Name:         name,
		Headers:      parser.Headers(),
		Tree:         tree.Document(),
		Unrecognized: parser.Unrecognized(),
		CreatedAt:    time.Now().UTC(),
	}
	return rec, nil
}

// Import decodes raw bytes, parses them and stores the result.
func (u *RecordUseCase) Import(ctx context.Context, name string, raw io.Reader, encoding string) (kif.Record, error) {
	if encoding == "" {
		encoding = u.encoding
	}
	lines, err := DecodeLines(raw, encoding)
	if err != nil {
		return kif.Record{}, err
	}

	rec, err := u.Parse(name, lines)
	if err != nil {
		return kif.Record{}, err
	}
	return u.Save(ctx, rec)
}

// Save refuses records without a single move.
func (u *RecordUseCase) Save(ctx context.Context, rec kif.Record) (kif.Record, error) {
	if rec.MoveCount() == 0 {
		return kif.Record{}, errs.ErrEmptyRecord
	}
	rec.Key = u.store.GenerateRecordKey(ctx)

	if err := u.store.PutRecordToMongoDatabase(ctx, rec); err != nil {
		return kif.Record{}, err
	}
	if err := u.store.SaveRecordToRedis(ctx, rec); err != nil {
		// mongo остаётся источником правды
		u.log.Warnf("failed to cache record %s in redis: %v", rec.Key, err)
	}
	u.memory.SetDefault(rec.Key, rec)

	u.log.Infow("record stored",
		"key", rec.Key,
		"name", rec.Name,
		"sequences", len(rec.Tree.Sequences),
		"moves", rec.MoveCount(),
		"unrecognized", rec.Unrecognized,
	)
	return rec, nil
}

// Get looks in memory, then redis, then mongo, promoting what it finds.
func (u *RecordUseCase) Get(ctx context.Context, key string) (kif.Record, error) {
	if cached, ok := u.memory.Get(key); ok {
		return cached.(kif.Record), nil
	}

	rec, err := u.store.LoadRecordFromRedis(ctx, key)
	if err == nil {
		u.memory.SetDefault(key, rec)
		return rec, nil
	}
	if !errors.Is(err, errs.ErrRecordNotFound) {
		u.log.Warnf("redis lookup for %s failed: %v", key, err)
	}

	rec, err = u.store.GetRecordByKey(ctx, key)
	if err != nil {
		return kif.Record{}, err
	}
	if err = u.store.SaveRecordToRedis(ctx, rec); err != nil {
		u.log.Warnf("failed to cache record %s in redis: %v", key, err)
	}
	u.memory.SetDefault(key, rec)
	return rec, nil
}

// Line returns the moves from the first move to the end of sequence id.
func (u *RecordUseCase) Line(ctx context.Context, key string, id kif.SequenceID) ([]kif.MoveRecord, error) {
	rec, err := u.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	tree, err := rec.TreeView()
	if err != nil {
		return nil, err
	}
	return tree.Line(id)
}

// Sequences outlines the variation tree of a stored record.
func (u *RecordUseCase) Sequences(ctx context.Context, key string) ([]kif.SequenceOutline, error) {
	rec, err := u.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	tree, err := rec.TreeView()
	if err != nil {
		return nil, err
	}
	return tree.Outline()
}

// MoveAt returns move number n of sequence id.
func (u *RecordUseCase) MoveAt(ctx context.Context, key string, id kif.SequenceID, n int) (kif.MoveRecord, error) {
	rec, err := u.Get(ctx, key)
	if err != nil {
		return kif.MoveRecord{}, err
	}
	tree, err := rec.TreeView()
	if err != nil {
		return kif.MoveRecord{}, err
	}
	if _, err = tree.Get(id); err != nil {
		return kif.MoveRecord{}, err
	}
	move, ok := tree.MoveAt(id, n)
	if !ok {
		return kif.MoveRecord{}, fmt.Errorf("%w: move %d of sequence %d", errs.ErrMoveNotFound, n, id)
	}
	return move, nil
}

// List returns a page of stored records, newest first. Pages start at 1.
func (u *RecordUseCase) List(ctx context.Context, pageNum int) (kif.RecordPage, error) {
	if pageNum < 1 {
		return kif.RecordPage{}, errs.ErrInvalidPage
	}
	limit := u.pageLimit
	if limit <= 0 {
		limit = 20
	}

	summaries, totalPages, err := u.store.ListRecords(ctx, pageNum, limit)
	if err != nil {
		return kif.RecordPage{}, err
	}
	return kif.RecordPage{
		PageNum:    pageNum,
		TotalPages: totalPages,
		Records:    summaries,
	}, nil
}
