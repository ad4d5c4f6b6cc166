package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"kifu/internal/bootstrap"
	"kifu/internal/domain/kif"
	errs "kifu/internal/errors"
)

const (
	recordsCollection = "records"
	redisKeyPrefix    = "kifu:record:"
)

type RecordRepository struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	redis *redis.Client
	mongo *mongo.Database
}

func NewRecordRepository(cfg bootstrap.Config, log *zap.SugaredLogger, redis *redis.Client, mongo *mongo.Database) *RecordRepository {
	return &RecordRepository{
		cfg:   cfg,
		log:   log,
		redis: redis,
		mongo: mongo,
	}
}

func (r *RecordRepository) GenerateRecordKey(ctx context.Context) string {
	return uuid.New().String()
}

// EnsureIndexes creates the unique index on the record key.
func (r *RecordRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.mongo.Collection(recordsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create records index: %w", err)
	}
	return nil
}

func (r *RecordRepository) PutRecordToMongoDatabase(ctx context.Context, rec kif.Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.mongo.Collection(recordsCollection).InsertOne(ctx, rec)
	if err != nil {
		r.log.Errorf("failed to insert record to database: %v", err)
		return fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}

	r.log.Infof("record inserted successfully with key: %s", rec.Key)
	return nil
}

func (r *RecordRepository) GetRecordByKey(ctx context.Context, key string) (kif.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec kif.Record
	err := r.mongo.Collection(recordsCollection).FindOne(ctx, bson.M{"key": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return kif.Record{}, errs.ErrRecordNotFound
	} else if err != nil {
		r.log.Error(err)
		return kif.Record{}, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}
	return rec, nil
}

func (r *RecordRepository) SaveRecordToRedis(ctx context.Context, rec kif.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, redisKeyPrefix+rec.Key, payload, r.cfg.RecordCacheTTL).Err()
}

func (r *RecordRepository) LoadRecordFromRedis(ctx context.Context, key string) (kif.Record, error) {
	payload, err := r.redis.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return kif.Record{}, errs.ErrRecordNotFound
	} else if err != nil {
		return kif.Record{}, err
	}

	var rec kif.Record
	if err = json.Unmarshal(payload, &rec); err != nil {
		return kif.Record{}, fmt.Errorf("corrupted cached record %s: %w", key, err)
	}
	return rec, nil
}

// ListRecords returns one page of summaries, newest first, and the page count.
func (r *RecordRepository) ListRecords(ctx context.Context, pageNum, pageLimit int) ([]kif.RecordSummary, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := r.mongo.Collection(recordsCollection)
	total, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.log.Error(err)
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((pageNum - 1) * pageLimit)).
		SetLimit(int64(pageLimit)).
		SetProjection(bson.M{"tree": 0})

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.log.Error(err)
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}
	defer cursor.Close(ctx)

	summaries := make([]kif.RecordSummary, 0, pageLimit)
	if err = cursor.All(ctx, &summaries); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}

	totalPages := (int(total) + pageLimit - 1) / pageLimit
	return summaries, totalPages, nil
}
