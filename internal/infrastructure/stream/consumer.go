package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/nayeem-ahmad/ndc95/internal/domain"
)

// Handler is invoked once for every newly created verification code record.
type Handler func(ctx context.Context, code *domain.VerificationCode) error

// tableAPI is the slice of the DynamoDB API the consumer needs to locate the
// table's stream.
type tableAPI interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// streamsAPI is the slice of the DynamoDB Streams API the consumer reads with.
type streamsAPI interface {
	DescribeStream(ctx context.Context, in *dynamodbstreams.DescribeStreamInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, in *dynamodbstreams.GetShardIteratorInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, in *dynamodbstreams.GetRecordsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error)
}

// Consumer subscribes to the verification_codes table stream and dispatches
// INSERT events to its handler. MODIFY events — including the handler's own
// outcome updates — are ignored, so a creation is processed exactly once per
// stream record.
type Consumer struct {
	db      tableAPI
	streams streamsAPI
	table   string
	poll    time.Duration
	handler Handler

	// shardID -> current iterator. A missing entry means the shard hasn't
	// been discovered yet; an empty iterator means it is closed and fully
	// consumed. Read errors never empty an entry, so a live shard stays
	// retryable on the next poll.
	iterators map[string]string
}

func NewConsumer(db tableAPI, streams streamsAPI, table string, poll time.Duration, handler Handler) *Consumer {
	return &Consumer{
		db:        db,
		streams:   streams,
		table:     table,
		poll:      poll,
		handler:   handler,
		iterators: make(map[string]string),
	}
}

// Run polls the stream until ctx is cancelled. Poll errors are logged and
// retried on the next tick; only a cancelled context ends the loop.
func (c *Consumer) Run(ctx context.Context) error {
	arn, err := c.streamArn(ctx)
	if err != nil {
		return err
	}
	slog.Info("stream consumer started", "table", c.table, "stream_arn", arn)

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		if err := c.pollOnce(ctx, arn); err != nil {
			slog.Warn("stream poll failed", "table", c.table, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Consumer) streamArn(ctx context.Context) (string, error) {
	out, err := c.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	})
	if err != nil {
		return "", fmt.Errorf("describe table %s: %w", c.table, err)
	}
	if out.Table.LatestStreamArn == nil {
		return "", fmt.Errorf("table %s has no stream enabled", c.table)
	}
	return *out.Table.LatestStreamArn, nil
}

func (c *Consumer) pollOnce(ctx context.Context, arn string) error {
	if err := c.refreshShards(ctx, arn); err != nil {
		return err
	}
	for shardID, iterator := range c.iterators {
		if iterator == "" {
			continue
		}
		next, err := c.drainShard(ctx, iterator)
		if err != nil {
			// The iterator may have expired; re-acquire at the stream tip
			// rather than replaying from the horizon.
			slog.Warn("shard read failed, re-acquiring iterator", "shard", shardID, "err", err)
			next, err = c.shardIterator(ctx, arn, shardID, streamtypes.ShardIteratorTypeLatest)
			if err != nil {
				// Keep the stale iterator so the shard is retried next poll
				// instead of being mistaken for a closed one.
				slog.Warn("iterator re-acquire failed, retrying next poll", "shard", shardID, "err", err)
				continue
			}
		}
		c.iterators[shardID] = next
	}
	return nil
}

// refreshShards discovers stream shards. The shards present at startup are
// read from LATEST so a restart does not re-deliver mail for old records;
// shards that appear later (resharding) are read from TRIM_HORIZON so no
// creation event is skipped.
func (c *Consumer) refreshShards(ctx context.Context, arn string) error {
	out, err := c.streams.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{
		StreamArn: aws.String(arn),
	})
	if err != nil {
		return fmt.Errorf("describe stream: %w", err)
	}
	firstDiscovery := len(c.iterators) == 0
	for _, shard := range out.StreamDescription.Shards {
		shardID := aws.ToString(shard.ShardId)
		if _, seen := c.iterators[shardID]; seen {
			continue
		}
		iterType := streamtypes.ShardIteratorTypeTrimHorizon
		if firstDiscovery {
			iterType = streamtypes.ShardIteratorTypeLatest
		}
		iterator, err := c.shardIterator(ctx, arn, shardID, iterType)
		if err != nil {
			return err
		}
		c.iterators[shardID] = iterator
	}
	return nil
}

func (c *Consumer) shardIterator(ctx context.Context, arn, shardID string, iterType streamtypes.ShardIteratorType) (string, error) {
	out, err := c.streams.GetShardIterator(ctx, &dynamodbstreams.GetShardIteratorInput{
		StreamArn:         aws.String(arn),
		ShardId:           aws.String(shardID),
		ShardIteratorType: iterType,
	})
	if err != nil {
		return "", fmt.Errorf("get shard iterator %s: %w", shardID, err)
	}
	return aws.ToString(out.ShardIterator), nil
}

// drainShard reads one batch of records from the iterator and dispatches the
// INSERT events, returning the follow-up iterator (empty when the shard is
// closed and fully consumed).
func (c *Consumer) drainShard(ctx context.Context, iterator string) (string, error) {
	out, err := c.streams.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{
		ShardIterator: aws.String(iterator),
		Limit:         aws.Int32(100),
	})
	if err != nil {
		return "", err
	}
	for _, record := range out.Records {
		if record.EventName != streamtypes.OperationTypeInsert {
			continue
		}
		c.dispatch(ctx, record)
	}
	return aws.ToString(out.NextShardIterator), nil
}

func (c *Consumer) dispatch(ctx context.Context, record streamtypes.Record) {
	if record.Dynamodb == nil || record.Dynamodb.NewImage == nil {
		return
	}
	image, err := convertImage(record.Dynamodb.NewImage)
	if err != nil {
		slog.Warn("skipping malformed stream record", "err", err)
		return
	}
	var code domain.VerificationCode
	if err := attributevalue.UnmarshalMap(image, &code); err != nil {
		slog.Warn("skipping undecodable stream record", "err", err)
		return
	}
	if err := c.handler(ctx, &code); err != nil {
		// The handler records delivery failures on the item itself; here the
		// failure only ends this invocation, the next creation re-triggers.
		slog.Error("creation handler failed", "email", code.Email, "err", err)
	}
}
