package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/nayeem-ahmad/ndc95/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStreams struct {
	describe   func(in *dynamodbstreams.DescribeStreamInput) (*dynamodbstreams.DescribeStreamOutput, error)
	shardIter  func(in *dynamodbstreams.GetShardIteratorInput) (*dynamodbstreams.GetShardIteratorOutput, error)
	getRecords func(in *dynamodbstreams.GetRecordsInput) (*dynamodbstreams.GetRecordsOutput, error)
}

func (s *stubStreams) DescribeStream(_ context.Context, in *dynamodbstreams.DescribeStreamInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error) {
	return s.describe(in)
}

func (s *stubStreams) GetShardIterator(_ context.Context, in *dynamodbstreams.GetShardIteratorInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error) {
	return s.shardIter(in)
}

func (s *stubStreams) GetRecords(_ context.Context, in *dynamodbstreams.GetRecordsInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error) {
	return s.getRecords(in)
}

func describeShards(shardIDs ...string) func(*dynamodbstreams.DescribeStreamInput) (*dynamodbstreams.DescribeStreamOutput, error) {
	shards := make([]streamtypes.Shard, 0, len(shardIDs))
	for _, id := range shardIDs {
		shards = append(shards, streamtypes.Shard{ShardId: aws.String(id)})
	}
	return func(*dynamodbstreams.DescribeStreamInput) (*dynamodbstreams.DescribeStreamOutput, error) {
		return &dynamodbstreams.DescribeStreamOutput{
			StreamDescription: &streamtypes.StreamDescription{Shards: shards},
		}, nil
	}
}

func insertRecord(email, code string) streamtypes.Record {
	now := time.Now().UTC()
	return streamtypes.Record{
		EventName: streamtypes.OperationTypeInsert,
		Dynamodb: &streamtypes.StreamRecord{
			NewImage: map[string]streamtypes.AttributeValue{
				"email":      &streamtypes.AttributeValueMemberS{Value: email},
				"code":       &streamtypes.AttributeValueMemberS{Value: code},
				"created_at": &streamtypes.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
				"expires_at": &streamtypes.AttributeValueMemberS{Value: now.Add(10 * time.Minute).Format(time.RFC3339)},
			},
		},
	}
}

// A transient read failure followed by a failed iterator re-acquire must leave
// the shard retryable, not mark it closed.
func TestPollOnce_ReacquireFailureKeepsShardRetryable(t *testing.T) {
	var handled []string
	streams := &stubStreams{describe: describeShards("shard-1")}
	c := &Consumer{
		streams: streams,
		table:   "verification_codes",
		handler: func(_ context.Context, code *domain.VerificationCode) error {
			handled = append(handled, code.Email)
			return nil
		},
		iterators: map[string]string{"shard-1": "iter-1"},
	}

	// Both the read and the re-acquire fail.
	streams.getRecords = func(*dynamodbstreams.GetRecordsInput) (*dynamodbstreams.GetRecordsOutput, error) {
		return nil, errors.New("expired iterator")
	}
	streams.shardIter = func(*dynamodbstreams.GetShardIteratorInput) (*dynamodbstreams.GetShardIteratorOutput, error) {
		return nil, errors.New("throttled")
	}
	require.NoError(t, c.pollOnce(context.Background(), "arn"))
	assert.Equal(t, "iter-1", c.iterators["shard-1"])

	// Next poll: read still fails but the re-acquire recovers.
	streams.shardIter = func(in *dynamodbstreams.GetShardIteratorInput) (*dynamodbstreams.GetShardIteratorOutput, error) {
		assert.Equal(t, streamtypes.ShardIteratorTypeLatest, in.ShardIteratorType)
		return &dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("iter-2")}, nil
	}
	require.NoError(t, c.pollOnce(context.Background(), "arn"))
	assert.Equal(t, "iter-2", c.iterators["shard-1"])

	// Next poll: the recovered iterator delivers a creation event.
	streams.getRecords = func(in *dynamodbstreams.GetRecordsInput) (*dynamodbstreams.GetRecordsOutput, error) {
		assert.Equal(t, "iter-2", aws.ToString(in.ShardIterator))
		return &dynamodbstreams.GetRecordsOutput{
			Records:           []streamtypes.Record{insertRecord("a@b.com", "123456")},
			NextShardIterator: aws.String("iter-3"),
		}, nil
	}
	require.NoError(t, c.pollOnce(context.Background(), "arn"))
	assert.Equal(t, []string{"a@b.com"}, handled)
	assert.Equal(t, "iter-3", c.iterators["shard-1"])
}

// A shard whose GetRecords response has no follow-up iterator is closed and
// must not be read again.
func TestPollOnce_ClosedShardIsNotReread(t *testing.T) {
	reads := 0
	streams := &stubStreams{describe: describeShards("shard-1")}
	streams.getRecords = func(*dynamodbstreams.GetRecordsInput) (*dynamodbstreams.GetRecordsOutput, error) {
		reads++
		return &dynamodbstreams.GetRecordsOutput{}, nil
	}
	c := &Consumer{
		streams:   streams,
		table:     "verification_codes",
		handler:   func(context.Context, *domain.VerificationCode) error { return nil },
		iterators: map[string]string{"shard-1": "iter-1"},
	}

	require.NoError(t, c.pollOnce(context.Background(), "arn"))
	require.NoError(t, c.pollOnce(context.Background(), "arn"))
	assert.Equal(t, 1, reads)
	assert.Equal(t, "", c.iterators["shard-1"])
}

// Startup shards are read from the stream tip; shards appearing later are read
// from the horizon so no creation event between polls is skipped.
func TestRefreshShards_IteratorTypes(t *testing.T) {
	var requested []streamtypes.ShardIteratorType
	streams := &stubStreams{describe: describeShards("shard-1")}
	streams.shardIter = func(in *dynamodbstreams.GetShardIteratorInput) (*dynamodbstreams.GetShardIteratorOutput, error) {
		requested = append(requested, in.ShardIteratorType)
		return &dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String("iter-" + aws.ToString(in.ShardId))}, nil
	}
	c := &Consumer{
		streams:   streams,
		table:     "verification_codes",
		iterators: map[string]string{},
	}

	require.NoError(t, c.refreshShards(context.Background(), "arn"))

	streams.describe = describeShards("shard-1", "shard-2")
	require.NoError(t, c.refreshShards(context.Background(), "arn"))

	assert.Equal(t, []streamtypes.ShardIteratorType{
		streamtypes.ShardIteratorTypeLatest,
		streamtypes.ShardIteratorTypeTrimHorizon,
	}, requested)
	assert.Equal(t, "iter-shard-1", c.iterators["shard-1"])
	assert.Equal(t, "iter-shard-2", c.iterators["shard-2"])
}
