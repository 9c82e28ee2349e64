package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nayeem-ahmad/ndc95/internal/domain"
)

// DynamoDB attribute names used in outcome update expressions.
const (
	fieldEmailSent   = "email_sent"
	fieldEmailSentAt = "email_sent_at"
	fieldEmailError  = "email_error"
)

// batchDeleteLimit is DynamoDB's per-request BatchWriteItem cap. Larger
// candidate sets are split into multiple requests.
const batchDeleteLimit = 25

// VerificationCodeRepo provides typed DynamoDB operations for the
// verification_codes table. PK: email.
type VerificationCodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationCodeRepo(client *dynamodb.Client, tableName string) *VerificationCodeRepo {
	return &VerificationCodeRepo{client: client, tableName: tableName}
}

func (r *VerificationCodeRepo) Put(ctx context.Context, v *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationCodeRepo) Get(ctx context.Context, email string) (*domain.VerificationCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SetOutcome records the delivery outcome on the existing record in a single
// UpdateItem. A delivered outcome writes email_sent=true plus the sent
// timestamp; a failed one writes email_sent=false plus the failure reason.
func (r *VerificationCodeRepo) SetOutcome(ctx context.Context, email string, o domain.Outcome) error {
	var updates map[string]interface{}
	if o.Delivered() {
		updates = map[string]interface{}{
			fieldEmailSent:   true,
			fieldEmailSentAt: o.SentAt().UTC().Format(time.RFC3339),
		}
	} else {
		updates = map[string]interface{}{
			fieldEmailSent:  false,
			fieldEmailError: o.Reason(),
		}
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", email),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// Scan returns every record in the table. The table holds at most one live
// code per recipient and codes expire within minutes, so a full scan stays
// cheap at this scale.
func (r *VerificationCodeRepo) Scan(ctx context.Context) ([]domain.VerificationCode, error) {
	var codes []domain.VerificationCode
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.VerificationCode
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		codes = append(codes, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return codes, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// batchWriter is the slice of the DynamoDB API the batch-delete loop needs.
type batchWriter interface {
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// BatchDelete removes the records for the given emails. Requests are chunked
// at DynamoDB's 25-item BatchWriteItem limit and unprocessed keys are
// re-submitted until the batch drains.
func (r *VerificationCodeRepo) BatchDelete(ctx context.Context, emails []string) error {
	reqs := make([]types.WriteRequest, 0, len(emails))
	for _, email := range emails {
		reqs = append(reqs, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: strKey("email", email)},
		})
	}
	return batchDeleteChunks(ctx, r.client, r.tableName, reqs)
}

func batchDeleteChunks(ctx context.Context, client batchWriter, table string, reqs []types.WriteRequest) error {
	for len(reqs) > 0 {
		n := len(reqs)
		if n > batchDeleteLimit {
			n = batchDeleteLimit
		}
		out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				table: reqs[:n],
			},
		})
		if err != nil {
			return fmt.Errorf("batch delete: %w", err)
		}
		reqs = reqs[n:]
		if unprocessed := out.UnprocessedItems[table]; len(unprocessed) > 0 {
			reqs = append(reqs, unprocessed...)
		}
	}
	return nil
}
