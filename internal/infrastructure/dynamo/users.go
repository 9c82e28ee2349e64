package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nayeem-ahmad/ndc95/internal/domain"
)

// UserRepo provides the user-table operations the promote utility needs.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

// ListByEmail returns every user document matching the email via the
// `email-index` GSI. The main application keeps emails unique, but the
// promote flow updates all matches just in case duplicates exist.
func (r *UserRepo) ListByEmail(ctx context.Context, email string) ([]domain.User, error) {
	var users []domain.User
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("email-index"),
			KeyConditionExpression:    aws.String("#a = :v"),
			ExpressionAttributeNames:  map[string]string{"#a": "email"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		users = append(users, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return users, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// SetRoleBatch sets the role on all given users as one atomic
// TransactWriteItems batch — either every document is updated or none is.
func (r *UserRepo) SetRoleBatch(ctx context.Context, userIDs []string, role string) error {
	items := make([]types.TransactWriteItem, 0, len(userIDs))
	for _, id := range userIDs {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                aws.String(r.tableName),
				Key:                      strKey("user_id", id),
				UpdateExpression:         aws.String("SET #r = :r"),
				ExpressionAttributeNames: map[string]string{"#r": "role"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":r": &types.AttributeValueMemberS{Value: role},
				},
			},
		})
	}
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}
