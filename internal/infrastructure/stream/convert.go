package stream

import (
	"fmt"

	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
)

// convertImage maps a stream record image onto the dynamodb attribute types so
// the shared attributevalue unmarshaller can decode it. The two services
// expose structurally identical but distinct AttributeValue types.
func convertImage(image map[string]streamtypes.AttributeValue) (map[string]dbtypes.AttributeValue, error) {
	out := make(map[string]dbtypes.AttributeValue, len(image))
	for k, v := range image {
		av, err := convertValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func convertValue(v streamtypes.AttributeValue) (dbtypes.AttributeValue, error) {
	switch t := v.(type) {
	case *streamtypes.AttributeValueMemberS:
		return &dbtypes.AttributeValueMemberS{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberN:
		return &dbtypes.AttributeValueMemberN{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberB:
		return &dbtypes.AttributeValueMemberB{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberBOOL:
		return &dbtypes.AttributeValueMemberBOOL{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberNULL:
		return &dbtypes.AttributeValueMemberNULL{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberSS:
		return &dbtypes.AttributeValueMemberSS{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberNS:
		return &dbtypes.AttributeValueMemberNS{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberBS:
		return &dbtypes.AttributeValueMemberBS{Value: t.Value}, nil
	case *streamtypes.AttributeValueMemberL:
		list := make([]dbtypes.AttributeValue, 0, len(t.Value))
		for _, item := range t.Value {
			av, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &dbtypes.AttributeValueMemberL{Value: list}, nil
	case *streamtypes.AttributeValueMemberM:
		m, err := convertImage(t.Value)
		if err != nil {
			return nil, err
		}
		return &dbtypes.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", v)
	}
}
