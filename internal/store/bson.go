package store

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// toBSONDoc converts a plain map to a BSON document, recursing through nested
// maps and arrays so operator shapes like {"$in": [...]} survive intact
func toBSONDoc(m map[string]interface{}) bson.D {
	doc := bson.D{}

	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			doc = append(doc, bson.E{Key: k, Value: toBSONDoc(val)})
		case []interface{}:
			doc = append(doc, bson.E{Key: k, Value: sliceToBSON(val)})
		default:
			doc = append(doc, bson.E{Key: k, Value: v})
		}
	}

	return doc
}

func sliceToBSON(slice []interface{}) bson.A {
	result := make(bson.A, len(slice))

	for i, v := range slice {
		switch val := v.(type) {
		case map[string]interface{}:
			result[i] = toBSONDoc(val)
		case []interface{}:
			result[i] = sliceToBSON(val)
		default:
			result[i] = v
		}
	}

	return result
}

// convertBSONTypes rewrites BSON driver types into plain Go values so results
// serialize cleanly as JSON (ObjectID to hex, DateTime to RFC3339)
func convertBSONTypes(doc map[string]interface{}) {
	for k, v := range doc {
		switch val := v.(type) {
		case bson.ObjectID:
			doc[k] = val.Hex()
		case bson.DateTime:
			doc[k] = time.Unix(0, int64(val)*int64(time.Millisecond)).UTC().Format(time.RFC3339)
		case bson.Decimal128:
			doc[k] = val.String()
		case bson.Binary:
			doc[k] = string(val.Data)
		case bson.D:
			nested := make(map[string]interface{}, len(val))
			for _, elem := range val {
				nested[elem.Key] = elem.Value
			}

			convertBSONTypes(nested)
			doc[k] = nested
		case bson.A:
			doc[k] = convertBSONArray(val)
		case map[string]interface{}:
			convertBSONTypes(val)
		case []interface{}:
			doc[k] = convertBSONArray(val)
		}
	}
}

func convertBSONArray(arr []interface{}) []interface{} {
	out := make([]interface{}, len(arr))

	for i, item := range arr {
		switch val := item.(type) {
		case bson.ObjectID:
			out[i] = val.Hex()
		case bson.DateTime:
			out[i] = time.Unix(0, int64(val)*int64(time.Millisecond)).UTC().Format(time.RFC3339)
		case bson.D:
			nested := make(map[string]interface{}, len(val))
			for _, elem := range val {
				nested[elem.Key] = elem.Value
			}

			convertBSONTypes(nested)
			out[i] = nested
		case map[string]interface{}:
			convertBSONTypes(val)
			out[i] = val
		case bson.A:
			out[i] = convertBSONArray(val)
		case []interface{}:
			out[i] = convertBSONArray(val)
		default:
			out[i] = item
		}
	}

	return out
}
