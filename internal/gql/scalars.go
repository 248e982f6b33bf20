// Package gql はGraphQLスキーマとリゾルバーを提供する。
package gql

import (
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// dateType はエポックミリ秒でシリアライズされる日時スカラー。
var dateType = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Date",
	Description: "エポックミリ秒で表現される日時",
	Serialize: func(value any) any {
		switch v := value.(type) {
		case time.Time:
			return v.UnixMilli()
		case *time.Time:
			if v == nil {
				return nil
			}
			return v.UnixMilli()
		default:
			return value
		}
	},
	ParseValue: func(value any) any {
		switch v := value.(type) {
		case int:
			return time.UnixMilli(int64(v))
		case int64:
			return time.UnixMilli(v)
		case float64:
			return time.UnixMilli(int64(v))
		default:
			return nil
		}
	},
	ParseLiteral: func(valueAST ast.Value) any {
		if intValue, ok := valueAST.(*ast.IntValue); ok {
			if ms, err := strconv.ParseInt(intValue.Value, 10, 64); err == nil {
				return time.UnixMilli(ms)
			}
		}
		return nil
	},
})
