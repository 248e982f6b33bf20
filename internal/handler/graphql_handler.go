// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/carlyzach/houserank/internal/middleware"
	"github.com/carlyzach/houserank/internal/model"
)

// maxRequestBodySize はGraphQLリクエストボディの最大サイズ。
const maxRequestBodySize = 1 << 20 // 1MB

// GraphQLHandler は単一の/graphqlエンドポイントを処理する。
type GraphQLHandler struct {
	schema graphql.Schema
	logger *slog.Logger
}

// NewGraphQLHandler はGraphQLHandlerを生成する。
func NewGraphQLHandler(schema graphql.Schema, logger *slog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		schema: schema,
		logger: logger,
	}
}

// graphqlRequest はGraphQLリクエストのボディ。
type graphqlRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Handle はGraphQLクエリを実行する。
// POST /graphql
//
// 実行結果はフィールドエラーを含んでいてもHTTP 200で返す。
// リクエスト自体が不正な場合のみ4xxを返す。
func (h *GraphQLHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディのJSONが不正です。",
			Category: "validation",
			Action:   "query / variables / operationName の形式を確認してください。",
		})
		return
	}

	if req.Query == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "queryが指定されていません。",
			Category: "validation",
			Action:   "GraphQLクエリをqueryフィールドに指定してください。",
		})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("GraphQLレスポンスの書き込みに失敗",
			slog.String("error", err.Error()),
		)
	}
}
