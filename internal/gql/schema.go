package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/carlyzach/houserank/internal/geo"
	"github.com/carlyzach/houserank/internal/middleware"
	"github.com/carlyzach/houserank/internal/model"
	"github.com/carlyzach/houserank/internal/zillow"
)

// Enricher は物件エンリッチメントドキュメントの取得インターフェース。
type Enricher interface {
	Pricing(ctx context.Context, zpid string) (json.RawMessage, error)
	Property(ctx context.Context, zpid string) (json.RawMessage, error)
}

// ListService は物件リストの操作インターフェース。
// 変更系は操作ユーザーIDを受け取り、アクセス制御はサービス側で行う。
type ListService interface {
	Create(ctx context.Context, name string, ownerID int64) (*model.HouseList, error)
	Delete(ctx context.Context, listID, userID int64) (*model.HouseList, error)
	AddHouse(ctx context.Context, zpid string, listID, userID int64) (*model.House, error)
	RemoveHouse(ctx context.Context, zpid string, listID, userID int64) (*model.House, error)
	AddMember(ctx context.Context, email string, listID, userID int64) (*model.User, error)
	RemoveMember(ctx context.Context, memberID, listID, userID int64) (*model.User, error)
	ListsOwned(ctx context.Context, userID int64) ([]*model.HouseList, error)
	ListsMemberOf(ctx context.Context, userID int64) ([]*model.HouseList, error)
	Members(ctx context.Context, listID int64) ([]*model.User, error)
	Houses(ctx context.Context, listID int64) ([]*model.House, error)
}

// Searcher はプロバイダーの物件検索インターフェース。
type Searcher interface {
	AddressSearch(ctx context.Context, address, citystatezip string) ([]zillow.Address, error)
	MapSearch(ctx context.Context, bottomLeft, topRight zillow.LatLong, zoom int, filters zillow.MapSearchFilters) ([]zillow.Address, error)
}

// UserFinder はユーザーのID検索インターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

// Services はスキーマのリゾルバーが依存するサービス群。
type Services struct {
	Enrich  Enricher
	Lists   ListService
	Search  Searcher
	Users   UserFinder
	Locator geo.Locator
}

// resolverError はAPIErrorをGraphQLエラーのextensionsに載せるためのラッパー。
type resolverError struct {
	apiErr *model.APIError
}

func (e *resolverError) Error() string { return e.apiErr.Error() }

// Extensions はgqlerrors.ExtendedErrorを実装する。
func (e *resolverError) Extensions() map[string]any {
	return map[string]any{
		"code":     e.apiErr.Code,
		"category": e.apiErr.Category,
		"action":   e.apiErr.Action,
	}
}

// liftErr はAPIErrorをextensions付きエラーに持ち上げる。それ以外はそのまま返す。
func liftErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return &resolverError{apiErr: apiErr}
	}
	return err
}

// currentUser はリクエストコンテキストから認証済みユーザーを取り出す。
func currentUser(ctx context.Context) (*model.User, error) {
	user, err := middleware.UserFromContext(ctx)
	if err != nil {
		return nil, liftErr(model.NewUnauthorizedError("認証済みユーザーが必要です"))
	}
	return user, nil
}

func stringArg(p graphql.ResolveParams, name string) string {
	if v, ok := p.Args[name].(string); ok {
		return v
	}
	return ""
}

func intArg(p graphql.ResolveParams, name string) int64 {
	switch v := p.Args[name].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func boolArg(p graphql.ResolveParams, name string, fallback bool) bool {
	if v, ok := p.Args[name].(bool); ok {
		return v
	}
	return fallback
}

func floatArg(p graphql.ResolveParams, name string, fallback float64) float64 {
	switch v := p.Args[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

// latLongArg はLatLongInputの引数値をzillow.LatLongに変換する。
func latLongArg(p graphql.ResolveParams, name string) (zillow.LatLong, error) {
	m, ok := p.Args[name].(map[string]any)
	if !ok {
		return zillow.LatLong{}, fmt.Errorf("引数 %s が不正です", name)
	}
	lat, latOK := m["latitude"].(float64)
	long, longOK := m["longitude"].(float64)
	if !latOK || !longOK {
		return zillow.LatLong{}, fmt.Errorf("引数 %s の緯度経度が不正です", name)
	}
	return zillow.LatLong{Latitude: lat, Longitude: long}, nil
}

// sourceString はmapソースから文字列フィールドを取り出す。
func sourceString(p graphql.ResolveParams, key string) string {
	if m, ok := p.Source.(map[string]any); ok {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}

// sourceInt64 はmapソースからint64フィールドを取り出す。
func sourceInt64(p graphql.ResolveParams, key string) int64 {
	if m, ok := p.Source.(map[string]any); ok {
		if v, ok := m[key].(int64); ok {
			return v
		}
	}
	return 0
}

// NewSchema はサービス群を束ねたGraphQLスキーマを構築する。
func NewSchema(services Services) (graphql.Schema, error) {
	b := &schemaBuilder{services: services}
	return b.build()
}

// schemaBuilder は相互参照する型（User⇔HouseList）をFieldsThunkで
// 遅延解決するため、構築途中の型をフィールドに保持する。
type schemaBuilder struct {
	services Services

	userType      *graphql.Object
	houseListType *graphql.Object
	houseType     *graphql.Object
	zillowDocs    *graphql.Object
}

func (b *schemaBuilder) build() (graphql.Schema, error) {
	b.zillowDocs = b.buildZillowType()
	b.houseType = b.buildHouseType()
	b.houseListType = b.buildHouseListType()
	b.userType = b.buildUserType()

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    b.buildQueryType(),
		Mutation: b.buildMutationType(),
	})
}

// buildZillowType は外部プロバイダーのドキュメントを公開するZillow型を構築する。
// pricing / property は独立に解決され、どちらかの失敗が他方を巻き込まない。
func (b *schemaBuilder) buildZillowType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Zillow",
		Fields: graphql.Fields{
			"zpid": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return sourceString(p, "zpid"), nil
				},
			},
			"pricing": &graphql.Field{
				Type: pricingType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					doc, err := b.services.Enrich.Pricing(p.Context, sourceString(p, "zpid"))
					if err != nil {
						return nil, liftErr(err)
					}
					return docToMap(doc), nil
				},
			},
			"property": &graphql.Field{
				Type: propertyType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					doc, err := b.services.Enrich.Property(p.Context, sourceString(p, "zpid"))
					if err != nil {
						return nil, liftErr(err)
					}
					return docToMap(doc), nil
				},
			},
		},
	})
}

func (b *schemaBuilder) buildHouseType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "House",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return sourceInt64(p, "id"), nil
				},
			},
			"zpid": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
			},
			"zillow": &graphql.Field{
				Type: graphql.NewNonNull(b.zillowDocs),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return map[string]any{"zpid": sourceString(p, "zpid")}, nil
				},
			},
		},
	})
}

func (b *schemaBuilder) buildHouseListType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "HouseList",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.ID),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return sourceInt64(p, "id"), nil
					},
				},
				"name": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
				},
				"owner": &graphql.Field{
					Type: graphql.NewNonNull(b.userType),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						owner, err := b.services.Users.FindByID(p.Context, sourceInt64(p, "owner_id"))
						if err != nil {
							return nil, liftErr(err)
						}
						return userToMap(owner), nil
					},
				},
				"members": &graphql.Field{
					Type: graphql.NewList(graphql.NewNonNull(b.userType)),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						members, err := b.services.Lists.Members(p.Context, sourceInt64(p, "id"))
						if err != nil {
							return nil, liftErr(err)
						}
						out := make([]map[string]any, 0, len(members))
						for _, m := range members {
							out = append(out, userToMap(m))
						}
						return out, nil
					},
				},
				"houses": &graphql.Field{
					Type: graphql.NewList(graphql.NewNonNull(b.houseType)),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						houses, err := b.services.Lists.Houses(p.Context, sourceInt64(p, "id"))
						if err != nil {
							return nil, liftErr(err)
						}
						out := make([]map[string]any, 0, len(houses))
						for _, h := range houses {
							out = append(out, houseToMap(h))
						}
						return out, nil
					},
				},
			}
		}),
	})
}

func (b *schemaBuilder) buildUserType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.ID),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return sourceInt64(p, "id"), nil
					},
				},
				"provider": &graphql.Field{
					Type: graphql.String,
				},
				"providerId": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						return sourceString(p, "provider_id"), nil
					},
				},
				"email": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
				},
				"createdAt": &graphql.Field{
					Type: dateType,
					Resolve: func(p graphql.ResolveParams) (any, error) {
						if m, ok := p.Source.(map[string]any); ok {
							return m["created_at"], nil
						}
						return nil, nil
					},
				},
				"ownedHouseLists": &graphql.Field{
					Type: graphql.NewList(graphql.NewNonNull(b.houseListType)),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						lists, err := b.services.Lists.ListsOwned(p.Context, sourceInt64(p, "id"))
						if err != nil {
							return nil, liftErr(err)
						}
						return listsToMaps(lists), nil
					},
				},
				"memberHouseLists": &graphql.Field{
					Type: graphql.NewList(graphql.NewNonNull(b.houseListType)),
					Resolve: func(p graphql.ResolveParams) (any, error) {
						lists, err := b.services.Lists.ListsMemberOf(p.Context, sourceInt64(p, "id"))
						if err != nil {
							return nil, liftErr(err)
						}
						return listsToMaps(lists), nil
					},
				},
			}
		}),
	})
}

func listsToMaps(lists []*model.HouseList) []map[string]any {
	out := make([]map[string]any, 0, len(lists))
	for _, l := range lists {
		out = append(out, listToMap(l))
	}
	return out
}

var principalType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Principal",
	Fields: graphql.Fields{
		"email":      &graphql.Field{Type: graphql.String},
		"name":       &graphql.Field{Type: graphql.String},
		"givenName":  &graphql.Field{Type: graphql.String},
		"familyName": &graphql.Field{Type: graphql.String},
		"picture":    &graphql.Field{Type: graphql.String},
	},
})

var locationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Location",
	Fields: graphql.Fields{
		"latitude":  &graphql.Field{Type: graphql.Float},
		"longitude": &graphql.Field{Type: graphql.Float},
	},
})

// latLongInput は地図検索の矩形を指定する緯度経度の入力。
var latLongInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "LatLongInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"latitude":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		"longitude": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
	},
})

func (b *schemaBuilder) buildQueryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"ip": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return middleware.ClientIPFromContext(p.Context), nil
				},
			},
			"location": &graphql.Field{
				Type: locationType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					loc, err := b.services.Locator.Lookup(middleware.ClientIPFromContext(p.Context))
					if err != nil || loc == nil {
						return nil, err
					}
					return map[string]any{
						"latitude":  loc.Latitude,
						"longitude": loc.Longitude,
					}, nil
				},
			},
			"user": &graphql.Field{
				Type: b.userType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					return userToMap(user), nil
				},
			},
			"principal": &graphql.Field{
				Type: principalType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					principal, err := middleware.PrincipalFromContext(p.Context)
					if err != nil {
						return nil, liftErr(model.NewUnauthorizedError("認証情報がありません"))
					}
					return principalToMap(principal), nil
				},
			},
			"zillowProperty": &graphql.Field{
				Type: b.zillowDocs,
				Args: graphql.FieldConfigArgument{
					"zpid": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return map[string]any{"zpid": stringArg(p, "zpid")}, nil
				},
			},
			"zillowAddressSearch": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(addressType)),
				Args: graphql.FieldConfigArgument{
					"address": &graphql.ArgumentConfig{
						Type:         graphql.String,
						DefaultValue: "5 Washington Square S",
					},
					"citystatezip": &graphql.ArgumentConfig{
						Type:         graphql.String,
						DefaultValue: "10001",
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					results, err := b.services.Search.AddressSearch(p.Context, stringArg(p, "address"), stringArg(p, "citystatezip"))
					if err != nil {
						return nil, liftErr(err)
					}
					return addressesToMaps(results), nil
				},
			},
			"zillowMapSearch": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(addressType)),
				Args: mapSearchArgs(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					bottomLeft, err := latLongArg(p, "bottomLeft")
					if err != nil {
						return nil, err
					}
					topRight, err := latLongArg(p, "topRight")
					if err != nil {
						return nil, err
					}
					results, err := b.services.Search.MapSearch(
						p.Context, bottomLeft, topRight,
						int(intArg(p, "zoom")), mapSearchFilters(p),
					)
					if err != nil {
						return nil, liftErr(err)
					}
					return addressesToMaps(results), nil
				},
			},
		},
	})
}

// mapSearchArgs はzillowMapSearchの引数定義を返す。
// フィルター引数のデフォルトはDefaultMapSearchFiltersに合わせる。
func mapSearchArgs() graphql.FieldConfigArgument {
	defaults := zillow.DefaultMapSearchFilters()
	return graphql.FieldConfigArgument{
		"bottomLeft": &graphql.ArgumentConfig{Type: graphql.NewNonNull(latLongInput)},
		"topRight":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(latLongInput)},
		"zoom":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 12},

		"priceRange":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: defaults.PriceRange},
		"bedsMin":         &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaults.BedsMin},
		"bathsMin":        &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: defaults.BathsMin},
		"livingAreaRange": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: defaults.LivingAreaRange},
		"lotSizeRange":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: defaults.LotSizeRange},
		"yearBuiltRange":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: defaults.YearBuiltRange},

		"includeForSale":        &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: defaults.IncludeForSale},
		"includePending":        &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: defaults.IncludePending},
		"includeRecentlySold":   &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: defaults.IncludeRecentlySold},
		"includeForeclosure":    &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: defaults.IncludeForeclosure},
		"includePreForeclosure": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: defaults.IncludePreForeclosure},
	}
}

func mapSearchFilters(p graphql.ResolveParams) zillow.MapSearchFilters {
	defaults := zillow.DefaultMapSearchFilters()
	return zillow.MapSearchFilters{
		PriceRange:      stringArg(p, "priceRange"),
		BedsMin:         int(intArg(p, "bedsMin")),
		BathsMin:        floatArg(p, "bathsMin", defaults.BathsMin),
		LivingAreaRange: stringArg(p, "livingAreaRange"),
		LotSizeRange:    stringArg(p, "lotSizeRange"),
		YearBuiltRange:  stringArg(p, "yearBuiltRange"),

		IncludeForSale:        boolArg(p, "includeForSale", defaults.IncludeForSale),
		IncludePending:        boolArg(p, "includePending", defaults.IncludePending),
		IncludeRecentlySold:   boolArg(p, "includeRecentlySold", defaults.IncludeRecentlySold),
		IncludeForeclosure:    boolArg(p, "includeForeclosure", defaults.IncludeForeclosure),
		IncludePreForeclosure: boolArg(p, "includePreForeclosure", defaults.IncludePreForeclosure),
	}
}

func addressesToMaps(addresses []zillow.Address) []map[string]any {
	out := make([]map[string]any, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, addressToMap(a))
	}
	return out
}

// buildMutationType は変更系操作を構築する。
// すべての変更はコンテキストの認証済みユーザーを操作主体とし、
// アクセス判定はListService側のauthorizeが行う。
func (b *schemaBuilder) buildMutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createHouseList": &graphql.Field{
				Type: b.houseListType,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					list, err := b.services.Lists.Create(p.Context, stringArg(p, "name"), user.ID)
					if err != nil {
						return nil, liftErr(err)
					}
					return listToMap(list), nil
				},
			},
			"deleteHouseList": &graphql.Field{
				Type: b.houseListType,
				Args: graphql.FieldConfigArgument{
					"listId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					list, err := b.services.Lists.Delete(p.Context, intArg(p, "listId"), user.ID)
					if err != nil {
						return nil, liftErr(err)
					}
					return listToMap(list), nil
				},
			},
			"addHouseToList": &graphql.Field{
				Type: b.houseType,
				Args: graphql.FieldConfigArgument{
					"zpid":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"listId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					house, err := b.services.Lists.AddHouse(p.Context, stringArg(p, "zpid"), intArg(p, "listId"), user.ID)
					if err != nil {
						return nil, liftErr(err)
					}
					return houseToMap(house), nil
				},
			},
			"removeHouseFromList": &graphql.Field{
				Type: b.houseType,
				Args: graphql.FieldConfigArgument{
					"zpid":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"listId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					house, err := b.services.Lists.RemoveHouse(p.Context, stringArg(p, "zpid"), intArg(p, "listId"), user.ID)
					if err != nil {
						return nil, liftErr(err)
					}
					return houseToMap(house), nil
				},
			},
			"addUserToList": &graphql.Field{
				Type: b.userType,
				Args: graphql.FieldConfigArgument{
					"email":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"listId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					member, err := b.services.Lists.AddMember(p.Context, stringArg(p, "email"), intArg(p, "listId"), user.ID)
					if err != nil {
						return nil, liftErr(err)
					}
					return userToMap(member), nil
				},
			},
			"removeUserFromList": &graphql.Field{
				Type: b.userType,
				Args: graphql.FieldConfigArgument{
					"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"listId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, err := currentUser(p.Context)
					if err != nil {
						return nil, err
					}
					member, err := b.services.Lists.RemoveMember(p.Context, intArg(p, "id"), intArg(p, "listId"), user.ID)
					if err != nil {
						return nil, liftErr(err)
					}
					return userToMap(member), nil
				},
			},
		},
	})
}
