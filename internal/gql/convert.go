package gql

import (
	"encoding/json"

	"github.com/carlyzach/houserank/internal/model"
	"github.com/carlyzach/houserank/internal/zillow"
)

// リゾルバー間で受け渡すソース値はすべてmapに正規化する。
// graphql-goのデフォルトリゾルバーがmapのキー参照でフィールドを解決するため、
// 子フィールドのリゾルバーはソースのキーだけを知っていればよい。

func userToMap(u *model.User) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":          u.ID,
		"provider":    u.Provider,
		"provider_id": u.ProviderID,
		"email":       u.Email,
		"created_at":  u.CreatedAt,
	}
}

func listToMap(l *model.HouseList) map[string]any {
	if l == nil {
		return nil
	}
	return map[string]any{
		"id":       l.ID,
		"name":     l.Name,
		"owner_id": l.OwnerID,
	}
}

func houseToMap(h *model.House) map[string]any {
	if h == nil {
		return nil
	}
	return map[string]any{
		"id":   h.ID,
		"zpid": h.Zpid,
	}
}

func principalToMap(p *model.Principal) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"email":      p.Email,
		"name":       p.Name,
		"familyName": p.FamilyName,
		"givenName":  p.GivenName,
		"picture":    p.Picture,
	}
}

func addressToMap(a zillow.Address) map[string]any {
	return map[string]any{
		"zpid":             a.Zpid,
		"city":             a.City,
		"latitude":         a.Latitude,
		"longitude":        a.Longitude,
		"state":            a.State,
		"street":           a.Street,
		"zipcode":          a.Zipcode,
		"price":            a.Price,
		"dateSold":         a.DateSold,
		"bathrooms":        a.Bathrooms,
		"bedrooms":         a.Bedrooms,
		"livingArea":       a.LivingArea,
		"yearBuilt":        a.YearBuilt,
		"lotSize":          a.LotSize,
		"homeType":         a.HomeType,
		"homeStatus":       a.HomeStatus,
		"photoCount":       a.PhotoCount,
		"imageLink":        a.ImageLink,
		"daysOnZillow":     a.DaysOnZillow,
		"isFeatured":       a.IsFeatured,
		"brokerId":         a.BrokerID,
		"zestimate":        a.Zestimate,
		"isUnmappable":     a.IsUnmappable,
		"mediumImageLink":  a.MediumImageLink,
		"homeStatusForHDP": a.HomeStatusForHDP,
		"priceForHDP":      a.PriceForHDP,
		"festimate":        a.Festimate,
		"hiResImageLink":   a.HiResImageLink,
		"currency":         a.Currency,
		"country":          a.Country,
		"streetAddress":    a.Street,
	}
}

// docToMap はアップストリームから取得したJSONドキュメントをmapに展開する。
// nilドキュメントや展開失敗時はnilを返し、フィールドはnullとして応答される。
func docToMap(doc json.RawMessage) map[string]any {
	if doc == nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil
	}
	return out
}
