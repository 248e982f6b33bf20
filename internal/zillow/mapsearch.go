package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// MapSearchFilters は地図検索の絞り込み条件。
// 数値レンジは "min,max" 形式でプロバイダーに渡され、空文字は無指定を表す。
type MapSearchFilters struct {
	PriceRange      string // 例: "100000,500000" / ","
	BedsMin         int
	BathsMin        float64
	LivingAreaRange string
	LotSizeRange    string
	YearBuiltRange  string

	IncludeForSale        bool
	IncludePending        bool
	IncludeRecentlySold   bool
	IncludeForeclosure    bool
	IncludePreForeclosure bool
}

// DefaultMapSearchFilters は地図検索のデフォルト条件を返す。
// 売出中・保留中を含み、レンジ指定はすべて無指定。
func DefaultMapSearchFilters() MapSearchFilters {
	return MapSearchFilters{
		PriceRange:      ",",
		BedsMin:         1,
		LivingAreaRange: ",",
		LotSizeRange:    ",",
		YearBuiltRange:  ",",
		IncludeForSale:  true,
		IncludePending:  true,
	}
}

// Address は検索結果の1物件。必須フィールドが揃った検証済みのレコード。
type Address struct {
	Zpid      string  `json:"zpid"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	State     string  `json:"state"`
	Street    string  `json:"street"`
	Zipcode   string  `json:"zipcode"`

	// 地図検索でのみ埋まる拡張フィールド
	Price            float64 `json:"price,omitempty"`
	DateSold         float64 `json:"dateSold,omitempty"`
	Bathrooms        float64 `json:"bathrooms,omitempty"`
	Bedrooms         float64 `json:"bedrooms,omitempty"`
	LivingArea       float64 `json:"livingArea,omitempty"`
	YearBuilt        int     `json:"yearBuilt,omitempty"`
	LotSize          float64 `json:"lotSize,omitempty"`
	HomeType         string  `json:"homeType,omitempty"`
	HomeStatus       string  `json:"homeStatus,omitempty"`
	PhotoCount       int     `json:"photoCount,omitempty"`
	ImageLink        string  `json:"imageLink,omitempty"`
	DaysOnZillow     float64 `json:"daysOnZillow,omitempty"`
	IsFeatured       bool    `json:"isFeatured,omitempty"`
	BrokerID         int     `json:"brokerId,omitempty"`
	Zestimate        float64 `json:"zestimate,omitempty"`
	IsUnmappable     bool    `json:"isUnmappable,omitempty"`
	MediumImageLink  string  `json:"mediumImageLink,omitempty"`
	HomeStatusForHDP string  `json:"homeStatusForHDP,omitempty"`
	PriceForHDP      float64 `json:"priceForHDP,omitempty"`
	Festimate        float64 `json:"festimate,omitempty"`
	HiResImageLink   string  `json:"hiResImageLink,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	Country          string  `json:"country,omitempty"`
}

// MapSearch は矩形領域内の物件を検索する。
// 検索系の失敗はエンリッチメントと異なり致命的で、UpstreamErrorを伝播する。
// 結果配列の個々のエントリは形状が保証されないため、
// パースできないエントリは静かに除外する（失敗させない）。
func (c *Client) MapSearch(ctx context.Context, bottomLeft, topRight LatLong, zoom int, filters MapSearchFilters) ([]Address, error) {
	if zoom <= 0 {
		zoom = 12
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	applyBrowserHeaders(req)

	q := req.URL.Query()
	q.Set("rect", encodeRect(bottomLeft, topRight))
	q.Set("zoom", strconv.Itoa(zoom))
	q.Set("zws-id", c.zwsid)
	q.Set("spt", "homes")
	q.Set("status", searchStatusFlags(filters))
	q.Set("lt", "111101")
	q.Set("ht", "111111")
	q.Set("pr", filters.PriceRange)
	q.Set("bd", fmt.Sprintf("%d,", filters.BedsMin))
	q.Set("ba", fmt.Sprintf("%v,", filters.BathsMin))
	q.Set("sf", filters.LivingAreaRange)
	q.Set("lot", filters.LotSizeRange)
	q.Set("yr", filters.YearBuiltRange)
	q.Set("pnd", boolFlag(filters.IncludePending))
	q.Set("rs", boolFlag(filters.IncludeRecentlySold))
	q.Set("fore", boolFlag(filters.IncludeForeclosure))
	q.Set("pmf", boolFlag(filters.IncludePreForeclosure))
	q.Set("red", "0")
	q.Set("zso", "0")
	q.Set("days", "any")
	q.Set("ds", "all")
	q.Set("pf", "0")
	q.Set("sch", "100111")
	q.Set("p", "1")
	q.Set("sort", "globalrelevanceex")
	q.Set("search", "maplist")
	q.Set("rt", "6")
	q.Set("listright", "true")
	q.Set("isMapSearch", "true")
	req.URL.RawQuery = q.Encode()

	status, body, err := c.do(ctx, "map_search", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, newUpstreamError("map_search", status, body)
	}

	var payload struct {
		Map struct {
			Properties []json.RawMessage `json:"properties"`
		} `json:"map"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newUpstreamError("map_search", status, body)
	}

	addresses := make([]Address, 0, len(payload.Map.Properties))
	for _, entry := range payload.Map.Properties {
		if addr, ok := parseMapEntry(entry); ok {
			addresses = append(addresses, addr)
		}
	}

	return addresses, nil
}

// searchStatusFlags は包含フラグをプロバイダーのstatusビット列に変換する。
func searchStatusFlags(filters MapSearchFilters) string {
	flags := []bool{
		filters.IncludeForSale,
		filters.IncludeRecentlySold,
		filters.IncludePending,
		filters.IncludeForeclosure,
		filters.IncludePreForeclosure,
		false,
	}
	out := make([]byte, len(flags))
	for i, f := range flags {
		if f {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

// boolFlag はboolを"1"/"0"に変換する。
func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// parseMapEntry は地図検索結果の1エントリをパースする。
// エントリは配列の配列で、positional indexに依存した壊れやすい形状のため、
// 位置の知識をこの関数に閉じ込める。必須フィールド（zpid, city, lat/long,
// state, street, zipcode）が1つでも欠けるエントリは (_, false) で除外する。
func parseMapEntry(entry json.RawMessage) (Address, bool) {
	var outer []json.RawMessage
	if err := json.Unmarshal(entry, &outer); err != nil || len(outer) < 9 {
		return Address{}, false
	}

	var inner []json.RawMessage
	if err := json.Unmarshal(outer[8], &inner); err != nil || len(inner) < 12 {
		return Address{}, false
	}

	var detail struct {
		Zpid          any     `json:"zpid"`
		StreetAddress string  `json:"streetAddress"`
		Zipcode       string  `json:"zipcode"`
		City          string  `json:"city"`
		State         string  `json:"state"`
		Latitude         float64 `json:"latitude"`
		Longitude        float64 `json:"longitude"`
		Price            float64 `json:"price"`
		DateSold         float64 `json:"dateSold"`
		Bathrooms        float64 `json:"bathrooms"`
		Bedrooms         float64 `json:"bedrooms"`
		LivingArea       float64 `json:"livingArea"`
		YearBuilt        int     `json:"yearBuilt"`
		LotSize          float64 `json:"lotSize"`
		HomeType         string  `json:"homeType"`
		HomeStatus       string  `json:"homeStatus"`
		PhotoCount       int     `json:"photoCount"`
		ImageLink        string  `json:"imageLink"`
		DaysOnZillow     float64 `json:"daysOnZillow"`
		IsFeatured       bool    `json:"isFeatured"`
		BrokerID         int     `json:"brokerId"`
		Zestimate        float64 `json:"zestimate"`
		IsUnmappable     bool    `json:"isUnmappable"`
		MediumImageLink  string  `json:"mediumImageLink"`
		HomeStatusForHDP string  `json:"homeStatusForHDP"`
		PriceForHDP      float64 `json:"priceForHDP"`
		Festimate        float64 `json:"festimate"`
		HiResImageLink   string  `json:"hiResImageLink"`
		Currency         string  `json:"currency"`
		Country          string  `json:"country"`
	}
	if err := json.Unmarshal(inner[11], &detail); err != nil {
		return Address{}, false
	}

	zpid := stringifyID(detail.Zpid)
	if zpid == "" || detail.City == "" || detail.Latitude == 0 || detail.Longitude == 0 ||
		detail.State == "" || detail.StreetAddress == "" || detail.Zipcode == "" {
		return Address{}, false
	}

	return Address{
		Zpid:             zpid,
		City:             detail.City,
		Latitude:         detail.Latitude,
		Longitude:        detail.Longitude,
		State:            detail.State,
		Street:           detail.StreetAddress,
		Zipcode:          detail.Zipcode,
		Price:            detail.Price,
		DateSold:         detail.DateSold,
		Bathrooms:        detail.Bathrooms,
		Bedrooms:         detail.Bedrooms,
		LivingArea:       detail.LivingArea,
		YearBuilt:        detail.YearBuilt,
		LotSize:          detail.LotSize,
		HomeType:         detail.HomeType,
		HomeStatus:       detail.HomeStatus,
		PhotoCount:       detail.PhotoCount,
		ImageLink:        detail.ImageLink,
		DaysOnZillow:     detail.DaysOnZillow,
		IsFeatured:       detail.IsFeatured,
		BrokerID:         detail.BrokerID,
		Zestimate:        detail.Zestimate,
		IsUnmappable:     detail.IsUnmappable,
		MediumImageLink:  detail.MediumImageLink,
		HomeStatusForHDP: detail.HomeStatusForHDP,
		PriceForHDP:      detail.PriceForHDP,
		Festimate:        detail.Festimate,
		HiResImageLink:   detail.HiResImageLink,
		Currency:         detail.Currency,
		Country:          detail.Country,
	}, true
}

// stringifyID はプロバイダーが数値・文字列のどちらでも返すIDを文字列に揃える。
func stringifyID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}
