package zillow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// AddressSearch は住所・郵便番号から物件を検索する。
// レスポンスはレガシーAPIのエンベロープ形式（message/response入れ子）で返る。
// 検索系の失敗は致命的でUpstreamErrorを伝播するが、
// 結果配列内の個々の不正エントリは静かに除外する。
func (c *Client) AddressSearch(ctx context.Context, address, citystatezip string) ([]Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addressEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	applyBrowserHeaders(req)

	q := req.URL.Query()
	q.Set("zws-id", c.zwsid)
	q.Set("address", address)
	q.Set("citystatezip", citystatezip)
	req.URL.RawQuery = q.Encode()

	status, body, err := c.do(ctx, "address_search", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, newUpstreamError("address_search", status, body)
	}

	var payload struct {
		Message struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"message"`
		Response struct {
			Results struct {
				Result []json.RawMessage `json:"result"`
			} `json:"results"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newUpstreamError("address_search", status, body)
	}
	if payload.Message.Code != "0" {
		return nil, newUpstreamError("address_search", status, body)
	}

	addresses := make([]Address, 0, len(payload.Response.Results.Result))
	for _, entry := range payload.Response.Results.Result {
		if addr, ok := parseAddressResult(entry); ok {
			addresses = append(addresses, addr)
		}
	}

	return addresses, nil
}

// parseAddressResult は住所検索結果の1エントリをパースする。
// レガシーAPIはXML由来のJSONを返すため、すべてのフィールドが
// 要素1個の配列に包まれている。必須フィールドが欠けるエントリは
// (_, false) で除外する。
func parseAddressResult(entry json.RawMessage) (Address, bool) {
	var result struct {
		Zpid    []string `json:"zpid"`
		Address []struct {
			Street    []string `json:"street"`
			Zipcode   []string `json:"zipcode"`
			City      []string `json:"city"`
			State     []string `json:"state"`
			Latitude  []string `json:"latitude"`
			Longitude []string `json:"longitude"`
		} `json:"address"`
	}
	if err := json.Unmarshal(entry, &result); err != nil || len(result.Address) == 0 {
		return Address{}, false
	}

	addr := result.Address[0]
	zpid := first(result.Zpid)
	lat, latErr := strconv.ParseFloat(first(addr.Latitude), 64)
	long, longErr := strconv.ParseFloat(first(addr.Longitude), 64)
	if zpid == "" || first(addr.City) == "" || latErr != nil || longErr != nil ||
		first(addr.State) == "" || first(addr.Street) == "" || first(addr.Zipcode) == "" {
		return Address{}, false
	}

	return Address{
		Zpid:      zpid,
		City:      first(addr.City),
		Latitude:  lat,
		Longitude: long,
		State:     first(addr.State),
		Street:    first(addr.Street),
		Zipcode:   first(addr.Zipcode),
	}, true
}

// first は配列包みの値から先頭要素を取り出す。空なら空文字を返す。
func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
