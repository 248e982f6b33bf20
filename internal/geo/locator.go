// Package geo はクライアントIPからの位置解決を提供する。
// MaxMindのGeoLite2データベース（MMDBファイル）を使用する。
package geo

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Location は緯度経度の組。
type Location struct {
	Latitude  float64
	Longitude float64
}

// Locator はIPアドレスから位置を解決するインターフェース。
type Locator interface {
	// Lookup はIPアドレスの推定位置を返す。
	// 位置が特定できない場合は (nil, nil) を返す。
	Lookup(ip string) (*Location, error)

	// Close はデータベースをクローズする。
	Close() error
}

// mmdbLocator はGeoLite2データベースによるLocatorの実装。
type mmdbLocator struct {
	reader *geoip2.Reader
	logger *slog.Logger
}

// NewLocator はMMDBファイルを開いてLocatorを生成する。
func NewLocator(dbPath string, logger *slog.Logger) (*mmdbLocator, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &mmdbLocator{
		reader: reader,
		logger: logger,
	}, nil
}

// Lookup はIPアドレスの推定位置を返す。
// IPが不正、データベースに無い、または座標が未收録の場合は (nil, nil)。
func (l *mmdbLocator) Lookup(ip string) (*Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, nil
	}

	city, err := l.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("geoip lookup failed: %w", err)
	}
	if city == nil || (city.Location.Latitude == 0 && city.Location.Longitude == 0) {
		return nil, nil
	}

	return &Location{
		Latitude:  city.Location.Latitude,
		Longitude: city.Location.Longitude,
	}, nil
}

// Close はデータベースをクローズする。
func (l *mmdbLocator) Close() error {
	return l.reader.Close()
}

// NopLocator はデータベース未設定時のLocator。常に位置不明を返す。
type NopLocator struct{}

// Lookup は常に (nil, nil) を返す。
func (NopLocator) Lookup(ip string) (*Location, error) { return nil, nil }

// Close は何もしない。
func (NopLocator) Close() error { return nil }

var _ Locator = (*mmdbLocator)(nil)
var _ Locator = NopLocator{}
