package remote

import (
	"fmt"
	"net/url"
)

// Ref is a reference to another remote record by id.
type Ref struct {
	ID string `json:"id"`
}

type RefList struct {
	Elements []Ref `json:"elements"`
}

type Merchant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder *int   `json:"sortOrder"`
	Hidden    *bool  `json:"hidden"`
}

type Item struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	AlternateName string   `json:"alternateName"`
	Description   string   `json:"description"`
	Brand         string   `json:"brand"`
	Price         int64    `json:"price"` // minor units
	SKU           string   `json:"sku"`
	Code          string   `json:"code"` // UPC
	Hidden        *bool    `json:"hidden"`
	Available     *bool    `json:"available"`
	Categories    *RefList `json:"categories"`
}

type ItemStock struct {
	Item       Ref      `json:"item"`
	Quantity   *float64 `json:"quantity"`
	StockCount *int64   `json:"stockCount"`
}

type LineItem struct {
	ID       string `json:"id"`
	Item     *Ref   `json:"item"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity *int64 `json:"quantity"`
}

type LineItemList struct {
	Elements []LineItem `json:"elements"`
}

type Order struct {
	ID           string        `json:"id"`
	State        string        `json:"state"`
	PaymentState string        `json:"paymentState"`
	Total        int64         `json:"total"`
	CreatedTime  int64         `json:"createdTime"` // epoch millis
	ModifiedTime int64         `json:"modifiedTime"`
	LineItems    *LineItemList `json:"lineItems"`
}

func merchantPath(merchantID string) string {
	return "/v3/merchants/" + url.PathEscape(merchantID)
}

func CategoriesPath(merchantID string) string {
	return merchantPath(merchantID) + "/categories"
}

func ItemsPath(merchantID string) string {
	return merchantPath(merchantID) + "/items"
}

func ItemStocksPath(merchantID string) string {
	return merchantPath(merchantID) + "/item_stocks"
}

func OrdersPath(merchantID string) string {
	return merchantPath(merchantID) + "/orders"
}

// ModifiedSince builds the incremental order filter.
func ModifiedSince(millis int64) url.Values {
	return url.Values{"filter": []string{fmt.Sprintf("modifiedTime>=%d", millis)}}
}
