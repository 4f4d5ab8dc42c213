package dto

type OrderFilters struct {
	MerchantID string
	// Status filters on the local status. Empty lists every order that is
	// not tombstoned.
	Status   string
	Page     int
	PageSize int
}
