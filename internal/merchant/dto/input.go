package dto

type ProvisionInput struct {
	ExternalID  string `json:"external_id"`
	AccessToken string `json:"access_token"`
}

type UpdateCredentialInput struct {
	MerchantID  string `json:"-"`
	AccessToken string `json:"access_token"`
}
