package model

// TwoFactorSetup is returned when enrollment begins
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qrCode"`
}
