package dto

// AddCurrencyRequest admits a currency symbol to the allow-list.
type AddCurrencyRequest struct {
	Symbol    string `json:"symbol" binding:"required,assetsymbol"`
	Precision uint8  `json:"precision" binding:"lte=18"`
}

// CurrencyResponse is one allow-listed currency.
type CurrencyResponse struct {
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
}
