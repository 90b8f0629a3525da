package dto

// SetSettingRequest stores one typed setting value. Exactly one of the value
// fields should be set, selected by Type.
type SetSettingRequest struct {
	Key         string `json:"key" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=string int64 checksum256"`
	StringValue string `json:"stringValue,omitempty"`
	IntValue    int64  `json:"intValue,omitempty"`
	HashValue   string `json:"hashValue,omitempty"`
}

// TrustedAccountRequest adds or removes a trusted caller account.
type TrustedAccountRequest struct {
	Account string `json:"account" binding:"required"`
}

// CleanupRequest asks for one bounded batch of document removal.
type CleanupRequest struct {
	NodeTypes []string `json:"nodeTypes" binding:"required,min=1"`
}

// CleanupResponse reports one batch's progress.
type CleanupResponse struct {
	Removed int  `json:"removed"`
	More    bool `json:"more"`
}
