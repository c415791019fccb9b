package model

import "time"

// MaskedSecret is returned in place of credentials on every read path.
const MaskedSecret = "********"

// TenantPushConfig carries a tenant's push-provider settings. Credentials is
// an encrypted blob (nonceHex:cipherHex); it is decrypted only inside the
// gateway when a tenant client is built, never on a read path.
type TenantPushConfig struct {
	TenantID     int64  `json:"tenant_id"`
	ProjectID    string `json:"project_id"`
	Credentials  string `json:"-"`
	ProviderURL  string `json:"provider_url"`
	DailyLimit   int64  `json:"daily_limit"`
	MonthlyLimit int64  `json:"monthly_limit"`
	DailySent    int64  `json:"daily_sent"`
	MonthlySent  int64  `json:"monthly_sent"`
	DailyResetAt time.Time
	MonthResetAt time.Time
	IsActive     bool       `json:"is_active"`
	IsConfigured bool       `json:"is_configured"`
	LastTestedAt *time.Time `json:"last_tested_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Masked returns a copy safe to hand to read paths: credentials replaced by a
// fixed placeholder, counters and flags intact.
func (c TenantPushConfig) Masked() TenantPushConfig {
	out := c
	if out.Credentials != "" {
		out.Credentials = MaskedSecret
	}
	return out
}
