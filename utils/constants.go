package utils

import (
	"time"
)

// Token time constants
const (
	// AccessTokenTTL is the default time-to-live for access tokens (30 minutes)
	AccessTokenTTL = 30 * time.Minute

	// ActivationTokenTTL is the time-to-live for account activation tokens (24 hours)
	ActivationTokenTTL = 24 * time.Hour

	// ResetTokenTTL is the time-to-live for password reset tokens (1 hour)
	ResetTokenTTL = 1 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Currency constants
const (
	// DefaultCurrency is assigned to users who register without one
	DefaultCurrency = "VND"

	// CurrencyCodeLength is the length of an ISO 4217 currency code
	CurrencyCodeLength = 3
)
