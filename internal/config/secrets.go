package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed. The API
// key itself stays visible; it is an identifier, not a secret.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Creds
	out.Creds = cfg.Creds
	redact(&out.Creds.ApiSecret)
	redact(&out.Creds.ApiPassphrase)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.APIKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Session.AssetIDs != nil {
		out.Session.AssetIDs = make([]string, len(cfg.Session.AssetIDs))
		copy(out.Session.AssetIDs, cfg.Session.AssetIDs)
	}
	if cfg.Session.Markets != nil {
		out.Session.Markets = make([]string, len(cfg.Session.Markets))
		copy(out.Session.Markets, cfg.Session.Markets)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
