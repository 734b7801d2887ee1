package domain

// ChannelKind identifies a logical push stream.
type ChannelKind string

const (
	ChannelMarket ChannelKind = "market"
	ChannelUser   ChannelKind = "user"
)

// ConnState is the lifecycle state of one push channel. It is owned
// exclusively by the channel instance; readers always derive connection
// status from it rather than assuming.
type ConnState int

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosing
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its lowercase name so JSON consumers
// never see the raw enum value.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// APICreds are the user-channel subscription credentials. Secret and
// Passphrase must be masked before any log output.
type APICreds struct {
	APIKey     string `json:"apikey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Masked returns a copy safe for logging.
func (c APICreds) Masked() APICreds {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	return APICreds{APIKey: c.APIKey, Secret: mask(c.Secret), Passphrase: mask(c.Passphrase)}
}
