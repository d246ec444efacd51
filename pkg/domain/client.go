package domain

// ClientInfo carries the request-scoped client metadata that accompanies a
// login or registration attempt: caller network identity, the device id the
// client reports, and the client-reported program version.
type ClientInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Hwid      string `json:"hwid,omitempty"`
	Version   string `json:"version,omitempty"`
	Location  string `json:"location,omitempty"`
}
