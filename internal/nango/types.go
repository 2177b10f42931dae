package nango

// ConnectSessionRequest is the body for POST /connect/sessions.
type ConnectSessionRequest struct {
	EndUser             EndUser  `json:"end_user"`
	AllowedIntegrations []string `json:"allowed_integrations"`
}

// EndUser identifies the user a connect session is scoped to.
type EndUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// ConnectSession is a short-lived token the frontend exchanges for the
// provider's OAuth flow.
type ConnectSession struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type connectSessionResponse struct {
	Data ConnectSession `json:"data"`
}

// Connection mirrors Nango's connection record, including the exchanged
// provider credentials.
type Connection struct {
	ID                string      `json:"id"`
	ConnectionID      string      `json:"connection_id"`
	ProviderConfigKey string      `json:"provider_config_key"`
	Credentials       Credentials `json:"credentials"`
}

// Credentials holds the provider access token Nango manages on our behalf.
type Credentials struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// AuthWebhook is the asynchronous callback Nango sends after an OAuth flow
// completes. EndUser may be absent on pure error notifications.
type AuthWebhook struct {
	Type              string          `json:"type"`
	Operation         string          `json:"operation"`
	ConnectionID      string          `json:"connectionId"`
	ProviderConfigKey string          `json:"providerConfigKey"`
	AuthMode          string          `json:"authMode"`
	Success           bool            `json:"success"`
	EndUser           *WebhookEndUser `json:"endUser,omitempty"`
	Error             *WebhookError   `json:"error,omitempty"`
}

// WebhookEndUser carries the user identity attached to the OAuth session.
type WebhookEndUser struct {
	EndUserID string `json:"endUserId"`
	Email     string `json:"email,omitempty"`
}

// WebhookError describes a failed OAuth flow.
type WebhookError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}
