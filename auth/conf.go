package auth

import "golang.org/x/oauth2/clientcredentials"

// DefaultAuthURL is the RTE token endpoint.
const DefaultAuthURL = "https://digital.iservices.rte-france.com/token/oauth/"

// Conf represents the configuration needed for authentication.
// It includes the client ID, client secret, and the authentication URL.
type Conf struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	url := c.AuthURL
	if url == "" {
		url = DefaultAuthURL
	}
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     url,
	}
}
